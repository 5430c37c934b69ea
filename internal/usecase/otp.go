package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

// sendOtp generates a code, claims the per-(purpose, email) slot and
// delivers the code. The store claim is atomic, so two concurrent
// initiate calls cannot both succeed.
func sendOtp(
	ctx context.Context,
	store repository.OtpStore,
	purpose repository.OtpPurpose,
	email string,
	deliver func(to, code string) error,
) error {
	otp, err := generateOtp()
	if err != nil {
		return err
	}

	if err := store.CreateOtp(ctx, purpose, email, otp); err != nil {
		if errors.Is(err, repository.ErrOtpAlreadyPending) {
			return apperror.BadRequest(
				"OTP already sent to this email address. Please check your inbox or try again after 5 minutes.")
		}
		return err
	}

	if err := deliver(email, otp); err != nil {
		return apperror.Internal("failed to send OTP email", err)
	}

	return nil
}

// verifyOtp checks the stored code and mints a verification token bound
// to the email. The record is deleted on success so a verified code can
// never be replayed within its TTL.
func verifyOtp(
	ctx context.Context,
	store repository.OtpStore,
	issuer *token.Issuer,
	purpose repository.OtpPurpose,
	email, otp string,
) (string, error) {
	record, err := store.GetOtp(ctx, purpose, email)
	if err != nil {
		if errors.Is(err, repository.ErrOtpNotFound) {
			return "", apperror.BadRequest("OTP expired or not found")
		}
		return "", err
	}

	if record.Code != otp {
		return "", apperror.BadRequest("invalid OTP")
	}

	verificationToken, err := issuer.IssueEmailVerificationToken(email)
	if err != nil {
		return "", err
	}

	if err := store.DeleteOtp(ctx, purpose, email); err != nil {
		return "", err
	}

	return verificationToken, nil
}

// generateOtp returns a uniformly random 4-digit code in [1000, 9999].
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
