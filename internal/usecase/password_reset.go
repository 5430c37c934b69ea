package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/security"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

// PasswordResetUsecase drives the OTP-gated password reset and username
// recovery flows. Both share the registration flow's OTP storage but keep
// their orchestration separate.
type PasswordResetUsecase interface {
	InitiatePasswordReset(ctx context.Context, email string) error
	VerifyPasswordResetOtp(ctx context.Context, email, otp string) (string, error)
	ResetPassword(ctx context.Context, email, newPassword, verificationToken string) error

	InitiateFindUsername(ctx context.Context, email string) error
	VerifyFindUsernameOtp(ctx context.Context, email, otp string) (string, error)
}

type passwordResetUsecase struct {
	userRepo repository.UserRepository
	otpStore repository.OtpStore
	sender   OtpSender
	issuer   *token.Issuer
}

func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	otpStore repository.OtpStore,
	sender OtpSender,
	issuer *token.Issuer,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		userRepo: userRepo,
		otpStore: otpStore,
		sender:   sender,
		issuer:   issuer,
	}
}

func (u *passwordResetUsecase) InitiatePasswordReset(ctx context.Context, email string) error {
	user, err := u.localUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	return sendOtp(ctx, u.otpStore, repository.OtpPurposePasswordReset, user.Email, u.sender.SendPasswordResetOtpEmail)
}

func (u *passwordResetUsecase) VerifyPasswordResetOtp(ctx context.Context, email, otp string) (string, error) {
	if _, err := u.userByEmail(ctx, email); err != nil {
		return "", err
	}

	return verifyOtp(ctx, u.otpStore, u.issuer, repository.OtpPurposePasswordReset, email, otp)
}

// ResetPassword changes the password after OTP verification. Refresh-token
// state is left untouched: existing sessions stay valid.
func (u *passwordResetUsecase) ResetPassword(ctx context.Context, email, newPassword, verificationToken string) error {
	if err := u.issuer.VerifyEmailVerificationToken(verificationToken, email); err != nil {
		return apperror.Unauthorized("invalid or expired verification token")
	}

	user, err := u.localUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return u.userRepo.UpdatePassword(ctx, user.ID.Hex(), passwordHash)
}

func (u *passwordResetUsecase) InitiateFindUsername(ctx context.Context, email string) error {
	if _, err := u.userWithUsername(ctx, email); err != nil {
		return err
	}

	return sendOtp(ctx, u.otpStore, repository.OtpPurposeFindUsername, email, u.sender.SendFindUsernameOtpEmail)
}

// VerifyFindUsernameOtp checks the code and returns the stored username;
// nothing is mutated.
func (u *passwordResetUsecase) VerifyFindUsernameOtp(ctx context.Context, email, otp string) (string, error) {
	user, err := u.userWithUsername(ctx, email)
	if err != nil {
		return "", err
	}

	record, err := u.otpStore.GetOtp(ctx, repository.OtpPurposeFindUsername, email)
	if err != nil {
		if errors.Is(err, repository.ErrOtpNotFound) {
			return "", apperror.BadRequest("OTP expired or not found")
		}
		return "", err
	}

	if record.Code != otp {
		return "", apperror.BadRequest("invalid OTP")
	}

	if err := u.otpStore.DeleteOtp(ctx, repository.OtpPurposeFindUsername, email); err != nil {
		return "", err
	}

	return user.Username, nil
}

func (u *passwordResetUsecase) userByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}

	return user, nil
}

// localUserByEmail resolves the account and rejects social accounts with
// a message naming the provider, so the client can steer the user to the
// right sign-in method.
func (u *passwordResetUsecase) localUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.Provider != model.ProviderLocal {
		return nil, apperror.BadRequest(fmt.Sprintf(
			"%s users cannot reset password. Please use %s login.",
			titleCase(string(user.Provider)), user.Provider))
	}

	return user, nil
}

func (u *passwordResetUsecase) userWithUsername(ctx context.Context, email string) (*model.User, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("username not found for this email address")
		}
		return nil, err
	}

	if user.Username == "" {
		return nil, apperror.NotFound("username not found for this email address")
	}

	return user, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
