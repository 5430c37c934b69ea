package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/repository"
)

const nonceBytes = 32

// NonceGrant is a freshly issued attestation nonce and its deadline.
type NonceGrant struct {
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttestationUsecase issues single-use nonces a device embeds in its
// platform attestation, and verifies the returned attestation.
type AttestationUsecase interface {
	IssueNonce(ctx context.Context, userID string) (*NonceGrant, error)
	VerifyAttestation(ctx context.Context, userID, platform, attestationToken, nonce string) error
}

type attestationUsecase struct {
	nonceStore repository.AttestationNonceStore
}

func NewAttestationUsecase(nonceStore repository.AttestationNonceStore) AttestationUsecase {
	return &attestationUsecase{nonceStore: nonceStore}
}

func (u *attestationUsecase) IssueNonce(ctx context.Context, userID string) (*NonceGrant, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, apperror.Internal("failed to generate nonce", err)
	}
	nonce := hex.EncodeToString(buf)

	expiresAt, err := u.nonceStore.CreateNonce(ctx, userID, nonce)
	if err != nil {
		return nil, apperror.Internal("failed to store nonce", err)
	}

	return &NonceGrant{Nonce: nonce, ExpiresAt: expiresAt}, nil
}

func (u *attestationUsecase) VerifyAttestation(ctx context.Context, userID, platform, attestationToken, nonce string) error {
	switch platform {
	case "android", "ios":
	default:
		return apperror.BadRequest("unsupported platform")
	}
	if attestationToken == "" {
		return apperror.BadRequest("attestation token is required")
	}

	// Claiming the nonce is the replay gate: it either succeeds exactly
	// once or fails here for every retry.
	if err := u.nonceStore.ClaimNonce(ctx, userID, nonce); err != nil {
		switch err {
		case repository.ErrNonceNotFound:
			return apperror.BadRequest("invalid or expired nonce")
		case repository.ErrNonceAlreadyUsed:
			return apperror.BadRequest("nonce has already been used")
		default:
			return apperror.Internal("failed to claim nonce", err)
		}
	}

	return nil
}
