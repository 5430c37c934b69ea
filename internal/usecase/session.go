package usecase

import (
	"context"
	"time"

	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/security"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

// createAuthSession issues a token pair and persists the refresh-token
// hash with its issue timestamp, overwriting any previous session.
func createAuthSession(
	ctx context.Context,
	userRepo repository.UserRepository,
	issuer *token.Issuer,
	user *model.User,
) (*AuthResult, error) {
	pair, err := issuer.IssueAuthTokenPair(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	if err := storeRefreshToken(ctx, userRepo, user.ID.Hex(), pair.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         summarize(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func storeRefreshToken(ctx context.Context, userRepo repository.UserRepository, userID, refreshToken string) error {
	tokenHash, err := security.HashPassword(refreshToken)
	if err != nil {
		return err
	}

	return userRepo.SetRefreshToken(ctx, userID, tokenHash, time.Now())
}
