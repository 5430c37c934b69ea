// Package provider exchanges third-party credentials for a verified user
// profile. Each provider validates the token the mobile client obtained
// and recovers the email, provider-scoped user id and display name.
package provider

import (
	"context"
	"errors"
)

// Profile is the identity a provider exchange recovers.
type Profile struct {
	Email      string
	ProviderID string
	Name       string
}

var (
	ErrTokenRequired = errors.New("provider token is required")
	ErrEmailMissing  = errors.New("provider profile is missing an email address")
	ErrNotConfigured = errors.New("provider is not configured")
)

// TokenExchanger validates a provider token and returns the profile bound
// to it. All errors from an exchange are authentication failures from the
// caller's point of view.
type TokenExchanger interface {
	Exchange(ctx context.Context, token string) (*Profile, error)
}
