package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrInvalidGoogleAudience = errors.New("invalid google audience")

// GoogleProvider validates a Google ID token via the tokeninfo endpoint
// and checks the audience against the configured client id.
type GoogleProvider struct {
	clientID string
}

func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{clientID: clientID}
}

func (p *GoogleProvider) Exchange(ctx context.Context, idToken string) (*Profile, error) {
	if idToken == "" {
		return nil, ErrTokenRequired
	}
	if p.clientID == "" {
		return nil, ErrNotConfigured
	}

	oauth2Service, err := oauth2.NewService(ctx, option.WithHTTPClient(&http.Client{}))
	if err != nil {
		return nil, err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(idToken)
	tokenInfo, err := tokenInfoCall.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	if tokenInfo.Audience != p.clientID {
		return nil, ErrInvalidGoogleAudience
	}

	if tokenInfo.Email == "" {
		return nil, ErrEmailMissing
	}

	// Tokeninfo carries no display name; derive one from the email.
	name := tokenInfo.Email
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}

	return &Profile{
		Email:      tokenInfo.Email,
		ProviderID: tokenInfo.UserId,
		Name:       name,
	}, nil
}
