package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const facebookGraphURL = "https://graph.facebook.com/me"

// Facebook Graph API error codes that deserve their own client message.
const (
	facebookErrInvalidToken   = 190
	facebookErrAPISession     = 102
	facebookErrInvalidRequest = 2500
)

var (
	ErrFacebookTokenInvalid   = errors.New("facebook token is invalid or expired")
	ErrFacebookSessionExpired = errors.New("facebook session has expired, please log in again")
	ErrFacebookBadRequest     = errors.New("invalid facebook API request")
)

// FacebookProvider validates a Facebook access token against the Graph API.
type FacebookProvider struct {
	appID      string
	appSecret  string
	httpClient *http.Client
}

func NewFacebookProvider(appID, appSecret string) *FacebookProvider {
	return &FacebookProvider{
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (p *FacebookProvider) Exchange(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, ErrTokenRequired
	}
	if p.appID == "" || p.appSecret == "" {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("fields", "id,name,email")
	query.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, facebookGraphURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to reach Facebook API: %w", err)
	}
	defer resp.Body.Close()

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode Facebook API response: %w", err)
	}

	if profile.Error != nil {
		switch profile.Error.Code {
		case facebookErrInvalidToken:
			return nil, ErrFacebookTokenInvalid
		case facebookErrAPISession:
			return nil, ErrFacebookSessionExpired
		case facebookErrInvalidRequest:
			return nil, ErrFacebookBadRequest
		default:
			return nil, fmt.Errorf("facebook API error: %s", profile.Error.Message)
		}
	}

	if profile.Email == "" {
		return nil, ErrEmailMissing
	}

	return &Profile{
		Email:      profile.Email,
		ProviderID: profile.ID,
		Name:       profile.Name,
	}, nil
}
