package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const lineProfileURL = "https://api.line.me/v2/profile"

// linePlaceholderDomain marks synthesized emails for Line accounts that
// did not share one. Placeholder emails must never be used for lookup by
// email, only by (providerID, provider).
const linePlaceholderDomain = "line.placeholder"

var (
	ErrLineTokenInvalid      = errors.New("line token is invalid or expired")
	ErrLineInsufficientScope = errors.New("line token has insufficient scope")
	ErrLineBadRequest        = errors.New("invalid Line API request")
	ErrLineUserIDMissing     = errors.New("line authentication failed: no user ID provided")
)

// LineProvider validates a Line access token against the Line profile API.
// Line does not return an email, so the exchange synthesizes a
// deterministic placeholder address from the Line user id.
type LineProvider struct {
	channelID  string
	httpClient *http.Client
}

func NewLineProvider(channelID string) *LineProvider {
	return &LineProvider{
		channelID:  channelID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// IsLinePlaceholderEmail reports whether email was synthesized for a Line
// account rather than supplied by the user.
func IsLinePlaceholderEmail(email string) bool {
	return strings.Contains(email, linePlaceholderDomain)
}

type lineProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type lineError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

func (p *LineProvider) Exchange(ctx context.Context, accessToken string) (*Profile, error) {
	if accessToken == "" {
		return nil, ErrTokenRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lineProfileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to Line API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr lineError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
			switch apiErr.Error {
			case "invalid_token":
				return nil, ErrLineTokenInvalid
			case "insufficient_scope":
				return nil, ErrLineInsufficientScope
			case "invalid_request":
				return nil, ErrLineBadRequest
			}
			if apiErr.Message != "" {
				return nil, fmt.Errorf("line API error: %s", apiErr.Message)
			}
		}
		return nil, fmt.Errorf("line API returned status %d", resp.StatusCode)
	}

	var profile lineProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode Line API response: %w", err)
	}

	if profile.UserID == "" {
		return nil, ErrLineUserIDMissing
	}

	name := profile.DisplayName
	if name == "" {
		name = "LineUser_" + profile.UserID[:min(8, len(profile.UserID))]
	}

	return &Profile{
		Email:      fmt.Sprintf("line_%s@%s", profile.UserID, linePlaceholderDomain),
		ProviderID: profile.UserID,
		Name:       name,
	}, nil
}
