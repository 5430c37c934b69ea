package provider

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	appleKeysURL = "https://appleid.apple.com/auth/keys"
	appleIssuer  = "https://appleid.apple.com"
)

var ErrAppleTokenInvalid = errors.New("apple token verification failed")

// AppleProvider verifies a Sign in with Apple identity token against
// Apple's published JWKS. Keys are cached for an hour; Apple rotates them
// rarely and a stale key only forces one refetch.
type AppleProvider struct {
	clientID   string
	httpClient *http.Client

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	keysFetched time.Time
}

func NewAppleProvider(clientID string) *AppleProvider {
	return &AppleProvider{
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type appleClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (p *AppleProvider) Exchange(ctx context.Context, identityToken string) (*Profile, error) {
	if identityToken == "" {
		return nil, ErrTokenRequired
	}
	if p.clientID == "" {
		return nil, ErrNotConfigured
	}

	claims := &appleClaims{}
	_, err := jwt.ParseWithClaims(identityToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return p.publicKey(ctx, kid)
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(p.clientID),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAppleTokenInvalid, err)
	}

	if claims.Email == "" {
		return nil, ErrEmailMissing
	}

	name := claims.Email
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}

	return &Profile{
		Email:      claims.Email,
		ProviderID: claims.Subject,
		Name:       name,
	}, nil
}

type appleJWKS struct {
	Keys []struct {
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (p *AppleProvider) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if key, ok := p.keys[kid]; ok && time.Since(p.keysFetched) < time.Hour {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, appleKeysURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch Apple public keys: %w", err)
	}
	defer resp.Body.Close()

	var jwks appleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode Apple JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}

	p.keys = keys
	p.keysFetched = time.Now()

	key, ok := p.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no Apple public key for kid %q", kid)
	}

	return key, nil
}
