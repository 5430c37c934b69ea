package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chayanin-k/walkmate-api/internal/config"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrEmailMismatch = errors.New("token email mismatch")
)

// Pair bundles the access token and the refresh token returned to a client
// after a successful authentication.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// AccessClaims are the claims embedded in an access token. Subject carries
// the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// EmailVerificationClaims are the claims of the short-lived token minted
// after a successful OTP verification. The token binds the follow-up
// request to the verified email.
type EmailVerificationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// emailVerificationExpiry bounds the window between OTP verification and
// the follow-up register or reset request.
const emailVerificationExpiry = 15 * time.Minute

// Issuer mints and verifies the signed tokens of the authentication
// subsystem. It is a pure function of its configuration; signing failures
// indicate misconfiguration and are always propagated.
type Issuer struct {
	cfg     config.TokenConfig
	refresh RefreshTokenPolicy
}

// NewIssuer creates an Issuer with the given refresh-token policy.
func NewIssuer(cfg config.TokenConfig, refresh RefreshTokenPolicy) *Issuer {
	return &Issuer{cfg: cfg, refresh: refresh}
}

// IssueAccessToken mints a short-lived access token for the user.
func (i *Issuer) IssueAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.JWTExpiration)),
		},
	}

	return i.sign(claims, i.cfg.JWTSecret)
}

// IssueAuthTokenPair mints an access token and a fresh refresh token.
// Persisting the refresh-token hash is the caller's responsibility.
func (i *Issuer) IssueAuthTokenPair(userID string) (*Pair, error) {
	accessToken, err := i.IssueAccessToken(userID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := i.refresh.Generate()
	if err != nil {
		return nil, err
	}

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// IssueEmailVerificationToken mints a 15-minute token bound to email.
func (i *Issuer) IssueEmailVerificationToken(email string) (string, error) {
	now := time.Now()
	claims := EmailVerificationClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(emailVerificationExpiry)),
		},
	}

	return i.sign(claims, i.cfg.JWTSecret)
}

// VerifyAccessToken validates an access token and returns the subject
// user id.
func (i *Issuer) VerifyAccessToken(tokenStr string) (string, error) {
	claims := &AccessClaims{}
	if err := i.parse(tokenStr, i.cfg.JWTSecret, claims); err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// VerifyEmailVerificationToken validates a verification token and checks
// that the embedded email matches the email supplied in the follow-up
// request.
func (i *Issuer) VerifyEmailVerificationToken(tokenStr, email string) error {
	claims := &EmailVerificationClaims{}
	if err := i.parse(tokenStr, i.cfg.JWTSecret, claims); err != nil {
		return err
	}

	if claims.Email == "" {
		return ErrInvalidToken
	}

	if claims.Email != email {
		return ErrEmailMismatch
	}

	return nil
}

func (i *Issuer) sign(claims jwt.Claims, secret string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenStr, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenStr, nil
}

func (i *Issuer) parse(tokenStr, secret string, claims jwt.Claims) error {
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(i.cfg.Issuer),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return err
	}

	if !t.Valid {
		return ErrInvalidToken
	}

	return nil
}
