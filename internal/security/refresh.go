package security

import "time"

// RefreshTokenStatus is the result of checking a presented refresh token
// against the stored hash and issue timestamp.
type RefreshTokenStatus int

const (
	RefreshTokenValid RefreshTokenStatus = iota
	RefreshTokenExpired
	RefreshTokenInvalid
)

func (s RefreshTokenStatus) String() string {
	switch s {
	case RefreshTokenValid:
		return "valid"
	case RefreshTokenExpired:
		return "expired"
	default:
		return "invalid"
	}
}

// ValidateRefreshToken checks a presented refresh token. The expiry window
// is computed from issuedAt plus ttlSeconds and is checked before the hash:
// an expired-but-correct token must report expired, not valid, so the
// caller can tell the client to log in again rather than claim the token
// is bogus.
func ValidateRefreshToken(provided, storedHash string, issuedAt time.Time, ttlSeconds int64) RefreshTokenStatus {
	if storedHash == "" {
		return RefreshTokenInvalid
	}

	if time.Now().After(issuedAt.Add(time.Duration(ttlSeconds) * time.Second)) {
		return RefreshTokenExpired
	}

	if !VerifyPassword(provided, storedHash) {
		return RefreshTokenInvalid
	}

	return RefreshTokenValid
}
