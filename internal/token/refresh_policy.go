package token

import (
	"crypto/rand"
	"encoding/hex"
)

// RefreshTokenPolicy defines how refresh tokens are produced. The rest of
// the subsystem assumes the opaque strategy: tokens carry no embedded
// expiry, their hash is persisted on the user record, and liveness is
// computed from the stored issue timestamp. A signed-JWT policy is not a
// drop-in replacement for that verification logic.
type RefreshTokenPolicy interface {
	Generate() (string, error)
}

const opaqueRefreshTokenBytes = 40

// OpaqueRefreshTokenPolicy generates high-entropy random strings. Because
// nothing is embedded in the token, logout truly revokes it by clearing
// the stored hash.
type OpaqueRefreshTokenPolicy struct{}

func NewOpaqueRefreshTokenPolicy() OpaqueRefreshTokenPolicy {
	return OpaqueRefreshTokenPolicy{}
}

func (OpaqueRefreshTokenPolicy) Generate() (string, error) {
	buf := make([]byte, opaqueRefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
