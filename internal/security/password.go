package security

import (
	"github.com/matthewhartstonge/argon2"
)

var hashConfig = argon2.DefaultConfig()

// HashPassword hashes a plaintext secret with argon2id and returns the
// encoded hash. The same function covers passwords and refresh tokens.
func HashPassword(password string) (string, error) {
	encoded, err := hashConfig.HashEncoded([]byte(password))
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// VerifyPassword reports whether password matches the stored encoded hash.
// A missing hash verifies false; it never returns an error to the caller
// because a malformed stored hash is indistinguishable from a mismatch at
// the authentication boundary.
func VerifyPassword(password, encodedHash string) bool {
	if encodedHash == "" {
		return false
	}

	ok, err := argon2.VerifyEncoded([]byte(password), []byte(encodedHash))
	if err != nil {
		return false
	}

	return ok
}
