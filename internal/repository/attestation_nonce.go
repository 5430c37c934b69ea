package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceTTL is how long an issued attestation nonce stays redeemable.
const NonceTTL = 5 * time.Minute

var (
	ErrNonceNotFound    = errors.New("attestation nonce not found")
	ErrNonceAlreadyUsed = errors.New("attestation nonce has already been used")
)

// NonceRecord is the stored value for one attestation nonce. Used is
// terminal: a claimed nonce is never redeemable again even while the key
// is still live.
type NonceRecord struct {
	UserID    string    `json:"user_id"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// AttestationNonceStore issues and claims single-use nonces in Redis.
type AttestationNonceStore interface {
	CreateNonce(ctx context.Context, userID, nonce string) (time.Time, error)
	ClaimNonce(ctx context.Context, userID, nonce string) error
}

// claimNonceScript atomically flips the used flag while keeping the TTL.
// Returns 1 on a successful claim, 0 when already used, -1 when missing.
var claimNonceScript = redis.NewScript(`
local value = redis.call("GET", KEYS[1])
if not value then
	return -1
end
local record = cjson.decode(value)
if record.used then
	return 0
end
record.used = true
redis.call("SET", KEYS[1], cjson.encode(record), "KEEPTTL")
return 1
`)

type attestationNonceRedisStore struct {
	client *redis.Client
}

func NewAttestationNonceRedisStore(client *redis.Client) AttestationNonceStore {
	return &attestationNonceRedisStore{client: client}
}

func (s *attestationNonceRedisStore) CreateNonce(ctx context.Context, userID, nonce string) (time.Time, error) {
	expiresAt := time.Now().Add(NonceTTL)
	record := NonceRecord{
		UserID:    userID,
		Nonce:     nonce,
		ExpiresAt: expiresAt,
		Used:      false,
	}

	value, err := json.Marshal(record)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.client.Set(ctx, nonceKey(userID, nonce), value, NonceTTL).Err(); err != nil {
		return time.Time{}, err
	}

	return expiresAt, nil
}

func (s *attestationNonceRedisStore) ClaimNonce(ctx context.Context, userID, nonce string) error {
	result, err := claimNonceScript.Run(ctx, s.client, []string{nonceKey(userID, nonce)}).Int()
	if err != nil {
		return err
	}

	switch result {
	case 1:
		return nil
	case 0:
		return ErrNonceAlreadyUsed
	default:
		return ErrNonceNotFound
	}
}

func nonceKey(userID, nonce string) string {
	return fmt.Sprintf("attestation:nonce:%s:%s", userID, nonce)
}
