package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OtpPurpose namespaces one-time codes so the three OTP-gated flows never
// accept each other's codes.
type OtpPurpose string

const (
	OtpPurposeRegistration  OtpPurpose = "registration"
	OtpPurposePasswordReset OtpPurpose = "password_reset"
	OtpPurposeFindUsername  OtpPurpose = "find_username"
)

// OtpTTL is how long a stored code stays redeemable.
const OtpTTL = 5 * time.Minute

var (
	ErrOtpAlreadyPending = errors.New("an OTP is already pending for this email")
	ErrOtpNotFound       = errors.New("OTP expired or not found")
)

// OtpRecord is the stored value for one live code.
type OtpRecord struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}

// OtpStore keeps at most one live OTP per (purpose, email) in Redis.
type OtpStore interface {
	CreateOtp(ctx context.Context, purpose OtpPurpose, email, code string) error
	GetOtp(ctx context.Context, purpose OtpPurpose, email string) (*OtpRecord, error)
	DeleteOtp(ctx context.Context, purpose OtpPurpose, email string) error
}

type otpRedisStore struct {
	client *redis.Client
}

func NewOtpRedisStore(client *redis.Client) OtpStore {
	return &otpRedisStore{client: client}
}

// CreateOtp stores a code with the standard TTL. The SetNX claim is the
// serialization point for concurrent initiate calls: the second caller
// gets ErrOtpAlreadyPending instead of overwriting a live code.
func (s *otpRedisStore) CreateOtp(ctx context.Context, purpose OtpPurpose, email, code string) error {
	record := OtpRecord{Code: code, IssuedAt: time.Now()}
	value, err := json.Marshal(record)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, otpKey(purpose, email), value, OtpTTL).Result()
	if err != nil {
		return err
	}

	if !ok {
		return ErrOtpAlreadyPending
	}

	return nil
}

func (s *otpRedisStore) GetOtp(ctx context.Context, purpose OtpPurpose, email string) (*OtpRecord, error) {
	value, err := s.client.Get(ctx, otpKey(purpose, email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrOtpNotFound
		}
		return nil, err
	}

	var record OtpRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *otpRedisStore) DeleteOtp(ctx context.Context, purpose OtpPurpose, email string) error {
	return s.client.Del(ctx, otpKey(purpose, email)).Err()
}

func otpKey(purpose OtpPurpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}
