package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/chayanin-k/walkmate-api/internal/config"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/provider"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

func testTokenConfig() config.TokenConfig {
	return config.TokenConfig{
		JWTSecret:                   "test-secret",
		JWTExpiration:               15 * time.Minute,
		JWTRefreshSecret:            "test-secret",
		RefreshTokenExpirationInSec: 604800,
		Issuer:                      "walkmate-api",
	}
}

func newTestIssuer() *token.Issuer {
	return token.NewIssuer(testTokenConfig(), token.NewOpaqueRefreshTokenPolicy())
}

func newTestOtpStore(t *testing.T) repository.OtpStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return repository.NewOtpRedisStore(client)
}

func newTestNonceStore(t *testing.T) repository.AttestationNonceStore {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return repository.NewAttestationNonceRedisStore(client)
}

// memoryUserRepo is an in-memory UserRepository mirroring the mongo
// implementation's not-found behavior.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*model.User)}
}

func (r *memoryUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, errors.New("duplicate email")
		}
		if user.Username != "" && existing.Username == user.Username {
			return nil, errors.New("duplicate username")
		}
	}

	now := time.Now()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	clone := *user
	r.users[user.ID.Hex()] = &clone
	return user, nil
}

func (r *memoryUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Email == email })
}

func (r *memoryUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return r.findBy(func(u *model.User) bool { return u.Username == username })
}

func (r *memoryUserRepo) GetUserByProvider(
	_ context.Context,
	providerID string,
	authProvider model.AuthProvider,
) (*model.User, error) {
	return r.findBy(func(u *model.User) bool {
		return u.ProviderID == providerID && u.Provider == authProvider
	})
}

func (r *memoryUserRepo) UpdateProviderID(_ context.Context, id, providerID string) error {
	return r.update(id, func(u *model.User) { u.ProviderID = providerID })
}

func (r *memoryUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (r *memoryUserRepo) SetRefreshToken(_ context.Context, id, tokenHash string, issuedAt time.Time) error {
	return r.update(id, func(u *model.User) {
		u.RefreshTokenHash = tokenHash
		u.RefreshTokenIssuedAt = &issuedAt
	})
}

func (r *memoryUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	return r.update(id, func(u *model.User) {
		u.RefreshTokenHash = ""
		u.RefreshTokenIssuedAt = nil
	})
}

func (r *memoryUserRepo) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(r.users, id)
	return nil
}

func (r *memoryUserRepo) findBy(match func(*model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (r *memoryUserRepo) update(id string, mutate func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	mutate(user)
	user.UpdatedAt = time.Now()
	return nil
}

// memoryHealthRepo is an in-memory HealthDataRepository keyed by
// (userID, date).
type memoryHealthRepo struct {
	mu      sync.Mutex
	records map[string]*model.HealthData
}

func newMemoryHealthRepo() *memoryHealthRepo {
	return &memoryHealthRepo{records: make(map[string]*model.HealthData)}
}

func (r *memoryHealthRepo) Accumulate(
	_ context.Context,
	userID, date string,
	sample model.HealthData,
) (*model.HealthData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userID + "|" + date
	record, ok := r.records[key]
	if !ok {
		record = &model.HealthData{UserID: userID, Date: date, CreatedAt: time.Now()}
		r.records[key] = record
	}

	record.Steps += sample.Steps
	record.Duration += sample.Duration
	record.Calories += sample.Calories
	record.Distance += sample.Distance
	record.UpdatedAt = time.Now()

	clone := *record
	return &clone, nil
}

func (r *memoryHealthRepo) GetByDate(_ context.Context, userID, date string) (*model.HealthData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID+"|"+date]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	clone := *record
	return &clone, nil
}

func (r *memoryHealthRepo) ListRange(_ context.Context, userID, startDate, endDate string) ([]*model.HealthData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*model.HealthData
	for _, record := range r.records {
		if record.UserID == userID && record.Date >= startDate && record.Date <= endDate {
			clone := *record
			result = append(result, &clone)
		}
	}

	// Date-ascending, matching the mongo sort.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].Date < result[i].Date {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	return result, nil
}

func (r *memoryHealthRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, record := range r.records {
		if record.UserID == userID {
			delete(r.records, key)
		}
	}
	return nil
}

// recordingSender captures delivered codes per email instead of sending
// mail.
type recordingSender struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{codes: make(map[string]string)}
}

func (s *recordingSender) SendOtpEmail(to, code string) error             { return s.record(to, code) }
func (s *recordingSender) SendPasswordResetOtpEmail(to, code string) error { return s.record(to, code) }
func (s *recordingSender) SendFindUsernameOtpEmail(to, code string) error  { return s.record(to, code) }

func (s *recordingSender) record(to, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errors.New("smtp unavailable")
	}
	s.codes[to] = code
	return nil
}

func (s *recordingSender) lastCode(to string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[to]
}

// stubExchanger returns a fixed profile or error.
type stubExchanger struct {
	profile *provider.Profile
	err     error
}

func (s *stubExchanger) Exchange(context.Context, string) (*provider.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	clone := *s.profile
	return &clone, nil
}
