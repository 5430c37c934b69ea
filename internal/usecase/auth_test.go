package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/repository"
)

type authFixture struct {
	usecase  AuthUsecase
	userRepo *memoryUserRepo
	otpStore repository.OtpStore
	sender   *recordingSender
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	userRepo := newMemoryUserRepo()
	otpStore := newTestOtpStore(t)
	sender := newRecordingSender()

	return &authFixture{
		usecase:  NewAuthUsecase(userRepo, newMemoryHealthRepo(), otpStore, sender, newTestIssuer(), testTokenConfig()),
		userRepo: userRepo,
		otpStore: otpStore,
		sender:   sender,
	}
}

// registerUser walks the full OTP-gated registration for a test account.
func (f *authFixture) registerUser(t *testing.T, email, username, password string) *AuthResult {
	t.Helper()
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, email); err != nil {
		t.Fatalf("InitiateEmailVerification failed: %v", err)
	}

	verificationToken, err := f.usecase.VerifyEmailOtp(ctx, email, f.sender.lastCode(email))
	if err != nil {
		t.Fatalf("VerifyEmailOtp failed: %v", err)
	}

	result, err := f.usecase.Register(ctx, RegisterParams{
		Email:    email,
		Username: username,
		Name:     "Test User",
		Password: password,
		Token:    verificationToken,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	return result
}

func TestRegistrationFlow(t *testing.T) {
	f := newAuthFixture(t)

	result := f.registerUser(t, "a@x.com", "alice", "password-123")

	if result.User.Email != "a@x.com" || result.User.Username != "alice" {
		t.Errorf("unexpected user summary: %+v", result.User)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("registration must end in an authenticated session")
	}

	stored, err := f.userRepo.GetUserByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if stored.Provider != model.ProviderLocal {
		t.Errorf("provider = %q, want local", stored.Provider)
	}
	if stored.PasswordHash == "password-123" {
		t.Error("password must be stored hashed")
	}
	if stored.RefreshTokenHash == "" || stored.RefreshTokenIssuedAt == nil {
		t.Error("refresh token hash and issue time must be persisted")
	}
	if stored.RefreshTokenHash == result.RefreshToken {
		t.Error("refresh token must be stored hashed")
	}
}

func TestInitiateEmailVerificationExistingEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "a@x.com", "alice", "password-123")

	err := f.usecase.InitiateEmailVerification(context.Background(), "a@x.com")
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperror.KindOf(err))
	}
}

func TestInitiateEmailVerificationWhilePending(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("first initiate failed: %v", err)
	}

	err := f.usecase.InitiateEmailVerification(ctx, "a@x.com")
	if apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("kind = %v, want bad request", apperror.KindOf(err))
	}
	if !strings.Contains(apperror.MessageOf(err), "already sent") {
		t.Errorf("message = %q, want a pending-OTP message", apperror.MessageOf(err))
	}
}

func TestVerifyEmailOtpWrongCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// A wrong guess fails but does not consume the code.
	wrong := "0000"
	if wrong == f.sender.lastCode("a@x.com") {
		wrong = "0001"
	}
	if _, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", wrong); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("wrong code kind = %v, want bad request", apperror.KindOf(err))
	}

	if _, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", f.sender.lastCode("a@x.com")); err != nil {
		t.Fatalf("correct code after wrong guess failed: %v", err)
	}
}

func TestVerifyEmailOtpNotReplayable(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	code := f.sender.lastCode("a@x.com")
	if _, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", code); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}

	// The code is deleted on success.
	if _, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", code); apperror.KindOf(err) != apperror.KindBadRequest {
		t.Fatalf("replay kind = %v, want bad request", apperror.KindOf(err))
	}
}

func TestRegisterTokenEmailMismatch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	verificationToken, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", f.sender.lastCode("a@x.com"))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// The token is bound to a@x.com and must not register b@x.com.
	_, err = f.usecase.Register(ctx, RegisterParams{
		Email:    "b@x.com",
		Username: "bob",
		Name:     "Bob",
		Password: "password-123",
		Token:    verificationToken,
	})
	if apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Fatalf("kind = %v, want unauthorized", apperror.KindOf(err))
	}
}

func TestRegisterEmailRace(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "a@x.com"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	verificationToken, err := f.usecase.VerifyEmailOtp(ctx, "a@x.com", f.sender.lastCode("a@x.com"))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// Another account claims the email between OTP verification and register.
	if _, err := f.userRepo.CreateUser(ctx, &model.User{
		Email:    "a@x.com",
		Username: "sniper",
		Provider: model.ProviderLocal,
	}); err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}

	_, err = f.usecase.Register(ctx, RegisterParams{
		Email:    "a@x.com",
		Username: "alice",
		Name:     "Alice",
		Password: "password-123",
		Token:    verificationToken,
	})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperror.KindOf(err))
	}
}

func TestRegisterUsernameTaken(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	if err := f.usecase.InitiateEmailVerification(ctx, "b@x.com"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	verificationToken, err := f.usecase.VerifyEmailOtp(ctx, "b@x.com", f.sender.lastCode("b@x.com"))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	_, err = f.usecase.Register(ctx, RegisterParams{
		Email:    "b@x.com",
		Username: "alice",
		Name:     "Another Alice",
		Password: "password-123",
		Token:    verificationToken,
	})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperror.KindOf(err))
	}
	if apperror.MessageOf(err) != "username already exists" {
		t.Errorf("message = %q", apperror.MessageOf(err))
	}
}

func TestRegisterGarbageTokenMasked(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.usecase.Register(context.Background(), RegisterParams{
		Email:    "a@x.com",
		Username: "alice",
		Name:     "Alice",
		Password: "password-123",
		Token:    "not-a-token",
	})
	if apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Fatalf("kind = %v, want unauthorized", apperror.KindOf(err))
	}
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	result, err := f.usecase.Login(ctx, "alice", "password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.User.Username != "alice" {
		t.Errorf("username = %q", result.User.Username)
	}

	// Wrong password and unknown username fail identically.
	_, badPassword := f.usecase.Login(ctx, "alice", "wrong-password")
	_, badUser := f.usecase.Login(ctx, "nobody", "password-123")
	for _, err := range []error{badPassword, badUser} {
		if apperror.KindOf(err) != apperror.KindUnauthorized {
			t.Fatalf("kind = %v, want unauthorized", apperror.KindOf(err))
		}
		if apperror.MessageOf(err) != "invalid credentials" {
			t.Errorf("message = %q, want %q", apperror.MessageOf(err), "invalid credentials")
		}
	}
}

func TestLoginOverwritesPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	first := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	second, err := f.usecase.Login(ctx, "alice", "password-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// The first session's refresh token is revoked by the overwrite.
	if _, err := f.usecase.RefreshTokens(ctx, first.User.ID, first.RefreshToken); err == nil {
		t.Error("old refresh token should be rejected after a new login")
	}
	if _, err := f.usecase.RefreshTokens(ctx, second.User.ID, second.RefreshToken); err != nil {
		t.Errorf("new refresh token should work: %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	pair, err := f.usecase.RefreshTokens(ctx, result.User.ID, result.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens failed: %v", err)
	}
	if pair.RefreshToken == result.RefreshToken {
		t.Error("refresh must rotate the refresh token")
	}

	// The consumed token is dead; the rotated one lives.
	if _, err := f.usecase.RefreshTokens(ctx, result.User.ID, result.RefreshToken); err == nil {
		t.Error("consumed refresh token should be rejected")
	}
	if _, err := f.usecase.RefreshTokens(ctx, result.User.ID, pair.RefreshToken); err != nil {
		t.Errorf("rotated refresh token should work: %v", err)
	}
}

func TestRefreshExpiredVsInvalidMessages(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	_, err := f.usecase.RefreshTokens(ctx, result.User.ID, "bogus-token")
	if apperror.MessageOf(err) != "invalid refresh token" {
		t.Errorf("invalid message = %q", apperror.MessageOf(err))
	}

	// Age the session past the refresh window; even the correct token
	// now reports expiry, not invalidity.
	stale := time.Now().Add(-time.Duration(testTokenConfig().RefreshTokenExpirationInSec+60) * time.Second)
	user, err := f.userRepo.GetUser(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if err := f.userRepo.SetRefreshToken(ctx, result.User.ID, user.RefreshTokenHash, stale); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	_, err = f.usecase.RefreshTokens(ctx, result.User.ID, result.RefreshToken)
	if apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Fatalf("kind = %v, want unauthorized", apperror.KindOf(err))
	}
	if !strings.Contains(apperror.MessageOf(err), "expired") {
		t.Errorf("expired message = %q", apperror.MessageOf(err))
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	if err := f.usecase.Logout(ctx, result.User.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := f.usecase.RefreshTokens(ctx, result.User.ID, result.RefreshToken)
	if apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Fatalf("kind = %v, want unauthorized", apperror.KindOf(err))
	}
}

func TestLogoutClearsSession(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	if err := f.usecase.Logout(ctx, result.User.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	stored, err := f.userRepo.GetUser(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.RefreshTokenHash != "" || stored.RefreshTokenIssuedAt != nil {
		t.Error("logout must clear the stored refresh-token state")
	}

	// Logout is idempotent for an existing account.
	if err := f.usecase.Logout(ctx, result.User.ID); err != nil {
		t.Errorf("second logout failed: %v", err)
	}

	if err := f.usecase.Logout(ctx, "000000000000000000000000"); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("unknown user kind = %v, want not found", apperror.KindOf(err))
	}
}

func TestGetProfile(t *testing.T) {
	f := newAuthFixture(t)
	result := f.registerUser(t, "a@x.com", "alice", "password-123")

	summary, err := f.usecase.GetProfile(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if summary.Email != "a@x.com" || summary.Username != "alice" || summary.Name != "Test User" {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRemoveAccount(t *testing.T) {
	userRepo := newMemoryUserRepo()
	healthRepo := newMemoryHealthRepo()
	otpStore := newTestOtpStore(t)
	sender := newRecordingSender()
	f := &authFixture{
		usecase:  NewAuthUsecase(userRepo, healthRepo, otpStore, sender, newTestIssuer(), testTokenConfig()),
		userRepo: userRepo,
		otpStore: otpStore,
		sender:   sender,
	}

	result := f.registerUser(t, "a@x.com", "alice", "password-123")
	ctx := context.Background()

	if _, err := healthRepo.Accumulate(ctx, result.User.ID, "2026-08-30", model.HealthData{Steps: 100}); err != nil {
		t.Fatalf("Accumulate failed: %v", err)
	}

	if err := f.usecase.RemoveAccount(ctx, result.User.ID); err != nil {
		t.Fatalf("RemoveAccount failed: %v", err)
	}

	if _, err := f.usecase.GetProfile(ctx, result.User.ID); apperror.KindOf(err) != apperror.KindNotFound {
		t.Errorf("profile after removal kind = %v, want not found", apperror.KindOf(err))
	}
	if records, _ := healthRepo.ListRange(ctx, result.User.ID, "0000-01-01", "9999-12-31"); len(records) != 0 {
		t.Error("owned health data must be removed with the account")
	}
}

func TestOtpDeliveryFailureReleasesNothing(t *testing.T) {
	f := newAuthFixture(t)
	f.sender.fail = true

	err := f.usecase.InitiateEmailVerification(context.Background(), "a@x.com")
	if apperror.KindOf(err) != apperror.KindInternal {
		t.Fatalf("kind = %v, want internal", apperror.KindOf(err))
	}
}
