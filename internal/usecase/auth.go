package usecase

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/config"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/repository"
	"github.com/chayanin-k/walkmate-api/internal/security"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

// OtpSender delivers one-time codes. Delivery failure is a hard failure
// of the initiating step, never silently swallowed.
type OtpSender interface {
	SendOtpEmail(to, code string) error
	SendPasswordResetOtpEmail(to, code string) error
	SendFindUsernameOtpEmail(to, code string) error
}

// UserSummary is the client-facing view of an account.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// AuthResult is returned by every flow that ends in an authenticated
// session.
type AuthResult struct {
	User         UserSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// RegisterParams defines the parameters for completing a registration.
type RegisterParams struct {
	Email    string
	Username string
	Name     string
	Password string
	Token    string
}

// AuthUsecase drives the local authentication flows: OTP-gated
// registration, login, logout, refresh rotation, profile and account
// removal.
type AuthUsecase interface {
	InitiateEmailVerification(ctx context.Context, email string) error
	VerifyEmailOtp(ctx context.Context, email, otp string) (string, error)
	Register(ctx context.Context, params RegisterParams) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	RefreshTokens(ctx context.Context, userID, refreshToken string) (*token.Pair, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*UserSummary, error)
	RemoveAccount(ctx context.Context, userID string) error
}

type authUsecase struct {
	userRepo   repository.UserRepository
	healthRepo repository.HealthDataRepository
	otpStore   repository.OtpStore
	sender     OtpSender
	issuer     *token.Issuer
	tokenCfg   config.TokenConfig
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	healthRepo repository.HealthDataRepository,
	otpStore repository.OtpStore,
	sender OtpSender,
	issuer *token.Issuer,
	tokenCfg config.TokenConfig,
) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		healthRepo: healthRepo,
		otpStore:   otpStore,
		sender:     sender,
		issuer:     issuer,
		tokenCfg:   tokenCfg,
	}
}

func (u *authUsecase) InitiateEmailVerification(ctx context.Context, email string) error {
	_, err := u.userRepo.GetUserByEmail(ctx, email)
	if err == nil {
		return apperror.Conflict("email already exists")
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	return sendOtp(ctx, u.otpStore, repository.OtpPurposeRegistration, email, u.sender.SendOtpEmail)
}

func (u *authUsecase) VerifyEmailOtp(ctx context.Context, email, otp string) (string, error) {
	return verifyOtp(ctx, u.otpStore, u.issuer, repository.OtpPurposeRegistration, email, otp)
}

// Register completes the registration flow with a verified email token.
// Unexpected failures are reported as a bare "registration failed" so
// internal detail never reaches the client; business-rule violations pass
// through verbatim.
func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	result, err := u.register(ctx, params)
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindConflict, apperror.KindBadRequest, apperror.KindUnauthorized:
			return nil, err
		default:
			return nil, &apperror.Error{
				Kind:    apperror.KindUnauthorized,
				Message: "registration failed",
				Err:     err,
			}
		}
	}

	return result, nil
}

func (u *authUsecase) register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := u.issuer.VerifyEmailVerificationToken(params.Token, params.Email); err != nil {
		return nil, apperror.Unauthorized("invalid or expired verification token")
	}

	// Re-check for a race with another registration since the OTP step.
	if _, err := u.userRepo.GetUserByEmail(ctx, params.Email); err == nil {
		return nil, apperror.Conflict("email already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if _, err := u.userRepo.GetUserByUsername(ctx, params.Username); err == nil {
		return nil, apperror.Conflict("username already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        params.Email,
		Username:     params.Username,
		Name:         params.Name,
		PasswordHash: passwordHash,
		Provider:     model.ProviderLocal,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("email or username already exists")
		}
		return nil, err
	}

	return createAuthSession(ctx, u.userRepo, u.issuer, user)
}

func (u *authUsecase) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := u.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !security.VerifyPassword(password, user.PasswordHash) {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	return createAuthSession(ctx, u.userRepo, u.issuer, user)
}

// RefreshTokens rotates the session: a valid refresh token yields a new
// access token and a new refresh token, and the stored hash is replaced.
// The expired/invalid distinction is surfaced so the client can tell the
// user to log in again instead of reporting a bogus token.
func (u *authUsecase) RefreshTokens(ctx context.Context, userID, refreshToken string) (*token.Pair, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, err
	}

	if user.RefreshTokenHash == "" || user.RefreshTokenIssuedAt == nil {
		return nil, apperror.Unauthorized("no active session, please log in")
	}

	status := security.ValidateRefreshToken(
		refreshToken,
		user.RefreshTokenHash,
		*user.RefreshTokenIssuedAt,
		u.tokenCfg.RefreshTokenExpirationInSec,
	)

	switch status {
	case security.RefreshTokenExpired:
		return nil, apperror.Unauthorized("refresh token expired, please log in again")
	case security.RefreshTokenInvalid:
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	pair, err := u.issuer.IssueAuthTokenPair(user.ID.Hex())
	if err != nil {
		return nil, err
	}

	if err := storeRefreshToken(ctx, u.userRepo, user.ID.Hex(), pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}

func (u *authUsecase) Logout(ctx context.Context, userID string) error {
	err := u.userRepo.ClearRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("user not found")
		}
		return err
	}

	return nil
}

func (u *authUsecase) GetProfile(ctx context.Context, userID string) (*UserSummary, error) {
	user, err := u.userRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}

	summary := summarize(user)
	return &summary, nil
}

func (u *authUsecase) RemoveAccount(ctx context.Context, userID string) error {
	if err := u.userRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("user not found")
		}
		return apperror.Internal("failed to remove account", err)
	}

	if u.healthRepo != nil {
		if err := u.healthRepo.DeleteByUser(ctx, userID); err != nil {
			return apperror.Internal("failed to remove account data", err)
		}
	}

	return nil
}

func summarize(user *model.User) UserSummary {
	return UserSummary{
		ID:       user.ID.Hex(),
		Username: user.Username,
		Email:    user.Email,
		Name:     user.Name,
	}
}
