package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/usecase"
)

// AuthHandler exposes the authentication flows over HTTP.
type AuthHandler struct {
	authUsecase          usecase.AuthUsecase
	socialAuthUsecase    usecase.SocialAuthUsecase
	passwordResetUsecase usecase.PasswordResetUsecase
	validator            *requestValidator
	logger               *zerolog.Logger
}

func NewAuthHandler(
	authUsecase usecase.AuthUsecase,
	socialAuthUsecase usecase.SocialAuthUsecase,
	passwordResetUsecase usecase.PasswordResetUsecase,
	logger *zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authUsecase:          authUsecase,
		socialAuthUsecase:    socialAuthUsecase,
		passwordResetUsecase: passwordResetUsecase,
		validator:            newRequestValidator(),
		logger:               logger,
	}
}

// InitiateEmailVerification sends a registration OTP to the address.
// POST /auth/verify-email-initiate
func (h *AuthHandler) InitiateEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req initiateEmailVerificationRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.authUsecase.InitiateEmailVerification(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "verification code sent"})
}

// VerifyEmailOtp trades a correct OTP for a registration token.
// POST /auth/verify-email-otp
func (h *AuthHandler) VerifyEmailOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	verificationToken, err := h.authUsecase.VerifyEmailOtp(r.Context(), req.Email, req.Otp)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationTokenResponse{VerificationToken: verificationToken})
}

// Register completes an OTP-gated registration.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:    req.Email,
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Token:    req.Token,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Login authenticates a local account by username and password.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := h.authUsecase.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Refresh rotates the token pair.
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	pair, err := h.authUsecase.RefreshTokens(r.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

// Logout clears the stored refresh token.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.authUsecase.Logout(r.Context(), userID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Profile returns the authenticated account summary.
// GET /auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	summary, err := h.authUsecase.GetProfile(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// RemoveAccount deletes the account and its owned data.
// DELETE /auth/account
func (h *AuthHandler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.authUsecase.RemoveAccount(r.Context(), userID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "account removed"})
}

// FacebookLogin signs in with a Facebook access token.
// POST /auth/facebook
func (h *AuthHandler) FacebookLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, h.socialAuthUsecase.FacebookLogin)
}

// LineLogin signs in with a Line access token.
// POST /auth/line
func (h *AuthHandler) LineLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, h.socialAuthUsecase.LineLogin)
}

// GoogleLogin signs in with a Google ID token.
// POST /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, h.socialAuthUsecase.GoogleLogin)
}

// AppleLogin signs in with an Apple identity token.
// POST /auth/apple
func (h *AuthHandler) AppleLogin(w http.ResponseWriter, r *http.Request) {
	h.socialLogin(w, r, h.socialAuthUsecase.AppleLogin)
}

func (h *AuthHandler) socialLogin(
	w http.ResponseWriter,
	r *http.Request,
	login func(ctx context.Context, providerToken string) (*usecase.AuthResult, error),
) {
	var req socialLoginRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	result, err := login(r.Context(), req.Token)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// InitiatePasswordReset sends a password-reset OTP.
// POST /auth/reset-password-initiate
func (h *AuthHandler) InitiatePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req initiateEmailVerificationRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.passwordResetUsecase.InitiatePasswordReset(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "password reset code sent"})
}

// VerifyPasswordResetOtp trades a correct OTP for a reset token.
// POST /auth/reset-password-verify-otp
func (h *AuthHandler) VerifyPasswordResetOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	verificationToken, err := h.passwordResetUsecase.VerifyPasswordResetOtp(r.Context(), req.Email, req.Otp)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, verificationTokenResponse{VerificationToken: verificationToken})
}

// ResetPassword sets a new password for a token-verified email.
// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.passwordResetUsecase.ResetPassword(r.Context(), req.Email, req.NewPassword, req.Token); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "password has been reset"})
}

// InitiateFindUsername sends a username-recovery OTP.
// POST /auth/find-username-initiate
func (h *AuthHandler) InitiateFindUsername(w http.ResponseWriter, r *http.Request) {
	var req initiateEmailVerificationRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.passwordResetUsecase.InitiateFindUsername(r.Context(), req.Email); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{Message: "username recovery code sent"})
}

// VerifyFindUsernameOtp trades a correct OTP for the stored username.
// POST /auth/find-username-verify-otp
func (h *AuthHandler) VerifyFindUsernameOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyOtpRequest
	if err := h.validator.decode(r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	username, err := h.passwordResetUsecase.VerifyFindUsernameOtp(r.Context(), req.Email, req.Otp)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, findUsernameResponse{Username: username})
}
