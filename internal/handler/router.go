package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/chayanin-k/walkmate-api/internal/token"
	"github.com/chayanin-k/walkmate-api/internal/usecase"
)

// RouterDeps collects everything NewRouter needs to wire the API.
type RouterDeps struct {
	Logger *zerolog.Logger
	Issuer *token.Issuer

	AuthUsecase          usecase.AuthUsecase
	SocialAuthUsecase    usecase.SocialAuthUsecase
	PasswordResetUsecase usecase.PasswordResetUsecase
	AttestationUsecase   usecase.AttestationUsecase
	HealthUsecase        usecase.HealthUsecase
}

// NewRouter builds the full API surface. Everything under /health and the
// session-bound auth routes sit behind the bearer-token middleware; the
// login and recovery flows are public.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	authHandler := NewAuthHandler(
		deps.AuthUsecase,
		deps.SocialAuthUsecase,
		deps.PasswordResetUsecase,
		deps.Logger,
	)
	healthHandler := NewHealthHandler(deps.AttestationUsecase, deps.HealthUsecase, deps.Logger)

	requireAuth := RequireAuth(deps.Issuer, deps.Logger)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/verify-email-initiate", authHandler.InitiateEmailVerification)
		r.Post("/verify-email-otp", authHandler.VerifyEmailOtp)
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)

		r.Post("/facebook", authHandler.FacebookLogin)
		r.Post("/line", authHandler.LineLogin)
		r.Post("/google", authHandler.GoogleLogin)
		r.Post("/apple", authHandler.AppleLogin)

		r.Post("/reset-password-initiate", authHandler.InitiatePasswordReset)
		r.Post("/reset-password-verify-otp", authHandler.VerifyPasswordResetOtp)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/find-username-initiate", authHandler.InitiateFindUsername)
		r.Post("/find-username-verify-otp", authHandler.VerifyFindUsernameOtp)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", authHandler.Profile)
			r.Delete("/account", authHandler.RemoveAccount)
		})
	})

	r.Route("/health", func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/attestation/nonce", healthHandler.IssueNonce)
		r.Post("/attestation/verify", healthHandler.VerifyAttestation)
		r.Post("/data", healthHandler.IngestData)
		r.Get("/data/today", healthHandler.TodayData)
		r.Get("/statistics", healthHandler.Statistics)
	})

	return r
}
