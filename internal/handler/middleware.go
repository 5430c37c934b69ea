package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/token"
)

type contextKey string

// userIDKey carries the authenticated user id through the request context.
const userIDKey contextKey = "userID"

// RequireAuth verifies the bearer access token and stores its subject in
// the request context.
func RequireAuth(issuer *token.Issuer, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorization := r.Header.Get("Authorization")
			if authorization == "" {
				respondError(w, logger, apperror.Unauthorized("authorization header is required"))
				return
			}

			tokenStr, ok := strings.CutPrefix(authorization, "Bearer ")
			if !ok || tokenStr == "" {
				respondError(w, logger, apperror.Unauthorized("authorization header must be a bearer token"))
				return
			}

			userID, err := issuer.VerifyAccessToken(tokenStr)
			if err != nil {
				respondError(w, logger, apperror.Unauthorized("invalid or expired access token"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// userIDFromContext returns the authenticated user id set by RequireAuth.
func userIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
