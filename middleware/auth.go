// Package middleware holds the http.Handler wrappers of the request
// pipeline: request logging and recovery, bearer-token authentication and
// the admin role check.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/handlers"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/services"
)

// AuthMiddleware validates the bearer token and loads the current user.
type AuthMiddleware struct {
	tokens   services.TokenValidator
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(tokens services.TokenValidator, userRepo repository.UserRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, userRepo: userRepo, logger: logger.Named("auth")}
}

// Require rejects requests without a valid "Authorization: Bearer <token>"
// header. The user is re-read from storage so a deactivated account is
// locked out even with a live token.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.userRepo.GetByID(r.Context(), claims.UserID)
		if errors.Is(err, pkg.ErrNotFound) {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
			return
		}
		if err != nil {
			m.logger.Error("failed to load token user", zap.String("user", claims.UserID), zap.Error(err))
			pkg.Error(w, err)
			return
		}
		if !user.IsActive {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "your account has been deactivated")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
