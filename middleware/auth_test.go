package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/akinalp/safespace/handlers"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
)

type stubTokens struct{}

func (stubTokens) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	if token != "good" {
		return nil, pkg.ErrUnauthorized
	}
	return &models.TokenClaims{UserID: "u1"}, nil
}

// stubUsers answers GetByID only.
type stubUsers struct {
	repository.UserRepository
	user *models.User
	err  error
}

func (s stubUsers) GetByID(context.Context, string) (*models.User, error) {
	return s.user, s.err
}

func serveAuth(t *testing.T, users stubUsers, token string) (*httptest.ResponseRecorder, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	mw := NewAuthMiddleware(stubTokens{}, users, zap.New(core))

	h := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := handlers.CurrentUser(r)
		if assert.True(t, ok) {
			assert.Equal(t, "u1", user.ID)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, logs
}

func TestAuthRequire(t *testing.T) {
	active := &models.User{ID: "u1", IsActive: true}

	tests := []struct {
		name   string
		users  stubUsers
		token  string
		status int
		logged bool
	}{
		{"valid token", stubUsers{user: active}, "good", http.StatusNoContent, false},
		{"missing header", stubUsers{user: active}, "", http.StatusUnauthorized, false},
		{"bad token", stubUsers{user: active}, "bad", http.StatusUnauthorized, false},
		{"user gone", stubUsers{err: pkg.ErrNotFound}, "good", http.StatusUnauthorized, false},
		{"deactivated", stubUsers{user: &models.User{ID: "u1"}}, "good", http.StatusForbidden, false},
		{"storage failure", stubUsers{err: errors.New("disk I/O error")}, "good", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, logs := serveAuth(t, tt.users, tt.token)
			assert.Equal(t, tt.status, rr.Code)
			assert.NotContains(t, rr.Body.String(), "disk I/O")
			assert.Equal(t, tt.logged, logs.FilterMessage("failed to load token user").Len() == 1)
		})
	}
}
