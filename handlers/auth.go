// Package handlers translates HTTP requests into service calls. Handlers
// decode the body, call one service method and write the envelope; rules
// live in services.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/ratelimit"
	"github.com/akinalp/safespace/services"
)

type contextKey string

// UserContextKey carries the authenticated *models.User. Set by
// middleware.AuthMiddleware.
const UserContextKey contextKey = "user"

// CurrentUser returns the user AuthMiddleware stored on r.
func CurrentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter ratelimit.Limiter
}

// NewAuthHandler, constructor. A nil loginLimiter disables throttling.
func NewAuthHandler(authService services.AuthService, loginLimiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{authService: authService, loginLimiter: loginLimiter}
}

// Register godoc
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	message := "verification code sent to your email"
	if user.IsAdmin() {
		message = "admin account created"
	}
	pkg.JSON(w, http.StatusCreated, map[string]any{"message": message, "user": user})
}

// Verify godoc
// POST /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.Verify(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "email verified, waiting for admin approval"})
}

// ResendCode godoc
// POST /api/auth/resend-code
func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req models.ResendCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ResendCode(r.Context(), req.Email); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "verification code resent"})
}

// Login godoc
// POST /api/auth/login
//
// Attempts are counted per client IP and email. A successful login resets
// the counter.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key := ratelimit.ExtractIP(r) + "|" + req.Email
	if h.loginLimiter != nil && !h.loginLimiter.Allow(r.Context(), key) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(r.Context(), key)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s", ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(r.Context(), key)
	}
	pkg.JSON(w, http.StatusOK, resp)
}

// Me godoc
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// Update godoc
// PUT /api/auth/update
func (h *AuthHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.authService.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, updated)
}
