package middleware

import (
	"net/http"

	"github.com/akinalp/safespace/handlers"
	"github.com/akinalp/safespace/pkg"
)

// AdminMiddleware runs after AuthMiddleware and rejects non-admins.
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(adminHandler.ListUsers)))
type AdminMiddleware struct{}

// NewAdminMiddleware, constructor.
func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

func (m *AdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := handlers.CurrentUser(r)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}
		if !user.IsAdmin() {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
