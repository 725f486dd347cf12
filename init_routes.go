package main

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/akinalp/safespace/config"
	"github.com/akinalp/safespace/middleware"
)

// uploadsPrefix is where locally stored avatars are served.
const uploadsPrefix = "/uploads/"

// initRoutes registers every endpoint and wraps the mux with CORS and
// request logging.
func initRoutes(cfg *config.Config, h *Handlers, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	authed := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMW.Require(fn)
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return h.AuthMW.Require(h.AdminMW.Require(fn))
	}

	mux.HandleFunc("GET /api/health", h.Health.Check)

	// Auth
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/verify", h.Auth.Verify)
	mux.HandleFunc("POST /api/auth/resend-code", h.Auth.ResendCode)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("GET /api/auth/me", authed(h.Auth.Me))
	mux.Handle("PUT /api/auth/update", authed(h.Auth.Update))

	// Admin
	mux.Handle("GET /api/admin/users", admin(h.Admin.ListUsers))
	mux.Handle("PUT /api/admin/users/{id}/approve", admin(h.Admin.Approve))
	mux.Handle("PUT /api/admin/users/{id}/deactivate", admin(h.Admin.Deactivate))
	mux.Handle("PUT /api/admin/users/{id}/activate", admin(h.Admin.Activate))
	mux.Handle("GET /api/admin/channels", admin(h.Admin.ListChannels))
	mux.Handle("DELETE /api/admin/channels/{id}", admin(h.Admin.DeleteChannel))
	mux.Handle("GET /api/admin/banned-words", admin(h.BannedWord.List))
	mux.Handle("POST /api/admin/banned-words", admin(h.BannedWord.Add))
	mux.Handle("DELETE /api/admin/banned-words/{id}", admin(h.BannedWord.Delete))
	mux.Handle("GET /api/admin/reports", admin(h.Report.List))
	mux.Handle("PUT /api/admin/reports/{id}/action", admin(h.Report.Action))

	mux.HandleFunc("GET /api/public/banned-words", h.BannedWord.PublicList)

	// Messages
	mux.Handle("GET /api/messages/{channel}", authed(h.Message.List))
	mux.Handle("POST /api/messages/{channel}", authed(h.Message.Send))

	mux.Handle("GET /api/users/status", authed(h.Presence.Statuses))

	mux.Handle("POST /api/upload/avatar", authed(h.Avatar.Upload))

	// Only flat file names; anything with a separator is refused.
	files := http.FileServer(http.Dir(cfg.Upload.Dir))
	mux.Handle("GET "+uploadsPrefix, http.StripPrefix(uploadsPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.ContainsAny(r.URL.Path, `/\`) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})))

	// Browsers cannot set headers on the upgrade request, so the token
	// travels in the identify event or ?token=.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})

	return middleware.RequestLogger(logger)(corsHandler.Handler(mux))
}
