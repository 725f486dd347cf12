package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/config"
	"github.com/akinalp/safespace/handlers"
	"github.com/akinalp/safespace/middleware"
	"github.com/akinalp/safespace/ws"
)

// Handlers holds every HTTP handler and middleware.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Admin      *handlers.AdminHandler
	Message    *handlers.MessageHandler
	BannedWord *handlers.BannedWordHandler
	Report     *handlers.ReportHandler
	Presence   *handlers.PresenceHandler
	Avatar     *handlers.AvatarHandler
	Health     *handlers.HealthHandler
	WS         *ws.Handler

	AuthMW  *middleware.AuthMiddleware
	AdminMW *middleware.AdminMiddleware
}

func initHandlers(cfg *config.Config, svcs *Services, repos *Repositories, infra *Infra, hub *ws.Hub, logger *zap.Logger) *Handlers {
	checks := map[string]handlers.HealthCheck{
		"database": repos.Ping,
	}
	if infra.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return infra.Redis.Ping(ctx).Err()
		}
	}

	return &Handlers{
		Auth:       handlers.NewAuthHandler(svcs.Auth, infra.LoginLimiter),
		Admin:      handlers.NewAdminHandler(svcs.Admin, svcs.Channel),
		Message:    handlers.NewMessageHandler(svcs.Message),
		BannedWord: handlers.NewBannedWordHandler(svcs.BannedWord),
		Report:     handlers.NewReportHandler(svcs.Moderation),
		Presence:   handlers.NewPresenceHandler(svcs.Presence),
		Avatar:     handlers.NewAvatarHandler(svcs.Upload, cfg.Upload.MaxSize),
		Health:     handlers.NewHealthHandler(checks, hub.ConnectionCount),
		WS:         ws.NewHandler(hub, cfg.CORS.AllowedOrigins),

		AuthMW:  middleware.NewAuthMiddleware(svcs.Auth, repos.User, logger),
		AdminMW: middleware.NewAdminMiddleware(),
	}
}
