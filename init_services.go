package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akinalp/safespace/config"
	"github.com/akinalp/safespace/pkg/email"
	"github.com/akinalp/safespace/pkg/ratelimit"
	"github.com/akinalp/safespace/pkg/storage"
	"github.com/akinalp/safespace/services"
	"github.com/akinalp/safespace/ws"
)

// Login throttling: five failed attempts per fifteen minutes per
// (ip, email) pair.
const (
	loginMaxAttempts = 5
	loginWindow      = 15 * time.Minute
)

// Services holds every service instance.
type Services struct {
	Auth       services.AuthService
	Admin      services.AdminService
	Channel    services.ChannelService
	Message    services.MessageService
	Moderation services.ModerationService
	BannedWord services.BannedWordService
	Presence   services.PresenceService
	Upload     services.UploadService
	Sweeper    *services.BanSweeper
}

// Infra holds the optional external integrations.
type Infra struct {
	LoginLimiter ratelimit.Limiter
	Redis        *redis.Client // nil without REDIS_URL
	stop         []func()
}

// Close releases what initInfra opened.
func (i *Infra) Close() {
	for _, fn := range i.stop {
		fn()
	}
}

// initInfra connects the rate limiter backend.
func initInfra(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	infra := &Infra{}

	if cfg.Redis.URL == "" {
		limiter := ratelimit.NewMemoryLimiter(loginMaxAttempts, loginWindow)
		infra.LoginLimiter = limiter
		infra.stop = append(infra.stop, limiter.Stop)
		logger.Info("login limiter using memory")
		return infra, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL, logger)
	if err != nil {
		return nil, err
	}
	infra.Redis = client
	infra.LoginLimiter = ratelimit.NewRedisLimiter(client, "safespace:login:", loginMaxAttempts, loginWindow, logger)
	infra.stop = append(infra.stop, func() { _ = client.Close() })
	logger.Info("login limiter using redis")
	return infra, nil
}

func initMailer(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.Email.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, verification codes will only be logged")
		return email.NewLogSender(logger)
	}
	logger.Info("email service enabled", zap.String("from", cfg.Email.From))
	return email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
}

func initBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Upload.Backend == config.StorageS3 {
		store, err := storage.NewS3(ctx, cfg.Upload.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to init s3 storage: %w", err)
		}
		return store, nil
	}
	return storage.NewLocal(cfg.Upload.Dir, uploadsPrefix)
}

// initServices builds the service layer. Moderation comes first since the
// auth and message services depend on it.
func initServices(ctx context.Context, cfg *config.Config, repos *Repositories, hub ws.EventPublisher, logger *zap.Logger) (*Services, error) {
	store, err := initBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	moderation := services.NewModerationService(repos.User, repos.Report, repos.Tx, hub, logger)

	svcs := &Services{
		Moderation: moderation,
		Auth: services.NewAuthService(
			repos.User, repos.Tx, moderation, initMailer(cfg, logger), hub,
			cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, logger,
		),
		Admin:   services.NewAdminService(repos.User, hub, logger),
		Channel: services.NewChannelService(repos.Channel, hub, cfg.Moderation.DefaultChannel, logger),
		Message: services.NewMessageService(
			repos.User, repos.Channel, repos.Message, repos.BannedWord, moderation, hub,
			cfg.Moderation.RealtimeFilterMode, cfg.Moderation.RESTFilterMode,
			cfg.Moderation.HistoryLimit, logger,
		),
		BannedWord: services.NewBannedWordService(repos.BannedWord, logger),
		Presence:   services.NewPresenceService(repos.User, hub, logger),
		Upload:     services.NewUploadService(repos.User, store, cfg.Upload.MaxSize, logger),
	}

	if cfg.Moderation.BanSweepInterval > 0 {
		svcs.Sweeper = services.NewBanSweeper(moderation, cfg.Moderation.BanSweepInterval, logger)
	}
	return svcs, nil
}
