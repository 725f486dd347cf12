package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BanSweeper periodically lifts expired temporary bans so storage does not
// keep showing users as suspended until their next login or send.
type BanSweeper struct {
	moderation ModerationService
	interval   time.Duration
	logger     *zap.Logger
}

// NewBanSweeper, constructor.
func NewBanSweeper(moderation ModerationService, interval time.Duration, logger *zap.Logger) *BanSweeper {
	return &BanSweeper{
		moderation: moderation,
		interval:   interval,
		logger:     logger.Named("ban_sweeper"),
	}
}

// Run sweeps every interval until ctx is done.
func (b *BanSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("ban sweeper started", zap.Duration("interval", b.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := b.moderation.SweepExpiredBans(ctx); err != nil && ctx.Err() == nil {
				b.logger.Error("ban sweep failed", zap.Error(err))
			}
		}
	}
}
