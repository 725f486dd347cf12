package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// PresenceService persists online/last-seen and pushes the full status
// list to every connection after each change. The list is O(users) per
// event, which is fine at this scale.
type PresenceService interface {
	Online(ctx context.Context, userID string) error
	Offline(ctx context.Context, userID string) error
	// Statuses is the same list Broadcast sends.
	Statuses(ctx context.Context) ([]models.UserStatus, error)
	// Broadcast sends userStatusList to everyone.
	Broadcast(ctx context.Context)
}

type presenceService struct {
	userRepo repository.UserRepository
	hub      ws.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPresenceService, constructor.
func NewPresenceService(userRepo repository.UserRepository, hub ws.EventPublisher, logger *zap.Logger) PresenceService {
	return &presenceService{
		userRepo: userRepo,
		hub:      hub,
		logger:   logger.Named("presence"),
		now:      time.Now,
	}
}

func (s *presenceService) Online(ctx context.Context, userID string) error {
	return s.set(ctx, userID, true)
}

func (s *presenceService) Offline(ctx context.Context, userID string) error {
	return s.set(ctx, userID, false)
}

func (s *presenceService) set(ctx context.Context, userID string, online bool) error {
	if err := s.userRepo.UpdatePresence(ctx, userID, online, s.now()); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	s.Broadcast(ctx)
	return nil
}

func (s *presenceService) Statuses(ctx context.Context) ([]models.UserStatus, error) {
	return s.userRepo.ListStatuses(ctx)
}

func (s *presenceService) Broadcast(ctx context.Context) {
	statuses, err := s.Statuses(ctx)
	if err != nil {
		s.logger.Error("failed to list user statuses", zap.Error(err))
		return
	}
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpUserStatusList, Data: statuses})
}
