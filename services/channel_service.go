package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// ChannelService manages chat rooms. Every change is followed by a fresh
// channelList broadcast.
type ChannelService interface {
	// List returns all channels, creating the default one when none exist.
	List(ctx context.Context) ([]models.Channel, error)
	ListWithCreator(ctx context.Context) ([]models.Channel, error)
	GetByName(ctx context.Context, name string) (*models.Channel, error)
	Create(ctx context.Context, creatorID string, req *models.CreateChannelRequest) (*models.Channel, error)
	// Delete removes a channel and its history.
	Delete(ctx context.Context, id string) error
}

type channelService struct {
	channelRepo    repository.ChannelRepository
	hub            ws.EventPublisher
	defaultChannel string
	logger         *zap.Logger
}

// NewChannelService, constructor. defaultChannel is created lazily the
// first time the list is empty.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	hub ws.EventPublisher,
	defaultChannel string,
	logger *zap.Logger,
) ChannelService {
	return &channelService{
		channelRepo:    channelRepo,
		hub:            hub,
		defaultChannel: defaultChannel,
		logger:         logger.Named("channels"),
	}
}

func (s *channelService) List(ctx context.Context) ([]models.Channel, error) {
	channels, err := s.channelRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(channels) > 0 || s.defaultChannel == "" {
		return channels, nil
	}

	ch := &models.Channel{Name: s.defaultChannel}
	if err := s.channelRepo.Create(ctx, ch); err != nil && !errors.Is(err, pkg.ErrAlreadyExists) {
		return nil, fmt.Errorf("failed to create default channel: %w", err)
	}
	s.logger.Info("default channel created", zap.String("channel", s.defaultChannel))

	// A concurrent caller may have won the insert; re-read either way.
	return s.channelRepo.List(ctx)
}

func (s *channelService) ListWithCreator(ctx context.Context) ([]models.Channel, error) {
	return s.channelRepo.ListWithCreator(ctx)
}

func (s *channelService) GetByName(ctx context.Context, name string) (*models.Channel, error) {
	return s.channelRepo.GetByName(ctx, name)
}

func (s *channelService) Create(ctx context.Context, creatorID string, req *models.CreateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	ch := &models.Channel{Name: req.Name}
	if creatorID != "" {
		ch.CreatedBy = &creatorID
	}
	if err := s.channelRepo.Create(ctx, ch); err != nil {
		return nil, err
	}

	s.logger.Info("channel created", zap.String("channel", ch.Name))
	s.broadcastList(ctx)
	return ch, nil
}

func (s *channelService) Delete(ctx context.Context, id string) error {
	ch, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.channelRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("channel deleted", zap.String("channel", ch.Name))
	s.broadcastList(ctx)
	return nil
}

func (s *channelService) broadcastList(ctx context.Context) {
	channels, err := s.channelRepo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list channels for broadcast", zap.Error(err))
		return
	}
	s.hub.BroadcastToAll(ws.Event{Op: ws.OpChannelList, Data: channels})
}
