package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/filter"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// Origin tells the pipeline which surface a message arrived on. Each
// surface has its own filter mode.
type Origin int

const (
	OriginRealtime Origin = iota
	OriginREST
)

// MessageService runs the send pipeline and serves channel history.
type MessageService interface {
	// Send checks the sender's ban state, filters the text, files a report
	// on a match, stores the redacted message and broadcasts it to the
	// channel. A suspended sender gets pkg.ErrBanned and nothing is stored.
	Send(ctx context.Context, senderID string, req *models.SendMessageRequest, origin Origin) (*models.SendResult, error)
	// Recent returns the newest messages of a channel, oldest first.
	Recent(ctx context.Context, channel string) ([]models.Message, error)
	// History returns every message of a channel, oldest first.
	History(ctx context.Context, channel string) ([]models.Message, error)
}

type messageService struct {
	userRepo       repository.UserRepository
	channelRepo    repository.ChannelRepository
	messageRepo    repository.MessageRepository
	bannedWordRepo repository.BannedWordRepository
	moderation     ModerationService
	hub            ws.EventPublisher
	realtime       *filter.Filter
	rest           *filter.Filter
	historyLimit   int
	logger         *zap.Logger
}

// NewMessageService, constructor.
func NewMessageService(
	userRepo repository.UserRepository,
	channelRepo repository.ChannelRepository,
	messageRepo repository.MessageRepository,
	bannedWordRepo repository.BannedWordRepository,
	moderation ModerationService,
	hub ws.EventPublisher,
	realtimeMode, restMode filter.Mode,
	historyLimit int,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		userRepo:       userRepo,
		channelRepo:    channelRepo,
		messageRepo:    messageRepo,
		bannedWordRepo: bannedWordRepo,
		moderation:     moderation,
		hub:            hub,
		realtime:       filter.New(realtimeMode),
		rest:           filter.New(restMode),
		historyLimit:   historyLimit,
		logger:         logger.Named("messages"),
	}
}

func (s *messageService) Send(ctx context.Context, senderID string, req *models.SendMessageRequest, origin Origin) (*models.SendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Ban state can change while a session is open, so the sender is
	// always read fresh.
	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrUserNotFound
		}
		return nil, err
	}
	if !sender.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", pkg.ErrForbidden)
	}

	allowed, err := s.moderation.CanSend(ctx, sender)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Info("blocked message from suspended user", zap.String("user", sender.Username))
		return nil, pkg.ErrBanned
	}

	if _, err := s.channelRepo.GetByName(ctx, req.Channel); err != nil {
		return nil, err
	}

	// Admins edit the list at any time; no caching across sends.
	words, err := s.bannedWordRepo.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load banned words: %w", err)
	}

	f := s.realtime
	if origin == OriginREST {
		f = s.rest
	}
	res := f.Apply(req.Text, words)

	if res.Found() {
		// Best effort: a failed report must not block the message.
		if _, err := s.moderation.RecordViolation(ctx, sender.Username, req.Channel, req.Text, res.Matched); err != nil {
			s.logger.Error("failed to record violation",
				zap.String("user", sender.Username),
				zap.String("word", res.Matched),
				zap.Error(err),
			)
		}
	}

	msg := &models.Message{
		Channel:  req.Channel,
		Username: sender.Username,
		Text:     res.Text,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	msg.Avatar = sender.Avatar

	s.hub.BroadcastToChannel(msg.Channel, ws.Event{Op: ws.OpReceiveMessage, Data: msg})

	return &models.SendResult{Message: msg, BannedDetected: res.Found()}, nil
}

func (s *messageService) Recent(ctx context.Context, channel string) ([]models.Message, error) {
	msgs, err := s.messageRepo.ListRecent(ctx, channel, s.historyLimit)
	if err != nil {
		return nil, err
	}
	return s.withAvatars(ctx, msgs)
}

func (s *messageService) History(ctx context.Context, channel string) ([]models.Message, error) {
	if _, err := s.channelRepo.GetByName(ctx, channel); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.ListAll(ctx, channel)
	if err != nil {
		return nil, err
	}
	return s.withAvatars(ctx, msgs)
}

// withAvatars resolves each author's current avatar, so avatar changes
// show up in old messages too.
func (s *messageService) withAvatars(ctx context.Context, msgs []models.Message) ([]models.Message, error) {
	if len(msgs) == 0 {
		return []models.Message{}, nil
	}

	seen := make(map[string]struct{}, len(msgs))
	names := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.Username]; !ok {
			seen[m.Username] = struct{}{}
			names = append(names, m.Username)
		}
	}

	avatars, err := s.userRepo.AvatarsByUsername(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve avatars: %w", err)
	}
	for i := range msgs {
		msgs[i].Avatar = avatars[msgs[i].Username]
	}
	return msgs, nil
}
