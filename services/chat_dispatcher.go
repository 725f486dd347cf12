package services

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// ChatDispatcher routes realtime events to the services. Failures are
// answered with errorMessage on the originating connection only.
type ChatDispatcher struct {
	registry ws.SessionRegistry
	tokens   TokenValidator
	userRepo repository.UserRepository
	channels ChannelService
	messages MessageService
	presence PresenceService
	logger   *zap.Logger
}

var _ ws.EventHandler = (*ChatDispatcher)(nil)

// NewChatDispatcher, constructor.
func NewChatDispatcher(
	registry ws.SessionRegistry,
	tokens TokenValidator,
	userRepo repository.UserRepository,
	channels ChannelService,
	messages MessageService,
	presence PresenceService,
	logger *zap.Logger,
) *ChatDispatcher {
	return &ChatDispatcher{
		registry: registry,
		tokens:   tokens,
		userRepo: userRepo,
		channels: channels,
		messages: messages,
		presence: presence,
		logger:   logger.Named("dispatch"),
	}
}

var errIdentifyFirst = errors.New("identify before using the chat")

// HandleConnect sends the channel list to the new connection.
func (d *ChatDispatcher) HandleConnect(ctx context.Context, connID string) {
	channels, err := d.channels.List(ctx)
	if err != nil {
		d.fail(connID, "list channels", err)
		return
	}
	d.registry.SendToConn(connID, ws.Event{Op: ws.OpChannelList, Data: channels})
}

// HandleIdentify binds the token's user to the connection and marks them
// online. Re-identifying as another user marks the previous one offline
// if this was their last connection.
func (d *ChatDispatcher) HandleIdentify(ctx context.Context, connID, token string) {
	claims, err := d.tokens.ValidateAccessToken(token)
	if err != nil {
		d.fail(connID, "identify", err)
		return
	}

	user, err := d.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			err = pkg.ErrUserNotFound
		}
		d.fail(connID, "identify", err)
		return
	}
	if !user.IsActive {
		d.registry.SendToConn(connID, ws.Event{
			Op:   ws.OpForceLogout,
			Data: ws.ForceLogoutData{Username: user.Username, Reason: "Your account has been deactivated."},
		})
		return
	}

	res, ok := d.registry.Identify(connID, user.ID, user.Username)
	if !ok {
		return
	}
	if prev := res.Previous; prev.Identified() && res.PreviousLast {
		if err := d.presence.Offline(ctx, prev.UserID); err != nil {
			d.logger.Warn("failed to mark previous user offline", zap.String("user", prev.Username), zap.Error(err))
		}
	}

	d.registry.SendToConn(connID, ws.Event{Op: ws.OpIdentified, Data: user})

	if err := d.presence.Online(ctx, user.ID); err != nil {
		d.logger.Warn("failed to mark user online", zap.String("user", user.Username), zap.Error(err))
	}
	d.logger.Debug("connection identified", zap.String("conn", connID), zap.String("user", user.Username))
}

func (d *ChatDispatcher) HandleCreateChannel(ctx context.Context, connID, name string) {
	ident, ok := d.identified(connID)
	if !ok {
		return
	}
	if _, err := d.channels.Create(ctx, ident.UserID, &models.CreateChannelRequest{Name: name}); err != nil {
		d.fail(connID, "create channel", err)
	}
}

// HandleJoinChannel moves the connection into channel and sends it the
// recent history.
func (d *ChatDispatcher) HandleJoinChannel(ctx context.Context, connID, channel string) {
	if _, ok := d.identified(connID); !ok {
		return
	}

	ch, err := d.channels.GetByName(ctx, channel)
	if err != nil {
		d.fail(connID, "join channel", err)
		return
	}

	msgs, err := d.messages.Recent(ctx, ch.Name)
	if err != nil {
		d.fail(connID, "join channel", err)
		return
	}

	if !d.registry.Join(connID, ch.Name) {
		return
	}
	d.registry.SendToConn(connID, ws.Event{
		Op:   ws.OpChannelMessages,
		Data: ws.ChannelMessagesData{Channel: ch.Name, Messages: msgs},
	})
}

func (d *ChatDispatcher) HandleSendMessage(ctx context.Context, connID, channel, text string) {
	ident, ok := d.identified(connID)
	if !ok {
		return
	}

	req := &models.SendMessageRequest{Channel: channel, Text: text}
	if _, err := d.messages.Send(ctx, ident.UserID, req, OriginRealtime); err != nil {
		d.fail(connID, "send message", err)
	}
}

// HandleDisconnect marks the user offline once their last connection is
// gone.
func (d *ChatDispatcher) HandleDisconnect(ctx context.Context, ident ws.Identity, last bool) {
	if !ident.Identified() || !last {
		return
	}
	if err := d.presence.Offline(ctx, ident.UserID); err != nil {
		d.logger.Warn("failed to mark user offline", zap.String("user", ident.Username), zap.Error(err))
	}
}

func (d *ChatDispatcher) identified(connID string) (ws.Identity, bool) {
	ident, ok := d.registry.Identity(connID)
	if !ok {
		return ws.Identity{}, false
	}
	if !ident.Identified() {
		d.sendError(connID, errIdentifyFirst.Error())
		return ws.Identity{}, false
	}
	return ident, true
}

// fail reports err to the connection. Unexpected errors are logged and
// hidden behind a generic message.
func (d *ChatDispatcher) fail(connID, action string, err error) {
	msg := err.Error()
	if pkg.StatusFor(err) == http.StatusInternalServerError {
		d.logger.Error("realtime "+action+" failed", zap.String("conn", connID), zap.Error(err))
		msg = "internal server error"
	}
	d.sendError(connID, msg)
}

func (d *ChatDispatcher) sendError(connID, msg string) {
	d.registry.SendToConn(connID, ws.Event{Op: ws.OpErrorMessage, Data: ws.ErrorData{Message: msg}})
}
