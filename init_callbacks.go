package main

import (
	"go.uber.org/zap"

	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/services"
	"github.com/akinalp/safespace/ws"
)

// registerHubHandler routes inbound realtime events to the chat
// dispatcher. Must run before hub.Run.
func registerHubHandler(hub *ws.Hub, svcs *Services, userRepo repository.UserRepository, logger *zap.Logger) {
	dispatcher := services.NewChatDispatcher(
		hub, svcs.Auth, userRepo, svcs.Channel, svcs.Message, svcs.Presence, logger,
	)
	hub.SetHandler(dispatcher)
}
