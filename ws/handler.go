package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades HTTP requests on /ws into hub clients.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler builds a Handler. allowedOrigins lists browser origins that
// may open a connection; "*" allows any. Requests without an Origin
// header (non-browser clients) are always accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// HandleConnection upgrades the request, registers the client and blocks
// in ReadPump until the connection closes.
//
// Authentication is a separate step: the client sends identify with its
// token. A token in the ?token= query parameter identifies immediately.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn)
	h.hub.addClient(client)

	go client.WritePump()

	h.hub.handler.HandleConnect(client.ctx, client.id)
	if token := r.URL.Query().Get("token"); token != "" {
		h.hub.handler.HandleIdentify(client.ctx, client.id, token)
	}

	client.ReadPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		// Same-origin requests are always fine.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
