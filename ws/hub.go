package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// EventPublisher is what services use to push events to live connections.
type EventPublisher interface {
	BroadcastToAll(event Event)
	BroadcastToChannel(channel string, event Event)
	SendToConn(connID string, event Event)
	// ForceLogout tells every connection bound to username to log out.
	// Advisory only: the connection stays open and nothing is retried.
	ForceLogout(username, reason string)
	// RenameUser rebinds every connection of userID to newUsername.
	RenameUser(userID, newUsername string)
}

// SessionRegistry adds the identity and membership operations the
// realtime dispatcher needs.
type SessionRegistry interface {
	EventPublisher
	Identify(connID, userID, username string) (IdentifyResult, bool)
	Join(connID, channel string) bool
	Identity(connID string) (Identity, bool)
}

// EventHandler receives the inbound events of every connection. Calls for
// a single connection never overlap; calls for different connections do.
type EventHandler interface {
	HandleConnect(ctx context.Context, connID string)
	HandleIdentify(ctx context.Context, connID, token string)
	HandleCreateChannel(ctx context.Context, connID, name string)
	HandleJoinChannel(ctx context.Context, connID, channel string)
	HandleSendMessage(ctx context.Context, connID, channel, text string)
	// HandleDisconnect runs once per closed connection. last is true when
	// no other connection is bound to the same user.
	HandleDisconnect(ctx context.Context, ident Identity, last bool)
}

// Identity is what the registry knows about one connection.
type Identity struct {
	ConnID   string
	UserID   string
	Username string
	Channel  string
}

// Identified reports whether identify has bound a user to the connection.
func (i Identity) Identified() bool {
	return i.UserID != ""
}

// IdentifyResult describes a (re)binding.
type IdentifyResult struct {
	// Previous is the identity the connection had before this call.
	Previous Identity
	// PreviousLast is true when Previous belonged to another user and that
	// user has no connection left.
	PreviousLast bool
}

// Hub is the in-process session registry. The clients map is guarded by
// mu; every exported method is safe for concurrent use.
type Hub struct {
	clients map[string]*Client // connID -> client
	mu      sync.RWMutex

	// unregister receives clients whose send buffer overflowed during a
	// broadcast. A broadcast holds the read lock and cannot remove them
	// itself.
	unregister chan *Client
	// done is closed by Shutdown and releases pending unregister sends.
	done     chan struct{}
	doneOnce sync.Once

	seq     atomic.Int64
	handler EventHandler
	logger  *zap.Logger
}

// NewHub creates an empty Hub. SetHandler must be called before the first
// connection is accepted.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
}

// SetHandler installs the inbound event handler.
func (h *Hub) SetHandler(handler EventHandler) {
	h.handler = handler
}

// Run drains the unregister queue until ctx is cancelled, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.Shutdown()
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("client connected", zap.String("conn", client.id), zap.Int("total", total))
}

// removeClient drops a client and closes its send channel. It is
// idempotent; the disconnect handler runs only on the first call.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	client.cancel()

	ident := client.identity()
	last := ident.Identified() && !h.userConnectedLocked(ident.UserID)
	h.mu.Unlock()

	h.logger.Debug("client disconnected", zap.String("conn", client.id), zap.String("user", ident.Username))

	if h.handler != nil {
		h.handler.HandleDisconnect(context.Background(), ident, last)
	}
}

// userConnectedLocked reports whether any registered client is bound to
// userID. Caller holds mu.
func (h *Hub) userConnectedLocked(userID string) bool {
	for _, c := range h.clients {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// Identify binds connID to a user. A connection may be re-bound. It
// returns false when the connection is unknown.
func (h *Hub) Identify(connID, userID, username string) (IdentifyResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return IdentifyResult{}, false
	}

	res := IdentifyResult{Previous: client.identity()}
	client.userID = userID
	client.username = username

	if prev := res.Previous; prev.Identified() && prev.UserID != userID {
		res.PreviousLast = !h.userConnectedLocked(prev.UserID)
	}
	return res, true
}

// Join moves connID into channel, leaving whatever channel it was in.
func (h *Hub) Join(connID, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	client.channel = channel
	return true
}

// Identity returns the registry entry of connID.
func (h *Hub) Identity(connID string) (Identity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return Identity{}, false
	}
	return client.identity(), true
}

// RenameUser rebinds every connection of userID to newUsername.
func (h *Hub) RenameUser(userID, newUsername string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		if c.userID == userID {
			c.username = newUsername
		}
	}
}

// BroadcastToAll sends event to every connection.
func (h *Hub) BroadcastToAll(event Event) {
	h.broadcast(event, func(*Client) bool { return true })
}

// BroadcastToChannel sends event to the connections currently joined to
// channel.
func (h *Hub) BroadcastToChannel(channel string, event Event) {
	h.broadcast(event, func(c *Client) bool { return c.channel == channel })
}

// SendToConn sends event to one connection only.
func (h *Hub) SendToConn(connID string, event Event) {
	h.broadcast(event, func(c *Client) bool { return c.id == connID })
}

// ForceLogout sends forceLogout to every connection bound to username.
func (h *Hub) ForceLogout(username, reason string) {
	h.broadcast(Event{
		Op:   OpForceLogout,
		Data: ForceLogoutData{Username: username, Reason: reason},
	}, func(c *Client) bool { return c.username == username })

	h.logger.Info("force logout sent", zap.String("user", username), zap.String("reason", reason))
}

// broadcast marshals event once and queues it on every matching client.
// A client with a full buffer is handed to Run for removal.
func (h *Hub) broadcast(event Event, match func(*Client) bool) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !match(client) {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.logger.Warn("send buffer full, dropping connection", zap.String("conn", client.id))
			go h.queueUnregister(client)
		}
	}
}

// queueUnregister hands c to Run. It gives up once the hub is shut down,
// since Run no longer drains the queue.
func (h *Hub) queueUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection without running disconnect handlers.
func (h *Hub) Shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
		client.cancel()
	}
	h.clients = make(map[string]*Client)
	h.logger.Info("hub shut down, all connections closed")
}
