package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent. Clients send a
	// heartbeat every 30s; three missed beats drop the connection.
	pongWait = 90 * time.Second

	// maxMessageSize caps one inbound frame. A 2000-character message is
	// at most 8000 bytes of UTF-8 plus the envelope.
	maxMessageSize = 16 * 1024

	// sendBufferSize is the per-client outbound queue. A client that lets
	// it fill up is disconnected.
	sendBufferSize = 256
)

// Client is one WebSocket connection. ReadPump and WritePump run in their
// own goroutines because gorilla/websocket allows one concurrent reader
// and one concurrent writer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	// Guarded by hub.mu.
	userID   string
	username string
	channel  string

	send chan []byte
	mu   sync.Mutex // serializes conn writes

	// ctx lives as long as the connection and is passed to the handler.
	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		id:     uuid.NewString(),
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// identity snapshots the registry fields. Caller holds hub.mu.
func (c *Client) identity() Identity {
	return Identity{ConnID: c.id, UserID: c.userID, Username: c.username, Channel: c.channel}
}

// ReadPump reads frames until the connection fails or the client asks to
// disconnect, then unregisters the client. Events are handled in arrival
// order, one at a time.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	resetDeadline := func() error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	if err := resetDeadline(); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error { return resetDeadline() })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("unexpected close", zap.String("conn", c.id), zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.SendToConn(c.id, Event{Op: OpErrorMessage, Data: ErrorData{Message: "malformed event"}})
			continue
		}

		if event.Op == OpDisconnect {
			return
		}
		if event.Op == OpHeartbeat {
			if err := resetDeadline(); err != nil {
				return
			}
		}
		c.handleEvent(event)
	}
}

// handleEvent decodes the payload of event and forwards it to the hub's
// handler.
func (c *Client) handleEvent(event Event) {
	h := c.hub.handler

	switch event.Op {
	case OpHeartbeat:
		c.hub.SendToConn(c.id, Event{Op: OpHeartbeatAck})

	case OpIdentify:
		var data IdentifyData
		if c.decode(event, &data) {
			h.HandleIdentify(c.ctx, c.id, data.Token)
		}

	case OpCreateChannel:
		var data CreateChannelData
		if c.decode(event, &data) {
			h.HandleCreateChannel(c.ctx, c.id, data.Name)
		}

	case OpJoinChannel:
		var data JoinChannelData
		if c.decode(event, &data) {
			h.HandleJoinChannel(c.ctx, c.id, data.Channel)
		}

	case OpSendMessage:
		var data SendMessageData
		if c.decode(event, &data) {
			h.HandleSendMessage(c.ctx, c.id, data.Channel, data.Text)
		}

	default:
		c.hub.logger.Debug("unknown op", zap.String("conn", c.id), zap.String("op", event.Op))
		c.hub.SendToConn(c.id, Event{Op: OpErrorMessage, Data: ErrorData{Message: "unknown event " + event.Op}})
	}
}

// decode converts event.Data (decoded as a generic value) into dst.
// A malformed payload is answered with errorMessage.
func (c *Client) decode(event Event, dst any) bool {
	raw, err := json.Marshal(event.Data)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		c.hub.SendToConn(c.id, Event{Op: OpErrorMessage, Data: ErrorData{Message: "malformed " + event.Op + " payload"}})
		return false
	}
	return true
}

// WritePump drains the send channel onto the connection. It exits when the
// hub closes the channel or a write fails.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
