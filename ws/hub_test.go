package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type disconnectCall struct {
	ident Identity
	last  bool
}

type sendCall struct {
	connID, channel, text string
}

// recordingHandler captures every inbound event on buffered channels.
type recordingHandler struct {
	connects    chan string
	identifies  chan [2]string
	sends       chan sendCall
	joins       chan [2]string
	creates     chan [2]string
	disconnects chan disconnectCall
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		connects:    make(chan string, 16),
		identifies:  make(chan [2]string, 16),
		sends:       make(chan sendCall, 16),
		joins:       make(chan [2]string, 16),
		creates:     make(chan [2]string, 16),
		disconnects: make(chan disconnectCall, 16),
	}
}

func (h *recordingHandler) HandleConnect(_ context.Context, connID string) {
	h.connects <- connID
}

func (h *recordingHandler) HandleIdentify(_ context.Context, connID, token string) {
	h.identifies <- [2]string{connID, token}
}

func (h *recordingHandler) HandleCreateChannel(_ context.Context, connID, name string) {
	h.creates <- [2]string{connID, name}
}

func (h *recordingHandler) HandleJoinChannel(_ context.Context, connID, channel string) {
	h.joins <- [2]string{connID, channel}
}

func (h *recordingHandler) HandleSendMessage(_ context.Context, connID, channel, text string) {
	h.sends <- sendCall{connID, channel, text}
}

func (h *recordingHandler) HandleDisconnect(_ context.Context, ident Identity, last bool) {
	h.disconnects <- disconnectCall{ident, last}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		var zero T
		return zero
	}
}

func startServer(t *testing.T) (*Hub, *recordingHandler, string) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	rec := newRecordingHandler()
	hub.SetHandler(rec)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, nil).HandleConnection))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, rec, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestHeartbeatIsAcknowledged(t *testing.T) {
	_, rec, url := startServer(t)
	conn := dial(t, url)
	receive(t, rec.connects)

	require.NoError(t, conn.WriteJSON(Event{Op: OpHeartbeat}))
	assert.Equal(t, OpHeartbeatAck, readEvent(t, conn).Op)
}

func TestInboundEventsReachHandler(t *testing.T) {
	_, rec, url := startServer(t)
	conn := dial(t, url)
	connID := receive(t, rec.connects)

	require.NoError(t, conn.WriteJSON(Event{Op: OpIdentify, Data: IdentifyData{Token: "tok"}}))
	require.NoError(t, conn.WriteJSON(Event{Op: OpCreateChannel, Data: CreateChannelData{Name: "random"}}))
	require.NoError(t, conn.WriteJSON(Event{Op: OpJoinChannel, Data: JoinChannelData{Channel: "random"}}))
	require.NoError(t, conn.WriteJSON(Event{Op: OpSendMessage, Data: SendMessageData{Channel: "random", Text: "hello"}}))

	assert.Equal(t, [2]string{connID, "tok"}, receive(t, rec.identifies))
	assert.Equal(t, [2]string{connID, "random"}, receive(t, rec.creates))
	assert.Equal(t, [2]string{connID, "random"}, receive(t, rec.joins))
	assert.Equal(t, sendCall{connID, "random", "hello"}, receive(t, rec.sends))
}

func TestTokenQueryIdentifiesOnConnect(t *testing.T) {
	_, rec, url := startServer(t)
	dial(t, url+"?token=abc")
	connID := receive(t, rec.connects)

	assert.Equal(t, [2]string{connID, "abc"}, receive(t, rec.identifies))
}

func TestUnknownAndMalformedEvents(t *testing.T) {
	_, rec, url := startServer(t)
	conn := dial(t, url)
	receive(t, rec.connects)

	require.NoError(t, conn.WriteJSON(Event{Op: "dance"}))
	e := readEvent(t, conn)
	assert.Equal(t, OpErrorMessage, e.Op)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	e = readEvent(t, conn)
	assert.Equal(t, OpErrorMessage, e.Op)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"sendMessage","d":"oops"}`)))
	e = readEvent(t, conn)
	assert.Equal(t, OpErrorMessage, e.Op)
}

func TestBroadcastToChannelOnlyReachesMembers(t *testing.T) {
	hub, rec, url := startServer(t)
	inside := dial(t, url)
	insideID := receive(t, rec.connects)
	outside := dial(t, url)
	outsideID := receive(t, rec.connects)

	require.True(t, hub.Join(insideID, "General"))
	require.True(t, hub.Join(outsideID, "random"))

	hub.BroadcastToChannel("General", Event{Op: OpReceiveMessage, Data: "for general"})
	hub.SendToConn(outsideID, Event{Op: OpErrorMessage, Data: ErrorData{Message: "direct"}})

	got := readEvent(t, inside)
	assert.Equal(t, OpReceiveMessage, got.Op)
	assert.Equal(t, "for general", got.Data)

	// The first event the outsider sees is the direct one.
	assert.Equal(t, OpErrorMessage, readEvent(t, outside).Op)
}

func TestSequenceIncreases(t *testing.T) {
	hub, rec, url := startServer(t)
	conn := dial(t, url)
	receive(t, rec.connects)

	hub.BroadcastToAll(Event{Op: OpChannelList})
	hub.BroadcastToAll(Event{Op: OpChannelList})

	first := readEvent(t, conn)
	second := readEvent(t, conn)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestDisconnectReportsLastConnection(t *testing.T) {
	hub, rec, url := startServer(t)
	a := dial(t, url)
	aID := receive(t, rec.connects)
	b := dial(t, url)
	bID := receive(t, rec.connects)

	_, ok := hub.Identify(aID, "u1", "alice")
	require.True(t, ok)
	_, ok = hub.Identify(bID, "u1", "alice")
	require.True(t, ok)

	require.NoError(t, a.WriteJSON(Event{Op: OpDisconnect}))
	d := receive(t, rec.disconnects)
	assert.Equal(t, aID, d.ident.ConnID)
	assert.Equal(t, "alice", d.ident.Username)
	assert.False(t, d.last)

	b.Close()
	d = receive(t, rec.disconnects)
	assert.Equal(t, bID, d.ident.ConnID)
	assert.True(t, d.last)

	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestForceLogoutTargetsUsername(t *testing.T) {
	hub, rec, url := startServer(t)
	target := dial(t, url)
	targetID := receive(t, rec.connects)
	other := dial(t, url)
	otherID := receive(t, rec.connects)

	hub.Identify(targetID, "u1", "mallory")
	hub.Identify(otherID, "u2", "bob")

	hub.ForceLogout("mallory", "banned")
	hub.SendToConn(otherID, Event{Op: OpHeartbeatAck})

	e := readEvent(t, target)
	require.Equal(t, OpForceLogout, e.Op)
	raw, err := json.Marshal(e.Data)
	require.NoError(t, err)
	var data ForceLogoutData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, ForceLogoutData{Username: "mallory", Reason: "banned"}, data)

	assert.Equal(t, OpHeartbeatAck, readEvent(t, other).Op)
}

// The tests below drive the registry directly, without sockets.

func registerFake(hub *Hub) *Client {
	c := newClient(hub, nil)
	hub.addClient(c)
	return c
}

func TestIdentifyRebindReportsPreviousUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := registerFake(hub)

	res, ok := hub.Identify(c.id, "u1", "alice")
	require.True(t, ok)
	assert.False(t, res.Previous.Identified())

	res, ok = hub.Identify(c.id, "u2", "bob")
	require.True(t, ok)
	assert.Equal(t, "alice", res.Previous.Username)
	assert.True(t, res.PreviousLast)

	_, ok = hub.Identify("missing", "u1", "alice")
	assert.False(t, ok)
}

func TestRenameUserRebindsConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := registerFake(hub)
	b := registerFake(hub)
	hub.Identify(a.id, "u1", "alice")
	hub.Identify(b.id, "u1", "alice")

	hub.RenameUser("u1", "alicia")

	for _, c := range []*Client{a, b} {
		ident, ok := hub.Identity(c.id)
		require.True(t, ok)
		assert.Equal(t, "alicia", ident.Username)
	}
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	rec := newRecordingHandler()
	hub.SetHandler(rec)

	c := registerFake(hub)
	hub.removeClient(c)
	hub.removeClient(c)

	receive(t, rec.disconnects)
	assert.Empty(t, rec.disconnects)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub(zap.NewNop())
	rec := newRecordingHandler()
	hub.SetHandler(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := registerFake(hub)
	for i := 0; i <= sendBufferSize; i++ {
		hub.SendToConn(c.id, Event{Op: OpHeartbeatAck})
	}

	d := receive(t, rec.disconnects)
	assert.Equal(t, c.id, d.ident.ConnID)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestQueuedUnregisterReleasedByShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// Nothing drains the queue, so fill it up.
	for i := 0; i < cap(hub.unregister); i++ {
		hub.unregister <- newClient(hub, nil)
	}

	returned := make(chan struct{})
	go func() {
		hub.queueUnregister(newClient(hub, nil))
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("queueUnregister returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Shutdown()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("queueUnregister still blocked after Shutdown")
	}
}

func TestRunReturnsAfterShutdown(t *testing.T) {
	hub := NewHub(zap.NewNop())

	returned := make(chan struct{})
	go func() {
		hub.Run(context.Background())
		close(returned)
	}()

	hub.Shutdown()
	hub.Shutdown()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestConcurrentBroadcasts(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := registerFake(hub)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.BroadcastToAll(Event{Op: OpHeartbeatAck})
		}()
	}
	wg.Wait()
	assert.Len(t, c.send, 50)
}
