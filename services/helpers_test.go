package services

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg/filter"
	"github.com/akinalp/safespace/testutil"
	"github.com/akinalp/safespace/ws"
)

type published struct {
	target string // "all", "channel:<name>" or "conn:<id>"
	event  ws.Event
}

// fakeHub records every published event and keeps a minimal registry.
type fakeHub struct {
	mu      sync.Mutex
	events  []published
	logouts []ws.ForceLogoutData
	renames [][2]string
	conns   map[string]*ws.Identity
}

func newFakeHub() *fakeHub {
	return &fakeHub{conns: make(map[string]*ws.Identity)}
}

func (h *fakeHub) record(target string, e ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{target, e})
}

func (h *fakeHub) BroadcastToAll(e ws.Event)                { h.record("all", e) }
func (h *fakeHub) BroadcastToChannel(ch string, e ws.Event) { h.record("channel:"+ch, e) }
func (h *fakeHub) SendToConn(id string, e ws.Event)         { h.record("conn:"+id, e) }

func (h *fakeHub) ForceLogout(username, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts = append(h.logouts, ws.ForceLogoutData{Username: username, Reason: reason})
}

func (h *fakeHub) RenameUser(userID, newUsername string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renames = append(h.renames, [2]string{userID, newUsername})
	for _, c := range h.conns {
		if c.UserID == userID {
			c.Username = newUsername
		}
	}
}

func (h *fakeHub) connect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = &ws.Identity{ConnID: connID}
}

func (h *fakeHub) Identify(connID, userID, username string) (ws.IdentifyResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return ws.IdentifyResult{}, false
	}
	res := ws.IdentifyResult{Previous: *c}
	c.UserID, c.Username = userID, username

	if prev := res.Previous; prev.Identified() && prev.UserID != userID {
		res.PreviousLast = true
		for _, other := range h.conns {
			if other.UserID == prev.UserID {
				res.PreviousLast = false
			}
		}
	}
	return res, true
}

func (h *fakeHub) Join(connID, channel string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if ok {
		c.Channel = channel
	}
	return ok
}

func (h *fakeHub) Identity(connID string) (ws.Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.conns[connID]
	if !ok {
		return ws.Identity{}, false
	}
	return *c, true
}

// eventsTo returns the events published to target, in order.
func (h *fakeHub) eventsTo(target string) []ws.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []ws.Event
	for _, p := range h.events {
		if p.target == target {
			out = append(out, p.event)
		}
	}
	return out
}

func (h *fakeHub) lastTo(target string) (ws.Event, bool) {
	evs := h.eventsTo(target)
	if len(evs) == 0 {
		return ws.Event{}, false
	}
	return evs[len(evs)-1], true
}

type mail struct {
	to, username, code string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail
	err  error
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, to, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{to, username, code})
	return m.err
}

func (m *fakeMailer) last() mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// env wires every service over one SQLite test database.
type env struct {
	repos      *testutil.Repos
	hub        *fakeHub
	mailer     *fakeMailer
	moderation *moderationService
	presence   PresenceService
	channels   ChannelService
	messages   MessageService
	auth       *authService
	admin      AdminService
	words      BannedWordService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := zap.NewNop()
	repos := testutil.NewRepos(t)
	hub := newFakeHub()
	mailer := &fakeMailer{}

	mod := NewModerationService(repos.Users, repos.Reports, repos.Tx, hub, log).(*moderationService)
	auth := NewAuthService(repos.Users, repos.Tx, mod, mailer, hub, "test-secret", 60, log).(*authService)
	auth.bcryptCost = bcrypt.MinCost

	return &env{
		repos:      repos,
		hub:        hub,
		mailer:     mailer,
		moderation: mod,
		presence:   NewPresenceService(repos.Users, hub, log),
		channels:   NewChannelService(repos.Channels, hub, "General", log),
		messages: NewMessageService(repos.Users, repos.Channels, repos.Messages, repos.BannedWords,
			mod, hub, filter.ModeWholeWord, filter.ModeSubstring, 50, log),
		auth:  auth,
		admin: NewAdminService(repos.Users, hub, log),
		words: NewBannedWordService(repos.BannedWords, log),
	}
}

// hashed returns a user mutator that sets a bcrypt hash of password.
func hashed(password string) func(*models.User) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return func(u *models.User) { u.PasswordHash = string(hash) }
}
