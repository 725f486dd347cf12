// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/repository"
)

// NewSQLiteDB opens a fresh SQLite file under t.TempDir with every
// embedded migration applied. The database is closed when the test ends.
func NewSQLiteDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), database.Migrations(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Repos bundles the SQLite repositories over one test database.
type Repos struct {
	DB          *database.DB
	Users       repository.UserRepository
	Channels    repository.ChannelRepository
	Messages    repository.MessageRepository
	Reports     repository.ReportRepository
	BannedWords repository.BannedWordRepository
	Tx          repository.Transactor
}

// NewRepos opens a test database and builds every repository on it.
func NewRepos(t *testing.T) *Repos {
	t.Helper()

	db := NewSQLiteDB(t)
	return &Repos{
		DB:          db,
		Users:       repository.NewSQLiteUserRepo(db.Conn),
		Channels:    repository.NewSQLiteChannelRepo(db.Conn),
		Messages:    repository.NewSQLiteMessageRepo(db.Conn),
		Reports:     repository.NewSQLiteReportRepo(db.Conn),
		BannedWords: repository.NewSQLiteBannedWordRepo(db.Conn),
		Tx:          repository.NewSQLiteTransactor(db.Conn),
	}
}

// TestContext returns a context that times out after five seconds.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// CreateUser inserts an active, verified, approved standard user.
// mutate may adjust the record before it is stored.
func (r *Repos) CreateUser(t *testing.T, username string, mutate ...func(*models.User)) *models.User {
	t.Helper()

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsVerified:   true,
		IsApproved:   true,
		IsActive:     true,
		Role:         models.RoleUser,
	}
	for _, m := range mutate {
		m(u)
	}

	ctx, cancel := TestContext()
	defer cancel()

	if err := r.Users.Create(ctx, u); err != nil {
		t.Fatalf("failed to create test user %s: %v", username, err)
	}
	if u.IsSuspended {
		if err := r.Users.UpdateSuspension(ctx, u.ID, true, u.TempBanExpiresAt); err != nil {
			t.Fatalf("failed to suspend test user %s: %v", username, err)
		}
	}
	return u
}

// CreateChannel inserts a channel with no creator.
func (r *Repos) CreateChannel(t *testing.T, name string) *models.Channel {
	t.Helper()

	ctx, cancel := TestContext()
	defer cancel()

	ch := &models.Channel{Name: name}
	if err := r.Channels.Create(ctx, ch); err != nil {
		t.Fatalf("failed to create test channel %s: %v", name, err)
	}
	return ch
}

// BanWords adds each word to the banned list.
func (r *Repos) BanWords(t *testing.T, words ...string) {
	t.Helper()

	ctx, cancel := TestContext()
	defer cancel()

	for _, w := range words {
		if err := r.BannedWords.Create(ctx, &models.BannedWord{Word: w}); err != nil {
			t.Fatalf("failed to ban word %s: %v", w, err)
		}
	}
}
