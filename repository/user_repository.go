// Package repository is the persistence boundary. Services depend on the
// interfaces declared here; sqlite_*.go and mongo_*.go provide the two
// storage engines.
//
// Every method takes a context.Context so a cancelled request also cancels
// its queries. Lookups that find nothing return pkg.ErrNotFound, unique
// violations return pkg.ErrAlreadyExists.
package repository

import (
	"context"
	"time"

	"github.com/akinalp/safespace/models"
)

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context) (int, error)

	SetVerificationCode(ctx context.Context, id string, code *string) error
	MarkVerified(ctx context.Context, id string) error
	SetApproved(ctx context.Context, id string, approved bool) error
	SetActive(ctx context.Context, id string, active bool) error

	// UpdateSuspension writes both ban fields at once. suspended=false must
	// be paired with a nil expiresAt.
	UpdateSuspension(ctx context.Context, id string, suspended bool, expiresAt *time.Time) error
	// ClearExpiredSuspensions lifts every temporary ban that expired at or
	// before now and returns how many users were cleared.
	ClearExpiredSuspensions(ctx context.Context, now time.Time) (int64, error)

	UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
	// ResetPresence marks every user offline. Called at startup since no
	// connection survives a restart.
	ResetPresence(ctx context.Context) error
	ListStatuses(ctx context.Context) ([]models.UserStatus, error)

	UpdateUsername(ctx context.Context, id, username string) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	// AvatarsByUsername resolves the current avatar of each given username.
	// Unknown usernames are absent from the result.
	AvatarsByUsername(ctx context.Context, usernames []string) (map[string]string, error)
}
