package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/testutil"
)

func tempBanned(until time.Time) func(*models.User) {
	return func(u *models.User) {
		u.IsSuspended = true
		u.TempBanExpiresAt = &until
	}
}

func permanentlyBanned(u *models.User) {
	u.IsSuspended = true
}

func TestCanSendLiftsExpiredBan(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "carol", tempBanned(time.Now().Add(-time.Minute)))

	allowed, err := e.moderation.CanSend(ctx, u)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, u.IsSuspended)
	assert.Nil(t, u.TempBanExpiresAt)

	stored, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSuspended)
	assert.Nil(t, stored.TempBanExpiresAt)

	lifted, err := e.moderation.LiftExpiredBan(ctx, stored)
	require.NoError(t, err)
	assert.False(t, lifted, "second check is a no-op")
}

func TestExpiredBanStaysStoredUntilChecked(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expiry := time.Now().Add(-time.Hour)
	u := e.repos.CreateUser(t, "dave", tempBanned(expiry))

	// No timer lifts the ban; storage keeps it until something checks.
	stored, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuspended)
	require.NotNil(t, stored.TempBanExpiresAt)
	assert.WithinDuration(t, expiry, *stored.TempBanExpiresAt, time.Second)

	allowed, err := e.moderation.CanSend(ctx, stored)
	require.NoError(t, err)
	assert.True(t, allowed)

	stored, err = e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSuspended)
	assert.Nil(t, stored.TempBanExpiresAt)
}

func TestApplyTempBanAtCap(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "erin")
	r := fileReport(t, e, "erin")

	before := time.Now()
	report, err := e.moderation.ApplyAdminAction(ctx, r.ID, models.AdminActionTempBan, MaxTempBanHours)
	require.NoError(t, err)
	require.NotNil(t, report.ExpiresAt)
	assert.True(t, report.ExpiresAt.After(before.Add(99*365*24*time.Hour)))

	stored, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	allowed, err := e.moderation.CanSend(ctx, stored)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanSendBlocksActiveBans(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	temp := e.repos.CreateUser(t, "dave", tempBanned(time.Now().Add(time.Hour)))
	perm := e.repos.CreateUser(t, "erin", permanentlyBanned)
	clear := e.repos.CreateUser(t, "frank")

	for _, tc := range []struct {
		user    *models.User
		allowed bool
	}{
		{temp, false},
		{perm, false},
		{clear, true},
	} {
		allowed, err := e.moderation.CanSend(ctx, tc.user)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed, tc.user.Username)
	}

	stored, err := e.repos.Users.GetByID(ctx, temp.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSuspended, "active ban is untouched")
}

func fileReport(t *testing.T, e *env, username string) *models.Report {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	r, err := e.moderation.RecordViolation(ctx, username, "General", "this is spam", "spam")
	require.NoError(t, err)
	return r
}

func TestApplyTempBan(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "bob")
	r := fileReport(t, e, "bob")

	updated, err := e.moderation.ApplyAdminAction(ctx, r.ID, models.AdminActionTempBan, 5)
	require.NoError(t, err)

	want := time.Now().Add(5 * time.Hour)
	assert.Equal(t, models.ReportActionTempBan, updated.ActionTaken)
	require.NotNil(t, updated.ExpiresAt)
	assert.WithinDuration(t, want, *updated.ExpiresAt, 5*time.Second)

	user, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, user.IsSuspended)
	require.NotNil(t, user.TempBanExpiresAt)
	assert.WithinDuration(t, want, *user.TempBanExpiresAt, 5*time.Second)

	stored, err := e.repos.Reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionTempBan, stored.ActionTaken)
	require.NotNil(t, stored.ExpiresAt)
	assert.WithinDuration(t, *user.TempBanExpiresAt, *stored.ExpiresAt, time.Second)

	require.Len(t, e.hub.logouts, 1)
	assert.Equal(t, "bob", e.hub.logouts[0].Username)
}

func TestApplyPermanentBan(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "bob")
	r := fileReport(t, e, "bob")

	updated, err := e.moderation.ApplyAdminAction(ctx, r.ID, models.AdminActionPermanentBan, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionBanned, updated.ActionTaken)
	assert.Nil(t, updated.ExpiresAt)

	user, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, user.IsSuspended)
	assert.Nil(t, user.TempBanExpiresAt)

	require.Len(t, e.hub.logouts, 1)
	assert.Equal(t, "bob", e.hub.logouts[0].Username)
}

func TestApplyUnban(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "bob", tempBanned(time.Now().Add(time.Hour)))
	r := fileReport(t, e, "bob")

	updated, err := e.moderation.ApplyAdminAction(ctx, r.ID, models.AdminActionUnban, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionNone, updated.ActionTaken)

	user, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, user.IsSuspended)
	assert.Nil(t, user.TempBanExpiresAt)
	assert.Empty(t, e.hub.logouts, "unban sends no logout")
}

func TestApplyAdminActionRejectsWithoutMutation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "bob")
	r := fileReport(t, e, "bob")

	tests := []struct {
		name   string
		action models.AdminAction
		hours  float64
		err    error
	}{
		{"unknown action", "shadow-ban", 0, pkg.ErrInvalidAction},
		{"empty action", "", 0, pkg.ErrInvalidAction},
		{"zero hours", models.AdminActionTempBan, 0, pkg.ErrInvalidDuration},
		{"negative hours", models.AdminActionTempBan, -3, pkg.ErrInvalidDuration},
		{"nan hours", models.AdminActionTempBan, math.NaN(), pkg.ErrInvalidDuration},
		{"infinite hours", models.AdminActionTempBan, math.Inf(1), pkg.ErrInvalidDuration},
		{"hours beyond cap", models.AdminActionTempBan, MaxTempBanHours + 1, pkg.ErrInvalidDuration},
		{"hours overflowing duration", models.AdminActionTempBan, 3_000_000, pkg.ErrInvalidDuration},
		{"hours rounding to nothing", models.AdminActionTempBan, 1e-20, pkg.ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.moderation.ApplyAdminAction(ctx, r.ID, tt.action, tt.hours)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	user, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, user.IsSuspended)

	stored, err := e.repos.Reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionNone, stored.ActionTaken)
	assert.Empty(t, e.hub.logouts)
}

func TestApplyAdminActionMissingTargets(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := e.moderation.ApplyAdminAction(ctx, "nope", models.AdminActionPermanentBan, 0)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	r := fileReport(t, e, "ghost")
	_, err = e.moderation.ApplyAdminAction(ctx, r.ID, models.AdminActionPermanentBan, 0)
	assert.ErrorIs(t, err, pkg.ErrUserNotFound)

	stored, err := e.repos.Reports.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionNone, stored.ActionTaken)
}

func TestListReportsNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := fileReport(t, e, "a")
	second := fileReport(t, e, "b")

	reports, err := e.moderation.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.ID, reports[0].ID)
	assert.Equal(t, first.ID, reports[1].ID)
}

func TestSweepExpiredBans(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expired := e.repos.CreateUser(t, "old", tempBanned(time.Now().Add(-time.Hour)))
	active := e.repos.CreateUser(t, "new", tempBanned(time.Now().Add(time.Hour)))
	perm := e.repos.CreateUser(t, "perm", permanentlyBanned)

	n, err := e.moderation.SweepExpiredBans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, tc := range []struct {
		id        string
		suspended bool
	}{{expired.ID, false}, {active.ID, true}, {perm.ID, true}} {
		u, err := e.repos.Users.GetByID(ctx, tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.suspended, u.IsSuspended, u.Username)
	}
}
