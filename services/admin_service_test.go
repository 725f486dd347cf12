package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/testutil"
)

func TestAdminUserLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.repos.CreateUser(t, "alice", hashed("pw"), func(u *models.User) { u.IsApproved = false })

	_, err := login(t, e, "alice@example.com", "pw")
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	approved, err := e.admin.Approve(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	_, err = login(t, e, "alice@example.com", "pw")
	require.NoError(t, err)

	deactivated, err := e.admin.Deactivate(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
	require.Len(t, e.hub.logouts, 1)
	assert.Equal(t, "alice", e.hub.logouts[0].Username)

	_, err = login(t, e, "alice@example.com", "pw")
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	activated, err := e.admin.Activate(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	users, err := e.admin.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAdminUnknownUser(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := e.admin.Approve(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	_, err = e.admin.Deactivate(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Empty(t, e.hub.logouts)
}

func TestBannedWordService(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	w, err := e.words.Add(ctx, &models.AddBannedWordRequest{Word: "  SPAM "})
	require.NoError(t, err)
	assert.Equal(t, "spam", w.Word)

	_, err = e.words.Add(ctx, &models.AddBannedWordRequest{Word: "Spam"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = e.words.Add(ctx, &models.AddBannedWordRequest{Word: "   "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	list, err := e.words.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, e.words.Delete(ctx, w.ID))
	assert.ErrorIs(t, e.words.Delete(ctx, w.ID), pkg.ErrNotFound)
}
