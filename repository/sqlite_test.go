package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/testutil"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	r := testutil.NewRepos(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	code := "123456"
	u := &models.User{
		Username:         "alice",
		Email:            "alice@example.com",
		PasswordHash:     "hash",
		VerificationCode: &code,
		Role:             models.RoleUser,
		IsActive:         true,
	}
	require.NoError(t, r.Users.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := r.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.False(t, got.IsVerified)
	require.NotNil(t, got.VerificationCode)
	assert.Equal(t, "123456", *got.VerificationCode)
	assert.Nil(t, got.LastSeen)
	assert.Nil(t, got.TempBanExpiresAt)
	assert.Equal(t, models.SuspensionClear, got.Suspension())

	_, err = r.Users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	r := testutil.NewRepos(t)
	r.CreateUser(t, "alice")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := r.Users.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "username")

	err = r.Users.Create(ctx, &models.User{Username: "other", Email: "alice@example.com", PasswordHash: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "email")
}

func TestUserRepo_Suspension(t *testing.T) {
	r := testutil.NewRepos(t)
	u := r.CreateUser(t, "bob")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	expiry := time.Now().Add(2 * time.Hour)
	require.NoError(t, r.Users.UpdateSuspension(ctx, u.ID, true, &expiry))

	got, err := r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuspensionTemporary, got.Suspension())
	require.NotNil(t, got.TempBanExpiresAt)
	assert.WithinDuration(t, expiry, *got.TempBanExpiresAt, time.Second)

	require.NoError(t, r.Users.UpdateSuspension(ctx, u.ID, true, nil))
	got, err = r.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuspensionPermanent, got.Suspension())

	assert.ErrorIs(t, r.Users.UpdateSuspension(ctx, "missing", false, nil), pkg.ErrNotFound)
}

func TestUserRepo_ClearExpiredSuspensions(t *testing.T) {
	r := testutil.NewRepos(t)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired := r.CreateUser(t, "expired", func(u *models.User) { u.IsSuspended = true; u.TempBanExpiresAt = &past })
	active := r.CreateUser(t, "active", func(u *models.User) { u.IsSuspended = true; u.TempBanExpiresAt = &future })
	perm := r.CreateUser(t, "perm", func(u *models.User) { u.IsSuspended = true })
	ctx, cancel := testutil.TestContext()
	defer cancel()

	n, err := r.Users.ClearExpiredSuspensions(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := r.Users.GetByID(ctx, expired.ID)
	assert.Equal(t, models.SuspensionClear, got.Suspension())
	got, _ = r.Users.GetByID(ctx, active.ID)
	assert.Equal(t, models.SuspensionTemporary, got.Suspension())
	got, _ = r.Users.GetByID(ctx, perm.ID)
	assert.Equal(t, models.SuspensionPermanent, got.Suspension())
}

func TestUserRepo_PresenceAndAvatars(t *testing.T) {
	r := testutil.NewRepos(t)
	alice := r.CreateUser(t, "alice", func(u *models.User) { u.Avatar = "/uploads/a.png" })
	r.CreateUser(t, "bob")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now()
	require.NoError(t, r.Users.UpdatePresence(ctx, alice.ID, true, now))

	statuses, err := r.Users.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "alice", statuses[0].Username)
	assert.True(t, statuses[0].IsOnline)
	require.NotNil(t, statuses[0].LastSeen)
	assert.False(t, statuses[1].IsOnline)

	require.NoError(t, r.Users.ResetPresence(ctx))
	statuses, err = r.Users.ListStatuses(ctx)
	require.NoError(t, err)
	assert.False(t, statuses[0].IsOnline)

	avatars, err := r.Users.AvatarsByUsername(ctx, []string{"alice", "bob", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "/uploads/a.png", "bob": ""}, avatars)
}

func TestChannelRepo_CreateListDelete(t *testing.T) {
	r := testutil.NewRepos(t)
	owner := r.CreateUser(t, "owner")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	general := &models.Channel{Name: "General"}
	require.NoError(t, r.Channels.Create(ctx, general))
	random := &models.Channel{Name: "random", CreatedBy: &owner.ID}
	require.NoError(t, r.Channels.Create(ctx, random))

	err := r.Channels.Create(ctx, &models.Channel{Name: "random"})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	list, err := r.Channels.ListWithCreator(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "General", list[0].Name)
	assert.Nil(t, list[0].Creator)
	require.NotNil(t, list[1].Creator)
	assert.Equal(t, "owner", *list[1].Creator)

	require.NoError(t, r.Messages.Create(ctx, &models.Message{Channel: "random", Username: "owner", Text: "hi"}))
	require.NoError(t, r.Channels.Delete(ctx, random.ID))

	msgs, err := r.Messages.ListAll(ctx, "random")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, r.Channels.Delete(ctx, random.ID), pkg.ErrNotFound)
}

func TestMessageRepo_RecentIsChronologicalAndBounded(t *testing.T) {
	r := testutil.NewRepos(t)
	r.CreateChannel(t, "General")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &models.Message{
			Channel:   "General",
			Username:  "alice",
			Text:      string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, r.Messages.Create(ctx, msg))
	}

	recent, err := r.Messages.ListRecent(ctx, "General", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"c", "d", "e"}, texts(recent))

	all, err := r.Messages.ListAll(ctx, "General")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, texts(all))
}

func TestMessageRepo_UnknownChannel(t *testing.T) {
	r := testutil.NewRepos(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := r.Messages.Create(ctx, &models.Message{Channel: "nowhere", Username: "a", Text: "t"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestMessageRepo_RenameAuthor(t *testing.T) {
	r := testutil.NewRepos(t)
	r.CreateChannel(t, "General")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"alice", "bob", "alice"} {
		require.NoError(t, r.Messages.Create(ctx, &models.Message{Channel: "General", Username: name, Text: "x"}))
	}

	n, err := r.Messages.RenameAuthor(ctx, "alice", "alice2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := r.Messages.ListAll(ctx, "General")
	require.NoError(t, err)
	assert.Equal(t, "alice2", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
	assert.Equal(t, "alice2", all[2].Username)
}

func TestReportRepo_CreateListUpdate(t *testing.T) {
	r := testutil.NewRepos(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first := &models.Report{Username: "bob", Message: "spam", Channel: "General", BadWord: "spam",
		CreatedAt: time.Now().Add(-time.Minute)}
	require.NoError(t, r.Reports.Create(ctx, first))
	second := &models.Report{Username: "eve", Message: "scam", Channel: "General", BadWord: "scam"}
	require.NoError(t, r.Reports.Create(ctx, second))
	assert.Equal(t, models.ReportActionNone, first.ActionTaken)

	list, err := r.Reports.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	expiry := time.Now().Add(5 * time.Hour)
	require.NoError(t, r.Reports.UpdateAction(ctx, first.ID, models.ReportActionTempBan, &expiry))

	got, err := r.Reports.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionTempBan, got.ActionTaken)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, expiry, *got.ExpiresAt, time.Second)

	byUser, err := r.Reports.ListByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)

	assert.ErrorIs(t, r.Reports.UpdateAction(ctx, "missing", models.ReportActionNone, nil), pkg.ErrNotFound)
}

func TestBannedWordRepo(t *testing.T) {
	r := testutil.NewRepos(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	spam := &models.BannedWord{Word: "spam"}
	require.NoError(t, r.BannedWords.Create(ctx, spam))
	require.NoError(t, r.BannedWords.Create(ctx, &models.BannedWord{Word: "scam"}))
	assert.ErrorIs(t, r.BannedWords.Create(ctx, &models.BannedWord{Word: "spam"}), pkg.ErrAlreadyExists)

	words, err := r.BannedWords.Words(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"spam", "scam"}, words)

	require.NoError(t, r.BannedWords.Delete(ctx, spam.ID))
	assert.ErrorIs(t, r.BannedWords.Delete(ctx, spam.ID), pkg.ErrNotFound)
}

func TestSQLiteTransactor_RollsBackOnError(t *testing.T) {
	r := testutil.NewRepos(t)
	bob := r.CreateUser(t, "bob")
	rep := &models.Report{Username: "bob", Message: "spam", Channel: "General", BadWord: "spam"}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, r.Reports.Create(ctx, rep))

	boom := errors.New("boom")
	err := r.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.TxRepos) error {
		if err := tx.Users.UpdateSuspension(ctx, bob.ID, true, nil); err != nil {
			return err
		}
		if err := tx.Reports.UpdateAction(ctx, rep.ID, models.ReportActionBanned, nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	gotUser, err := r.Users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, gotUser.IsSuspended)

	gotRep, err := r.Reports.GetByID(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActionNone, gotRep.ActionTaken)
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
