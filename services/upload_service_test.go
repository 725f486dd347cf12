package services

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/storage"
	"github.com/akinalp/safespace/testutil"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadAvatar(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dir := t.TempDir()
	store, err := storage.NewLocal(dir, "/uploads/")
	require.NoError(t, err)
	svc := NewUploadService(e.repos.Users, store, 1024, zap.NewNop())

	u := e.repos.CreateUser(t, "alice")

	updated, err := svc.UploadAvatar(ctx, u.ID, bytes.NewReader(pngHeader), "me.png", int64(len(pngHeader)))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/avatar-[0-9a-f-]+\.png$`, updated.Avatar)
	assert.FileExists(t, filepath.Join(dir, filepath.Base(updated.Avatar)))

	stored, err := e.repos.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Avatar, stored.Avatar)
}

func TestUploadAvatarRejects(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store, err := storage.NewLocal(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	svc := NewUploadService(e.repos.Users, store, 16, zap.NewNop())
	u := e.repos.CreateUser(t, "alice")

	_, err = svc.UploadAvatar(ctx, u.ID, bytes.NewReader(make([]byte, 17)), "big.png", 17)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	text := []byte("just some text")
	_, err = svc.UploadAvatar(ctx, u.ID, bytes.NewReader(text), "evil.png", int64(len(text)))
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.UploadAvatar(ctx, u.ID, bytes.NewReader(nil), "empty.png", 0)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.UploadAvatar(ctx, "missing", bytes.NewReader(pngHeader), "me.png", int64(len(pngHeader)))
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
