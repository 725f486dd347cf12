package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/safespace/config"
)

func TestLocalPut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocal(dir, "/uploads")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "a.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocalPutRejectsPaths(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	for _, key := range []string{"../x.png", "sub/x.png", ".."} {
		_, err := store.Put(context.Background(), key, strings.NewReader(""), 0, "image/png")
		assert.Error(t, err, key)
	}
}

func TestObjectBaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/",
		objectBaseURL(config.S3Config{Bucket: "b", PublicURL: "https://cdn.example.com"}))
	assert.Equal(t, "http://minio:9000/avatars/",
		objectBaseURL(config.S3Config{Bucket: "avatars", Endpoint: "http://minio:9000/"}))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/",
		objectBaseURL(config.S3Config{Bucket: "b", Region: "eu-west-1"}))
}
