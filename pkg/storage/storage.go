// Package storage stores uploaded avatar images and returns the URL they
// are served from.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore saves an object under key and returns its public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Local writes objects into a directory that the HTTP server exposes
// under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates dir if needed.
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/") + "/"}, nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if key != filepath.Base(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	dest := filepath.Join(l.dir, key)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return l.urlPrefix + key, nil
}
