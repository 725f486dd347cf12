package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/storage"
	"github.com/akinalp/safespace/repository"
)

// UploadService stores avatar images.
type UploadService interface {
	// UploadAvatar validates and stores an image, then points the user's
	// avatar at it.
	UploadAvatar(ctx context.Context, userID string, file io.Reader, filename string, size int64) (*models.User, error)
}

type uploadService struct {
	userRepo repository.UserRepository
	store    storage.BlobStore
	maxSize  int64
	logger   *zap.Logger
}

// NewUploadService, constructor.
func NewUploadService(userRepo repository.UserRepository, store storage.BlobStore, maxSize int64, logger *zap.Logger) UploadService {
	return &uploadService{
		userRepo: userRepo,
		store:    store,
		maxSize:  maxSize,
		logger:   logger.Named("upload"),
	}
}

// allowedImageTypes maps sniffed content types to the stored extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *uploadService) UploadAvatar(ctx context.Context, userID string, file io.Reader, filename string, size int64) (*models.User, error) {
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: file is empty", pkg.ErrBadRequest)
	}

	// The declared Content-Type is client-controlled; sniff the bytes.
	br := bufio.NewReaderSize(file, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: only image files are allowed", pkg.ErrBadRequest)
	}
	if orig := strings.ToLower(filepath.Ext(filename)); orig == ".jpeg" && ext == ".jpg" {
		ext = orig
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := "avatar-" + uuid.NewString() + ext
	url, err := s.store.Put(ctx, key, io.LimitReader(br, s.maxSize), size, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateAvatar(ctx, user.ID, url); err != nil {
		return nil, err
	}
	user.Avatar = url

	s.logger.Info("avatar uploaded", zap.String("user", user.Username), zap.String("url", url))
	return user, nil
}
