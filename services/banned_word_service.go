package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/filter"
	"github.com/akinalp/safespace/repository"
)

// BannedWordService edits the global banned-word list. Words are stored
// trimmed and lower-cased.
type BannedWordService interface {
	List(ctx context.Context) ([]models.BannedWord, error)
	Add(ctx context.Context, req *models.AddBannedWordRequest) (*models.BannedWord, error)
	Delete(ctx context.Context, id string) error
}

type bannedWordService struct {
	repo   repository.BannedWordRepository
	logger *zap.Logger
}

// NewBannedWordService, constructor.
func NewBannedWordService(repo repository.BannedWordRepository, logger *zap.Logger) BannedWordService {
	return &bannedWordService{repo: repo, logger: logger.Named("banned_words")}
}

func (s *bannedWordService) List(ctx context.Context) ([]models.BannedWord, error) {
	return s.repo.List(ctx)
}

func (s *bannedWordService) Add(ctx context.Context, req *models.AddBannedWordRequest) (*models.BannedWord, error) {
	word := filter.Normalize(req.Word)
	if word == "" {
		return nil, fmt.Errorf("%w: word is required", pkg.ErrBadRequest)
	}

	bw := &models.BannedWord{Word: word}
	if err := s.repo.Create(ctx, bw); err != nil {
		return nil, err
	}
	s.logger.Info("banned word added", zap.String("word", word))
	return bw, nil
}

func (s *bannedWordService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("banned word removed", zap.String("id", id))
	return nil
}
