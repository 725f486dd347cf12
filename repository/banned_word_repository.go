package repository

import (
	"context"

	"github.com/akinalp/safespace/models"
)

// BannedWordRepository stores the global banned-word list. Callers pass
// already-normalized words.
type BannedWordRepository interface {
	Create(ctx context.Context, word *models.BannedWord) error
	// List returns entries in insertion order.
	List(ctx context.Context) ([]models.BannedWord, error)
	// Words returns just the word column, in insertion order.
	Words(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
