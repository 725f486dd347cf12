package repository

import (
	"context"

	"github.com/akinalp/safespace/models"
)

// MessageRepository is the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	// ListRecent returns at most limit of the newest messages of a channel,
	// oldest first.
	ListRecent(ctx context.Context, channel string, limit int) ([]models.Message, error)
	// ListAll returns the full history of a channel, oldest first.
	ListAll(ctx context.Context, channel string) ([]models.Message, error)
	// RenameAuthor rewrites the author of every message by oldName.
	RenameAuthor(ctx context.Context, oldName, newName string) (int64, error)
}
