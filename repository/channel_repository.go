package repository

import (
	"context"

	"github.com/akinalp/safespace/models"
)

// ChannelRepository stores chat rooms.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	GetByName(ctx context.Context, name string) (*models.Channel, error)
	// List returns channels in creation order.
	List(ctx context.Context) ([]models.Channel, error)
	// ListWithCreator is List with Channel.Creator set to the creator's
	// username where one exists.
	ListWithCreator(ctx context.Context) ([]models.Channel, error)
	// Delete removes the channel and its message history.
	Delete(ctx context.Context, id string) error
}
