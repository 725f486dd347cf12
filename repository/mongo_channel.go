package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

type channelDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedBy *string   `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d *channelDoc) toModel() models.Channel {
	return models.Channel{ID: d.ID, Name: d.Name, CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt}
}

type mongoChannelRepo struct {
	c        *mongo.Collection
	users    *mongo.Collection
	messages *mongo.Collection
}

// NewMongoChannelRepo returns a ChannelRepository backed by the channels
// collection. Delete also clears the channel's messages.
func NewMongoChannelRepo(db *mongo.Database) ChannelRepository {
	return &mongoChannelRepo{
		c:        db.Collection(collChannels),
		users:    db.Collection(collUsers),
		messages: db.Collection(collMessages),
	}
}

func (r *mongoChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	ch.CreatedAt = ch.CreatedAt.UTC()
	if ch.ID == "" {
		ch.ID = newDocID()
	}

	doc := channelDoc{ID: ch.ID, Name: ch.Name, CreatedBy: ch.CreatedBy, CreatedAt: ch.CreatedAt}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: channel %q already exists", pkg.ErrAlreadyExists, ch.Name)
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *mongoChannelRepo) findOne(ctx context.Context, filter bson.M) (*models.Channel, error) {
	var doc channelDoc
	err := r.c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	ch := doc.toModel()
	return &ch, nil
}

func (r *mongoChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoChannelRepo) GetByName(ctx context.Context, name string) (*models.Channel, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *mongoChannelRepo) List(ctx context.Context) ([]models.Channel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	var docs []channelDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}

	channels := make([]models.Channel, 0, len(docs))
	for i := range docs {
		channels = append(channels, docs[i].toModel())
	}
	return channels, nil
}

func (r *mongoChannelRepo) ListWithCreator(ctx context.Context) ([]models.Channel, error) {
	channels, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var creatorIDs []string
	for _, ch := range channels {
		if ch.CreatedBy != nil {
			creatorIDs = append(creatorIDs, *ch.CreatedBy)
		}
	}
	if len(creatorIDs) == 0 {
		return channels, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1})
	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": creatorIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel creators: %w", err)
	}

	var users []userDoc
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode channel creators: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	for i := range channels {
		if channels[i].CreatedBy == nil {
			continue
		}
		if name, ok := names[*channels[i].CreatedBy]; ok {
			channels[i].Creator = &name
		}
	}
	return channels, nil
}

func (r *mongoChannelRepo) Delete(ctx context.Context, id string) error {
	ch, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	if _, err := r.messages.DeleteMany(ctx, bson.M{"channel": ch.Name}); err != nil {
		return fmt.Errorf("failed to delete channel messages: %w", err)
	}
	return nil
}
