package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akinalp/safespace/models"
)

type messageDoc struct {
	ID        string    `bson:"_id"`
	Channel   string    `bson:"channel"`
	Username  string    `bson:"username"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoMessageRepo struct {
	c *mongo.Collection
}

// NewMongoMessageRepo returns a MessageRepository backed by the messages
// collection.
func NewMongoMessageRepo(db *mongo.Database) MessageRepository {
	return &mongoMessageRepo{c: db.Collection(collMessages)}
}

func (r *mongoMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.ID == "" {
		msg.ID = newDocID()
	}

	doc := messageDoc{ID: msg.ID, Channel: msg.Channel, Username: msg.Username, Text: msg.Text, CreatedAt: msg.CreatedAt}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *mongoMessageRepo) ListRecent(ctx context.Context, channel string, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	messages, err := r.find(ctx, bson.M{"channel": channel}, opts)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *mongoMessageRepo) ListAll(ctx context.Context, channel string) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"channel": channel}, opts)
}

func (r *mongoMessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	messages := make([]models.Message, 0, len(docs))
	for _, d := range docs {
		messages = append(messages, models.Message{
			ID:        d.ID,
			Channel:   d.Channel,
			Username:  d.Username,
			Text:      d.Text,
			CreatedAt: d.CreatedAt,
		})
	}
	return messages, nil
}

func (r *mongoMessageRepo) RenameAuthor(ctx context.Context, oldName, newName string) (int64, error) {
	res, err := r.c.UpdateMany(ctx, bson.M{"username": oldName}, bson.M{"$set": bson.M{"username": newName}})
	if err != nil {
		return 0, fmt.Errorf("failed to rename message author: %w", err)
	}
	return res.ModifiedCount, nil
}
