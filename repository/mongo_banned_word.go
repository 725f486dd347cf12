package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

type bannedWordDoc struct {
	ID        string    `bson:"_id"`
	Word      string    `bson:"word"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoBannedWordRepo struct {
	c *mongo.Collection
}

// NewMongoBannedWordRepo returns a BannedWordRepository backed by the
// banned_words collection.
func NewMongoBannedWordRepo(db *mongo.Database) BannedWordRepository {
	return &mongoBannedWordRepo{c: db.Collection(collBannedWords)}
}

func (r *mongoBannedWordRepo) Create(ctx context.Context, w *models.BannedWord) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.CreatedAt = w.CreatedAt.UTC()
	if w.ID == "" {
		w.ID = newDocID()
	}

	if _, err := r.c.InsertOne(ctx, bannedWordDoc{ID: w.ID, Word: w.Word, CreatedAt: w.CreatedAt}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: word %q is already banned", pkg.ErrAlreadyExists, w.Word)
		}
		return fmt.Errorf("failed to create banned word: %w", err)
	}
	return nil
}

func (r *mongoBannedWordRepo) List(ctx context.Context) ([]models.BannedWord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned words: %w", err)
	}

	var docs []bannedWordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode banned words: %w", err)
	}

	words := make([]models.BannedWord, 0, len(docs))
	for _, d := range docs {
		words = append(words, models.BannedWord{ID: d.ID, Word: d.Word, CreatedAt: d.CreatedAt})
	}
	return words, nil
}

func (r *mongoBannedWordRepo) Words(ctx context.Context) ([]string, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(list))
	for _, w := range list {
		words = append(words, w.Word)
	}
	return words, nil
}

func (r *mongoBannedWordRepo) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete banned word: %w", err)
	}
	if res.DeletedCount == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
