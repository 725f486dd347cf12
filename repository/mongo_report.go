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

type reportDoc struct {
	ID          string     `bson:"_id"`
	Username    string     `bson:"username"`
	Message     string     `bson:"message"`
	Channel     string     `bson:"channel"`
	BadWord     string     `bson:"bad_word"`
	ActionTaken string     `bson:"action_taken"`
	ExpiresAt   *time.Time `bson:"expires_at"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func (d *reportDoc) toModel() models.Report {
	return models.Report{
		ID:          d.ID,
		Username:    d.Username,
		Message:     d.Message,
		Channel:     d.Channel,
		BadWord:     d.BadWord,
		ActionTaken: models.ReportAction(d.ActionTaken),
		ExpiresAt:   d.ExpiresAt,
		CreatedAt:   d.CreatedAt,
	}
}

type mongoReportRepo struct {
	c *mongo.Collection
}

// NewMongoReportRepo returns a ReportRepository backed by the reports
// collection.
func NewMongoReportRepo(db *mongo.Database) ReportRepository {
	return &mongoReportRepo{c: db.Collection(collReports)}
}

func (r *mongoReportRepo) Create(ctx context.Context, rep *models.Report) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	if rep.ActionTaken == "" {
		rep.ActionTaken = models.ReportActionNone
	}
	if rep.ID == "" {
		rep.ID = newDocID()
	}

	doc := reportDoc{
		ID:          rep.ID,
		Username:    rep.Username,
		Message:     rep.Message,
		Channel:     rep.Channel,
		BadWord:     rep.BadWord,
		ActionTaken: string(rep.ActionTaken),
		ExpiresAt:   utcPtr(rep.ExpiresAt),
		CreatedAt:   rep.CreatedAt,
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *mongoReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var doc reportDoc
	err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	rep := doc.toModel()
	return &rep, nil
}

func (r *mongoReportRepo) List(ctx context.Context) ([]models.Report, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoReportRepo) ListByUsername(ctx context.Context, username string) ([]models.Report, error) {
	return r.find(ctx, bson.M{"username": username})
}

func (r *mongoReportRepo) find(ctx context.Context, filter bson.M) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var docs []reportDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	reports := make([]models.Report, 0, len(docs))
	for i := range docs {
		reports = append(reports, docs[i].toModel())
	}
	return reports, nil
}

func (r *mongoReportRepo) UpdateAction(ctx context.Context, id string, action models.ReportAction, expiresAt *time.Time) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"action_taken": string(action),
		"expires_at":   utcPtr(expiresAt),
	}})
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if res.MatchedCount == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
