package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

// Collection names of the Mongo store.
const (
	collUsers       = "users"
	collChannels    = "channels"
	collMessages    = "messages"
	collReports     = "reports"
	collBannedWords = "banned_words"
)

// EnsureMongoIndexes creates the unique and ordering indexes the Mongo
// repositories rely on. Safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("uniq_users_username").SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_users_email").SetUnique(true)},
		},
		collChannels: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("uniq_channels_name").SetUnique(true)},
		},
		collMessages: {
			{Keys: bson.D{{Key: "channel", Value: 1}, {Key: "created_at", Value: 1}}, Options: options.Index().SetName("idx_messages_channel_created")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName("idx_messages_username")},
		},
		collReports: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_reports_created")},
		},
		collBannedWords: {
			{Keys: bson.D{{Key: "word", Value: 1}}, Options: options.Index().SetName("uniq_banned_words_word").SetUnique(true)},
		},
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// newDocID returns a time-ordered UUID so _id doubles as a tie-breaker
// for documents created in the same millisecond.
func newDocID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type userDoc struct {
	ID               string     `bson:"_id"`
	Username         string     `bson:"username"`
	Email            string     `bson:"email"`
	PasswordHash     string     `bson:"password_hash"`
	Avatar           string     `bson:"avatar"`
	IsVerified       bool       `bson:"is_verified"`
	VerificationCode *string    `bson:"verification_code"`
	IsApproved       bool       `bson:"is_approved"`
	Role             string     `bson:"role"`
	IsOnline         bool       `bson:"is_online"`
	LastSeen         *time.Time `bson:"last_seen"`
	IsActive         bool       `bson:"is_active"`
	IsSuspended      bool       `bson:"is_suspended"`
	TempBanExpiresAt *time.Time `bson:"temp_ban_expires_at"`
	CreatedAt        time.Time  `bson:"created_at"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:               d.ID,
		Username:         d.Username,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		Avatar:           d.Avatar,
		IsVerified:       d.IsVerified,
		VerificationCode: d.VerificationCode,
		IsApproved:       d.IsApproved,
		Role:             models.Role(d.Role),
		IsOnline:         d.IsOnline,
		LastSeen:         d.LastSeen,
		IsActive:         d.IsActive,
		IsSuspended:      d.IsSuspended,
		TempBanExpiresAt: d.TempBanExpiresAt,
		CreatedAt:        d.CreatedAt,
	}
}

type mongoUserRepo struct {
	c *mongo.Collection
}

// NewMongoUserRepo returns a UserRepository backed by the users collection.
func NewMongoUserRepo(db *mongo.Database) UserRepository {
	return &mongoUserRepo{c: db.Collection(collUsers)}
}

func (r *mongoUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.CreatedAt = user.CreatedAt.UTC()
	if user.ID == "" {
		user.ID = newDocID()
	}

	doc := userDoc{
		ID:               user.ID,
		Username:         user.Username,
		Email:            user.Email,
		PasswordHash:     user.PasswordHash,
		Avatar:           user.Avatar,
		IsVerified:       user.IsVerified,
		VerificationCode: user.VerificationCode,
		IsApproved:       user.IsApproved,
		Role:             string(user.Role),
		IsActive:         user.IsActive,
		CreatedAt:        user.CreatedAt,
	}

	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "email") {
				return fmt.Errorf("%w: email already registered", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := r.c.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoUserRepo) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return int(n), nil
}

// set applies a $set to one user and maps "no match" to NotFound.
func (r *mongoUserRepo) set(ctx context.Context, id string, fields bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepo) SetVerificationCode(ctx context.Context, id string, code *string) error {
	return r.set(ctx, id, bson.M{"verification_code": code})
}

func (r *mongoUserRepo) MarkVerified(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{"is_verified": true, "verification_code": nil})
}

func (r *mongoUserRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.set(ctx, id, bson.M{"is_approved": approved})
}

func (r *mongoUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, id, bson.M{"is_active": active})
}

func (r *mongoUserRepo) UpdateSuspension(ctx context.Context, id string, suspended bool, expiresAt *time.Time) error {
	return r.set(ctx, id, bson.M{"is_suspended": suspended, "temp_ban_expires_at": utcPtr(expiresAt)})
}

func (r *mongoUserRepo) ClearExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"temp_ban_expires_at": bson.M{"$ne": nil, "$lte": now.UTC()}},
		bson.M{"$set": bson.M{"is_suspended": false, "temp_ban_expires_at": nil}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired suspensions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoUserRepo) UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	return r.set(ctx, id, bson.M{"is_online": online, "last_seen": lastSeen.UTC()})
}

func (r *mongoUserRepo) ResetPresence(ctx context.Context) error {
	if _, err := r.c.UpdateMany(ctx, bson.M{"is_online": true}, bson.M{"$set": bson.M{"is_online": false}}); err != nil {
		return fmt.Errorf("failed to reset presence: %w", err)
	}
	return nil
}

func (r *mongoUserRepo) ListStatuses(ctx context.Context) ([]models.UserStatus, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetProjection(bson.M{"username": 1, "avatar": 1, "is_online": 1, "last_seen": 1})
	cur, err := r.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list user statuses: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode user statuses: %w", err)
	}

	statuses := make([]models.UserStatus, 0, len(docs))
	for _, d := range docs {
		statuses = append(statuses, models.UserStatus{
			Username: d.Username,
			Avatar:   d.Avatar,
			IsOnline: d.IsOnline,
			LastSeen: d.LastSeen,
		})
	}
	return statuses, nil
}

func (r *mongoUserRepo) UpdateUsername(ctx context.Context, id, username string) error {
	return r.set(ctx, id, bson.M{"username": username})
}

func (r *mongoUserRepo) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return r.set(ctx, id, bson.M{"avatar": avatar})
}

func (r *mongoUserRepo) AvatarsByUsername(ctx context.Context, usernames []string) (map[string]string, error) {
	avatars := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return avatars, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "avatar": 1})
	cur, err := r.c.Find(ctx, bson.M{"username": bson.M{"$in": usernames}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve avatars: %w", err)
	}

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode avatars: %w", err)
	}
	for _, d := range docs {
		avatars[d.Username] = d.Avatar
	}
	return avatars, nil
}
