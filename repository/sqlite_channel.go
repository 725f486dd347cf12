package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

type sqliteChannelRepo struct {
	db database.TxQuerier
}

// NewSQLiteChannelRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteChannelRepo(db database.TxQuerier) ChannelRepository {
	return &sqliteChannelRepo{db: db}
}

func (r *sqliteChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
	ch.CreatedAt = ch.CreatedAt.UTC()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO channels (name, created_by, created_at) VALUES (?, ?, ?) RETURNING id`,
		ch.Name, ch.CreatedBy, ch.CreatedAt,
	).Scan(&ch.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: channel %q already exists", pkg.ErrAlreadyExists, ch.Name)
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (r *sqliteChannelRepo) get(ctx context.Context, where string, arg any) (*models.Channel, error) {
	ch := &models.Channel{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM channels WHERE `+where, arg,
	).Scan(&ch.ID, &ch.Name, &ch.CreatedBy, &ch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

func (r *sqliteChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *sqliteChannelRepo) GetByName(ctx context.Context, name string) (*models.Channel, error) {
	return r.get(ctx, "name = ?", name)
}

func (r *sqliteChannelRepo) List(ctx context.Context) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_by, created_at FROM channels ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.CreatedBy, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *sqliteChannelRepo) ListWithCreator(ctx context.Context) ([]models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_by, c.created_at, u.username
		FROM channels c
		LEFT JOIN users u ON u.id = c.created_by
		ORDER BY c.created_at, c.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.CreatedBy, &ch.CreatedAt, &ch.Creator); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *sqliteChannelRepo) Delete(ctx context.Context, id string) error {
	// messages.channel references channels.name ON DELETE CASCADE.
	result, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}
