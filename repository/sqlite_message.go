package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.CreatedAt = msg.CreatedAt.UTC()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (channel, username, text, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		msg.Channel, msg.Username, msg.Text, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: channel %q", pkg.ErrNotFound, msg.Channel)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListRecent takes the newest rows (DESC + LIMIT) and reverses them so the
// caller gets chronological order.
func (r *sqliteMessageRepo) ListRecent(ctx context.Context, channel string, limit int) ([]models.Message, error) {
	messages, err := r.query(ctx, `
		SELECT id, channel, username, text, created_at FROM messages
		WHERE channel = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, channel, limit)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *sqliteMessageRepo) ListAll(ctx context.Context, channel string) ([]models.Message, error) {
	return r.query(ctx, `
		SELECT id, channel, username, text, created_at FROM messages
		WHERE channel = ?
		ORDER BY created_at, rowid`, channel)
}

func (r *sqliteMessageRepo) query(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Channel, &m.Username, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *sqliteMessageRepo) RenameAuthor(ctx context.Context, oldName, newName string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET username = ? WHERE username = ?`, newName, oldName)
	if err != nil {
		return 0, fmt.Errorf("failed to rename message author: %w", err)
	}
	return result.RowsAffected()
}
