package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

type sqliteBannedWordRepo struct {
	db database.TxQuerier
}

// NewSQLiteBannedWordRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteBannedWordRepo(db database.TxQuerier) BannedWordRepository {
	return &sqliteBannedWordRepo{db: db}
}

func (r *sqliteBannedWordRepo) Create(ctx context.Context, w *models.BannedWord) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	w.CreatedAt = w.CreatedAt.UTC()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO banned_words (word, created_at) VALUES (?, ?) RETURNING id`, w.Word, w.CreatedAt,
	).Scan(&w.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: word %q is already banned", pkg.ErrAlreadyExists, w.Word)
		}
		return fmt.Errorf("failed to create banned word: %w", err)
	}
	return nil
}

func (r *sqliteBannedWordRepo) List(ctx context.Context) ([]models.BannedWord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, word, created_at FROM banned_words ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned words: %w", err)
	}
	defer rows.Close()

	words := make([]models.BannedWord, 0)
	for rows.Next() {
		var w models.BannedWord
		if err := rows.Scan(&w.ID, &w.Word, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan banned word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (r *sqliteBannedWordRepo) Words(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT word FROM banned_words ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned words: %w", err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan banned word: %w", err)
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

func (r *sqliteBannedWordRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM banned_words WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete banned word: %w", err)
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
