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

type sqliteReportRepo struct {
	db database.TxQuerier
}

// NewSQLiteReportRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteReportRepo(db database.TxQuerier) ReportRepository {
	return &sqliteReportRepo{db: db}
}

const reportColumns = `id, username, message, channel, bad_word, action_taken, expires_at, created_at`

func scanReport(row rowScanner) (*models.Report, error) {
	rep := &models.Report{}
	if err := row.Scan(&rep.ID, &rep.Username, &rep.Message, &rep.Channel, &rep.BadWord,
		&rep.ActionTaken, &rep.ExpiresAt, &rep.CreatedAt); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *sqliteReportRepo) Create(ctx context.Context, rep *models.Report) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now().UTC()
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	if rep.ActionTaken == "" {
		rep.ActionTaken = models.ReportActionNone
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reports (username, message, channel, bad_word, action_taken, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		rep.Username, rep.Message, rep.Channel, rep.BadWord, rep.ActionTaken, utcPtr(rep.ExpiresAt), rep.CreatedAt,
	).Scan(&rep.ID)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *sqliteReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

func (r *sqliteReportRepo) List(ctx context.Context) ([]models.Report, error) {
	return r.query(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, rowid DESC`)
}

func (r *sqliteReportRepo) ListByUsername(ctx context.Context, username string) ([]models.Report, error) {
	return r.query(ctx, `SELECT `+reportColumns+` FROM reports WHERE username = ? ORDER BY created_at DESC, rowid DESC`, username)
}

func (r *sqliteReportRepo) query(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

func (r *sqliteReportRepo) UpdateAction(ctx context.Context, id string, action models.ReportAction, expiresAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reports SET action_taken = ?, expires_at = ? WHERE id = ?`, action, utcPtr(expiresAt), id)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
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
