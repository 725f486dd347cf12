package repository

import (
	"context"
	"time"

	"github.com/akinalp/safespace/models"
)

// ReportRepository stores moderation reports.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	// List returns every report, newest first.
	List(ctx context.Context) ([]models.Report, error)
	// ListByUsername returns the reports filed against one username, newest first.
	ListByUsername(ctx context.Context, username string) ([]models.Report, error)
	// UpdateAction overwrites the action taken and its expiry.
	UpdateAction(ctx context.Context, id string, action models.ReportAction, expiresAt *time.Time) error
}
