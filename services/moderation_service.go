// Package services holds the business rules. Services take and return
// domain models, never touch http types, and reach storage only through
// repository interfaces.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// MaxTempBanHours caps a temporary ban at 100 years. Longer bans are
// permanent bans.
const MaxTempBanHours = 100 * 365 * 24

// tempBanDuration converts an admin-supplied hour count. It rejects values
// that are not positive, exceed MaxTempBanHours or round to no time at all.
func tempBanDuration(hours float64) (time.Duration, error) {
	if !(hours > 0) || hours > MaxTempBanHours {
		return 0, pkg.ErrInvalidDuration
	}
	d := time.Duration(hours * float64(time.Hour))
	if d <= 0 {
		return 0, pkg.ErrInvalidDuration
	}
	return d, nil
}

// ModerationService owns the suspension state machine:
//
//	CLEAR --permanent-ban--> SUSPENDED_PERMANENT
//	CLEAR --temp-ban(h)----> SUSPENDED_UNTIL(now+h)
//	SUSPENDED_* --unban----> CLEAR
//	SUSPENDED_UNTIL(t) --any check with t <= now--> CLEAR
//
// Expired temporary bans are lifted lazily, by the check that finds them.
type ModerationService interface {
	// LiftExpiredBan clears an expired temporary ban on user, persists it and
	// updates user in place. It reports whether a ban was lifted.
	LiftExpiredBan(ctx context.Context, user *models.User) (bool, error)
	// CanSend runs LiftExpiredBan and reports whether user may post.
	CanSend(ctx context.Context, user *models.User) (bool, error)
	// RecordViolation files a report with the original text as evidence.
	RecordViolation(ctx context.Context, username, channel, original, badWord string) (*models.Report, error)
	// ApplyAdminAction resolves a report. The user and report updates commit
	// together; after a ban the user's live sessions are told to log out.
	ApplyAdminAction(ctx context.Context, reportID string, action models.AdminAction, hours float64) (*models.Report, error)
	ListReports(ctx context.Context) ([]models.Report, error)
	// ListReportsFor returns the reports filed under username, newest first.
	ListReportsFor(ctx context.Context, username string) ([]models.Report, error)
	// SweepExpiredBans lifts every expired temporary ban at once.
	SweepExpiredBans(ctx context.Context) (int64, error)
}

type moderationService struct {
	userRepo   repository.UserRepository
	reportRepo repository.ReportRepository
	tx         repository.Transactor
	hub        ws.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewModerationService, constructor.
func NewModerationService(
	userRepo repository.UserRepository,
	reportRepo repository.ReportRepository,
	tx repository.Transactor,
	hub ws.EventPublisher,
	logger *zap.Logger,
) ModerationService {
	return &moderationService{
		userRepo:   userRepo,
		reportRepo: reportRepo,
		tx:         tx,
		hub:        hub,
		logger:     logger.Named("moderation"),
		now:        time.Now,
	}
}

func (s *moderationService) LiftExpiredBan(ctx context.Context, user *models.User) (bool, error) {
	if user.Suspension() != models.SuspensionTemporary || !user.BanExpired(s.now()) {
		return false, nil
	}

	if err := s.userRepo.UpdateSuspension(ctx, user.ID, false, nil); err != nil {
		return false, fmt.Errorf("failed to lift expired ban: %w", err)
	}
	user.IsSuspended = false
	user.TempBanExpiresAt = nil

	s.logger.Info("temporary ban expired, user unbanned", zap.String("user", user.Username))
	return true, nil
}

func (s *moderationService) CanSend(ctx context.Context, user *models.User) (bool, error) {
	if _, err := s.LiftExpiredBan(ctx, user); err != nil {
		return false, err
	}
	return user.Suspension() == models.SuspensionClear, nil
}

func (s *moderationService) RecordViolation(ctx context.Context, username, channel, original, badWord string) (*models.Report, error) {
	report := &models.Report{
		Username:    username,
		Message:     original,
		Channel:     channel,
		BadWord:     badWord,
		ActionTaken: models.ReportActionNone,
	}
	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("banned word detected",
		zap.String("user", username),
		zap.String("channel", channel),
		zap.String("word", badWord),
	)
	return report, nil
}

func (s *moderationService) ApplyAdminAction(ctx context.Context, reportID string, action models.AdminAction, hours float64) (*models.Report, error) {
	// Everything is validated before the first write.
	var banFor time.Duration
	switch action {
	case models.AdminActionPermanentBan, models.AdminActionUnban:
	case models.AdminActionTempBan:
		d, err := tempBanDuration(hours)
		if err != nil {
			return nil, err
		}
		banFor = d
	default:
		return nil, pkg.ErrInvalidAction
	}

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, report.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrUserNotFound
		}
		return nil, err
	}

	var (
		suspended bool
		expiresAt *time.Time
		taken     models.ReportAction
	)
	switch action {
	case models.AdminActionPermanentBan:
		suspended, taken = true, models.ReportActionBanned
	case models.AdminActionTempBan:
		t := s.now().Add(banFor).UTC()
		suspended, expiresAt, taken = true, &t, models.ReportActionTempBan
	case models.AdminActionUnban:
		suspended, taken = false, models.ReportActionNone
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		if err := repos.Users.UpdateSuspension(ctx, user.ID, suspended, expiresAt); err != nil {
			return err
		}
		return repos.Reports.UpdateAction(ctx, report.ID, taken, expiresAt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", action, err)
	}

	report.ActionTaken = taken
	report.ExpiresAt = expiresAt

	s.logger.Info("admin action applied",
		zap.String("report", report.ID),
		zap.String("user", user.Username),
		zap.String("action", string(action)),
	)

	if suspended {
		s.hub.ForceLogout(user.Username, banReason(action, hours))
	}
	return report, nil
}

func banReason(action models.AdminAction, hours float64) string {
	if action == models.AdminActionTempBan {
		return fmt.Sprintf("You have been temporarily banned for %g hour(s).", hours)
	}
	return "You have been permanently banned."
}

func (s *moderationService) ListReports(ctx context.Context) ([]models.Report, error) {
	return s.reportRepo.List(ctx)
}

func (s *moderationService) ListReportsFor(ctx context.Context, username string) ([]models.Report, error) {
	return s.reportRepo.ListByUsername(ctx, username)
}

func (s *moderationService) SweepExpiredBans(ctx context.Context) (int64, error) {
	n, err := s.userRepo.ClearExpiredSuspensions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired bans: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired temporary bans lifted", zap.Int64("count", n))
	}
	return n, nil
}
