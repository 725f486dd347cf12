package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// AdminService is account management for administrators.
type AdminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	Approve(ctx context.Context, userID string) (*models.User, error)
	// Deactivate blocks login and tells live sessions to log out.
	Deactivate(ctx context.Context, userID string) (*models.User, error)
	Activate(ctx context.Context, userID string) (*models.User, error)
}

type adminService struct {
	userRepo repository.UserRepository
	hub      ws.EventPublisher
	logger   *zap.Logger
}

// NewAdminService, constructor.
func NewAdminService(userRepo repository.UserRepository, hub ws.EventPublisher, logger *zap.Logger) AdminService {
	return &adminService{
		userRepo: userRepo,
		hub:      hub,
		logger:   logger.Named("admin"),
	}
}

func (s *adminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

func (s *adminService) Approve(ctx context.Context, userID string) (*models.User, error) {
	if err := s.userRepo.SetApproved(ctx, userID, true); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user approved", zap.String("user", user.Username))
	return user, nil
}

func (s *adminService) Deactivate(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.setActive(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	s.hub.ForceLogout(user.Username, "Your account has been deactivated.")
	return user, nil
}

func (s *adminService) Activate(ctx context.Context, userID string) (*models.User, error) {
	return s.setActive(ctx, userID, true)
}

func (s *adminService) setActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user active flag changed", zap.String("user", user.Username), zap.Bool("active", active))
	return user, nil
}
