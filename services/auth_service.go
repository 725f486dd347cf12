package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
	"github.com/akinalp/safespace/pkg/email"
	"github.com/akinalp/safespace/repository"
	"github.com/akinalp/safespace/ws"
)

// TokenValidator is the part of AuthService that middleware and the
// realtime dispatcher need.
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
}

// AuthService covers the account lifecycle: register, verify, login and
// profile changes.
type AuthService interface {
	TokenValidator
	// Register creates an account. The very first account becomes an admin
	// that needs neither verification nor approval; every other account
	// gets a verification code by email.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Verify(ctx context.Context, req *models.VerifyRequest) error
	ResendCode(ctx context.Context, emailAddr string) error
	// Login checks, in order: account exists, verified, approved, active,
	// not suspended (lifting an expired temporary ban), password.
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	// UpdateProfile changes the username and/or avatar. A rename rewrites
	// the author of every past message and notifies live sessions.
	UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error)
}

type authService struct {
	userRepo   repository.UserRepository
	tx         repository.Transactor
	moderation ModerationService
	mailer     email.Sender
	hub        ws.EventPublisher
	jwtSecret  []byte
	accessExp  time.Duration
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService, constructor.
func NewAuthService(
	userRepo repository.UserRepository,
	tx repository.Transactor,
	moderation ModerationService,
	mailer email.Sender,
	hub ws.EventPublisher,
	jwtSecret string,
	accessExpMinutes int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		tx:         tx,
		moderation: moderation,
		mailer:     mailer,
		hub:        hub,
		jwtSecret:  []byte(jwtSecret),
		accessExp:  time.Duration(accessExpMinutes) * time.Minute,
		bcryptCost: 12,
		logger:     logger.Named("auth"),
		now:        time.Now,
	}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", pkg.ErrAlreadyExists)
	} else if !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
	} else if !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsActive:     true,
		Role:         models.RoleUser,
	}

	if count == 0 {
		user.Role = models.RoleAdmin
		user.IsVerified = true
		user.IsApproved = true
	} else {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		user.VerificationCode = &code
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if user.IsAdmin() {
		s.logger.Info("first account registered as admin", zap.String("user", user.Username))
		return user, nil
	}

	// The account exists either way; a failed mail can be retried through
	// resend-code.
	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Username, *user.VerificationCode); err != nil {
		s.logger.Error("failed to send verification code", zap.String("user", user.Username), zap.Error(err))
	}
	s.logger.Info("user registered", zap.String("user", user.Username))
	return user, nil
}

func (s *authService) Verify(ctx context.Context, req *models.VerifyRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return fmt.Errorf("%w: email already verified", pkg.ErrBadRequest)
	}
	if user.VerificationCode == nil ||
		subtle.ConstantTimeCompare([]byte(*user.VerificationCode), []byte(req.Code)) != 1 {
		return fmt.Errorf("%w: invalid verification code", pkg.ErrBadRequest)
	}

	return s.userRepo.MarkVerified(ctx, user.ID)
}

func (s *authService) ResendCode(ctx context.Context, emailAddr string) error {
	req := models.VerifyRequest{Email: emailAddr, Code: "-"}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: email is required", pkg.ErrBadRequest)
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return fmt.Errorf("%w: email already verified", pkg.ErrBadRequest)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetVerificationCode(ctx, user.ID, &code); err != nil {
		return err
	}
	return s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code)
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	if !user.IsVerified {
		return nil, fmt.Errorf("%w: please verify your email first", pkg.ErrForbidden)
	}
	if !user.IsApproved {
		return nil, fmt.Errorf("%w: your account is awaiting admin approval", pkg.ErrForbidden)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: your account has been deactivated", pkg.ErrForbidden)
	}

	if _, err := s.moderation.LiftExpiredBan(ctx, user); err != nil {
		return nil, err
	}
	switch user.Suspension() {
	case models.SuspensionTemporary:
		return nil, fmt.Errorf("%w: you are temporarily banned, try again in %d hour(s)",
			pkg.ErrForbidden, user.RemainingBanHours(s.now()))
	case models.SuspensionPermanent:
		return nil, fmt.Errorf("%w: your account has been permanently banned", pkg.ErrForbidden)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", pkg.ErrUnauthorized)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Username != nil && *req.Username != user.Username {
		if err := s.rename(ctx, user, *req.Username); err != nil {
			return nil, err
		}
	}

	if req.Avatar != nil && *req.Avatar != user.Avatar {
		if err := s.userRepo.UpdateAvatar(ctx, user.ID, *req.Avatar); err != nil {
			return nil, err
		}
		user.Avatar = *req.Avatar
	}

	return user, nil
}

// rename changes the username and rewrites message authorship in one
// transaction. Reports keep the old name.
func (s *authService) rename(ctx context.Context, user *models.User, newName string) error {
	if _, err := s.userRepo.GetByUsername(ctx, newName); err == nil {
		return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
	} else if !errors.Is(err, pkg.ErrNotFound) {
		return err
	}

	oldName := user.Username
	var rewritten int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		if err := repos.Users.UpdateUsername(ctx, user.ID, newName); err != nil {
			return err
		}
		n, err := repos.Messages.RenameAuthor(ctx, oldName, newName)
		rewritten = n
		return err
	})
	if err != nil {
		return err
	}
	user.Username = newName

	s.hub.RenameUser(user.ID, newName)
	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpUsernameUpdated,
		Data: ws.UsernameUpdatedData{OldUsername: oldName, NewUsername: newName},
	})

	s.logger.Info("user renamed",
		zap.String("from", oldName),
		zap.String("to", newName),
		zap.Int64("messages", rewritten),
	)
	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}

func (s *authService) generateToken(user *models.User) (string, error) {
	now := s.now()
	claims := &models.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "safespace",
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// generateCode returns a random 6-digit verification code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
