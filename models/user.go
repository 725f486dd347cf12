// Package models defines the domain types shared by every layer.
//
// JSON tags describe the wire format of the REST and realtime surfaces.
// Fields tagged `json:"-"` never leave the server.
package models

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// SuspensionState is derived from IsSuspended and TempBanExpiresAt.
type SuspensionState int

const (
	SuspensionClear SuspensionState = iota
	SuspensionPermanent
	SuspensionTemporary
)

// User is the system of record for an account. Messages and reports
// reference users by username, not by id.
type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	Avatar           string     `json:"avatar"`
	IsVerified       bool       `json:"isVerified"`
	VerificationCode *string    `json:"-"`
	IsApproved       bool       `json:"isApproved"`
	Role             Role       `json:"role"`
	IsOnline         bool       `json:"isOnline"`
	LastSeen         *time.Time `json:"lastSeen"`
	IsActive         bool       `json:"isActive"`
	IsSuspended      bool       `json:"isSuspended"`
	TempBanExpiresAt *time.Time `json:"tempBanExpiresAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Suspension classifies the stored ban fields. It does not look at the
// clock: an expired temporary ban is still SuspensionTemporary until the
// moderation service lifts it.
func (u *User) Suspension() SuspensionState {
	switch {
	case !u.IsSuspended:
		return SuspensionClear
	case u.TempBanExpiresAt == nil:
		return SuspensionPermanent
	default:
		return SuspensionTemporary
	}
}

// BanExpired reports whether the user carries a temporary ban whose
// expiry is at or before now.
func (u *User) BanExpired(now time.Time) bool {
	return u.TempBanExpiresAt != nil && !u.TempBanExpiresAt.After(now)
}

// RemainingBanHours rounds the rest of a temporary ban up to whole hours.
func (u *User) RemainingBanHours(now time.Time) int {
	if u.TempBanExpiresAt == nil {
		return 0
	}
	return int(math.Ceil(u.TempBanExpiresAt.Sub(now).Hours()))
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserStatus is one entry of the presence list.
type UserStatus struct {
	Username string     `json:"username"`
	Avatar   string     `json:"avatar"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate trims and checks the registration payload.
func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}

	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if _, err := mail.ParseAddress(r.Email); err != nil || !strings.Contains(r.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}

	if utf8.RuneCountInString(r.Password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate trims and checks the login payload.
func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if r.Password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// VerifyRequest is the body of POST /api/auth/verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Validate trims and checks the verification payload.
func (r *VerifyRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Code = strings.TrimSpace(r.Code)
	if r.Email == "" || r.Code == "" {
		return fmt.Errorf("email and code are required")
	}
	return nil
}

// ResendCodeRequest is the body of POST /api/auth/resend-code.
type ResendCodeRequest struct {
	Email string `json:"email"`
}

// UpdateProfileRequest is the body of PUT /api/auth/update. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

// Validate trims and checks the profile update.
func (r *UpdateProfileRequest) Validate() error {
	if r.Username != nil {
		trimmed := strings.TrimSpace(*r.Username)
		r.Username = &trimmed
		if err := ValidateUsername(trimmed); err != nil {
			return err
		}
	}
	if r.Avatar != nil {
		trimmed := strings.TrimSpace(*r.Avatar)
		r.Avatar = &trimmed
	}
	return nil
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ValidateUsername checks length and the allowed character set.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 || n > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}
	for _, ch := range username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, dots, dashes and underscores")
		}
	}
	return nil
}

func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_' || ch == '.' || ch == '-'
}
