package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/safespace/database"
	"github.com/akinalp/safespace/models"
	"github.com/akinalp/safespace/pkg"
)

// sqliteUserRepo implements UserRepository on SQLite.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, avatar, is_verified, verification_code,
	is_approved, role, is_online, last_seen, is_active, is_suspended, temp_ban_expires_at, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Avatar, &u.IsVerified, &u.VerificationCode,
		&u.IsApproved, &u.Role, &u.IsOnline, &u.LastSeen, &u.IsActive, &u.IsSuspended, &u.TempBanExpiresAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.CreatedAt = user.CreatedAt.UTC()

	query := `
		INSERT INTO users (username, email, password_hash, avatar, is_verified, verification_code,
			is_approved, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Avatar, user.IsVerified, user.VerificationCode,
		user.IsApproved, user.Role, user.IsActive, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "users.email") {
				return fmt.Errorf("%w: email already registered", pkg.ErrAlreadyExists)
			}
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *sqliteUserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// exec runs an UPDATE that targets one user and maps "no row" to NotFound.
func (r *sqliteUserRepo) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: username already taken", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update user: %w", err)
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

func (r *sqliteUserRepo) SetVerificationCode(ctx context.Context, id string, code *string) error {
	return r.exec(ctx, `UPDATE users SET verification_code = ? WHERE id = ?`, code, id)
}

func (r *sqliteUserRepo) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET is_verified = 1, verification_code = NULL WHERE id = ?`, id)
}

func (r *sqliteUserRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	return r.exec(ctx, `UPDATE users SET is_approved = ? WHERE id = ?`, approved, id)
}

func (r *sqliteUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.exec(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
}

func (r *sqliteUserRepo) UpdateSuspension(ctx context.Context, id string, suspended bool, expiresAt *time.Time) error {
	return r.exec(ctx, `UPDATE users SET is_suspended = ?, temp_ban_expires_at = ? WHERE id = ?`,
		suspended, utcPtr(expiresAt), id)
}

func (r *sqliteUserRepo) ClearExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_suspended = 0, temp_ban_expires_at = NULL
		WHERE temp_ban_expires_at IS NOT NULL AND temp_ban_expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired suspensions: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteUserRepo) UpdatePresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	return r.exec(ctx, `UPDATE users SET is_online = ?, last_seen = ? WHERE id = ?`, online, lastSeen.UTC(), id)
}

func (r *sqliteUserRepo) ResetPresence(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET is_online = 0 WHERE is_online = 1`); err != nil {
		return fmt.Errorf("failed to reset presence: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) ListStatuses(ctx context.Context) ([]models.UserStatus, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, avatar, is_online, last_seen FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.UserStatus
	for rows.Next() {
		var s models.UserStatus
		if err := rows.Scan(&s.Username, &s.Avatar, &s.IsOnline, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan user status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

func (r *sqliteUserRepo) UpdateUsername(ctx context.Context, id, username string) error {
	return r.exec(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, id)
}

func (r *sqliteUserRepo) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return r.exec(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, avatar, id)
}

func (r *sqliteUserRepo) AvatarsByUsername(ctx context.Context, usernames []string) (map[string]string, error) {
	avatars := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return avatars, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(usernames)), ",")
	args := make([]any, len(usernames))
	for i, name := range usernames {
		args[i] = name
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT username, avatar FROM users WHERE username IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve avatars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, avatar string
		if err := rows.Scan(&name, &avatar); err != nil {
			return nil, fmt.Errorf("failed to scan avatar: %w", err)
		}
		avatars[name] = avatar
	}
	return avatars, rows.Err()
}

// isUniqueViolation reports a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
