package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"echochat-backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const userColumns = `id, username, email, password_hash, remember_token_hash, remember_token_expiry,
	created_at, updated_at, last_login`

// UserRepo handles user database operations
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.Username, nullString(user.Email), user.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetByUsername retrieves a user by username
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// GetByRememberTokenHash retrieves the user owning a remember-me token hash.
// Expiry is not checked here.
func (r *UserRepo) GetByRememberTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE remember_token_hash = ?", tokenHash)
	return scanUser(row)
}

// SetRememberToken stores a remember-me token hash and its expiry
func (r *UserRepo) SetRememberToken(ctx context.Context, userID int64, tokenHash string, expiry time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET remember_token_hash = ?, remember_token_expiry = ?, updated_at = ?
		WHERE id = ?
	`, tokenHash, expiry.UTC(), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return expectRow(result, ErrUserNotFound)
}

// ClearRememberToken removes the stored remember-me token
func (r *UserRepo) ClearRememberToken(ctx context.Context, userID int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET remember_token_hash = NULL, remember_token_expiry = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return expectRow(result, ErrUserNotFound)
}

// ClearExpiredRememberTokens removes remember-me tokens whose expiry has passed
func (r *UserRepo) ClearExpiredRememberTokens(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET remember_token_hash = NULL, remember_token_expiry = NULL
		WHERE remember_token_expiry IS NOT NULL AND remember_token_expiry < ?
	`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateLastLogin updates the user's last login time
func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), userID)
	if err != nil {
		return err
	}
	return expectRow(result, ErrUserNotFound)
}

// Count returns the total number of users
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var email, rememberHash sql.NullString
	var rememberExpiry, lastLogin sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &email, &user.PasswordHash, &rememberHash, &rememberExpiry,
		&user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.RememberTokenHash = rememberHash.String
	if rememberExpiry.Valid {
		t := rememberExpiry.Time
		user.RememberTokenExpiry = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}

	return user, nil
}

// expectRow returns notFound if the statement touched no rows
func expectRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
