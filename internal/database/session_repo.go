package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"echochat-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionRepo stores server-side sessions in sqlite
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session. TokenHash must already be set.
func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	history, err := encodeHistory(session.History)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, username, history, created_at, expires_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.TokenHash, nullUserID(session.UserID), session.Username, history,
		session.CreatedAt.UTC(), session.ExpiresAt.UTC(), session.IPAddress, session.UserAgent)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = id

	return nil
}

// GetByTokenHash retrieves a session by its hashed token.
// Expired sessions are removed and reported as ErrSessionExpired.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := &models.Session{}
	var userID sql.NullInt64
	var history string
	var ipAddress, userAgent sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, username, history, created_at, expires_at, ip_address, user_agent
		FROM sessions WHERE token_hash = ?
	`, tokenHash).Scan(
		&session.ID, &session.TokenHash, &userID, &session.Username, &history,
		&session.CreatedAt, &session.ExpiresAt, &ipAddress, &userAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	if time.Now().After(session.ExpiresAt) {
		// Clean up expired session
		_ = r.Delete(ctx, tokenHash)
		return nil, ErrSessionExpired
	}

	session.UserID = userID.Int64
	session.IPAddress = ipAddress.String
	session.UserAgent = userAgent.String
	if err := json.Unmarshal([]byte(history), &session.History); err != nil {
		return nil, fmt.Errorf("failed to decode session history: %w", err)
	}

	return session, nil
}

// Save persists the mutable parts of a session and its expiry
func (r *SessionRepo) Save(ctx context.Context, session *models.Session) error {
	history, err := encodeHistory(session.History)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET user_id = ?, username = ?, history = ?, expires_at = ?
		WHERE token_hash = ?
	`, nullUserID(session.UserID), session.Username, history, session.ExpiresAt.UTC(), session.TokenHash)
	if err != nil {
		return err
	}
	return expectRow(result, ErrSessionNotFound)
}

// Delete deletes a session by its hashed token
func (r *SessionRepo) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	return err
}

// DeleteExpired removes all expired sessions
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func encodeHistory(history []models.ChatMessage) (string, error) {
	if history == nil {
		return "[]", nil
	}
	b, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to encode session history: %w", err)
	}
	return string(b), nil
}

func nullUserID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
