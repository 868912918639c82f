package database

import (
	"context"
	"database/sql"
	"time"

	"echochat-backend/internal/models"
)

// ChatRepo stores per-user chat messages
type ChatRepo struct {
	db *sql.DB
}

// NewChatRepo creates a new chat message repository
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Append stores a message for the user
func (r *ChatRepo) Append(ctx context.Context, msg *models.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (user_id, content, is_user, timestamp)
		VALUES (?, ?, ?, ?)
	`, msg.UserID, msg.Content, msg.IsUser, msg.Timestamp.UTC())
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// Recent returns the user's last n messages, oldest first.
// Rows are inserted in chronological order so id order is timestamp order.
func (r *ChatRepo) Recent(ctx context.Context, userID int64, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return []models.ChatMessage{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content, is_user, timestamp FROM (
			SELECT id, user_id, content, is_user, timestamp
			FROM chat_messages WHERE user_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// List returns the full stored history of the user, oldest first
func (r *ChatRepo) List(ctx context.Context, userID int64) ([]models.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, content, is_user, timestamp
		FROM chat_messages WHERE user_id = ? ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// Trim deletes all but the user's last keep messages
func (r *ChatRepo) Trim(ctx context.Context, userID int64, keep int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM chat_messages WHERE user_id = ? AND id NOT IN (
			SELECT id FROM chat_messages WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)
	`, userID, userID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteByUserID removes the user's whole history
func (r *ChatRepo) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM chat_messages WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Content, &msg.IsUser, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
