package chat

import (
	"context"
	"errors"

	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

// ErrNoSession is returned by the session store when the conversation has no session
var ErrNoSession = errors.New("conversation has no session")

// Conversation identifies whose history a chat turn reads and writes
type Conversation struct {
	UserID  int64
	Session *models.Session
}

// Store persists the messages of a conversation
type Store interface {
	Append(ctx context.Context, conv Conversation, msg models.ChatMessage) error
	// Recent returns at most n of the newest messages, oldest first
	Recent(ctx context.Context, conv Conversation, n int) ([]models.ChatMessage, error)
	History(ctx context.Context, conv Conversation) ([]models.ChatMessage, error)
	Truncate(ctx context.Context, conv Conversation, keep int) error
	Clear(ctx context.Context, conv Conversation) error
}

// DatabaseStore keeps history in the chat_messages table, keyed by user
type DatabaseStore struct {
	repo *database.ChatRepo
}

// NewDatabaseStore creates a table-backed store
func NewDatabaseStore(repo *database.ChatRepo) *DatabaseStore {
	return &DatabaseStore{repo: repo}
}

// Append inserts a message for the conversation's user
func (s *DatabaseStore) Append(ctx context.Context, conv Conversation, msg models.ChatMessage) error {
	msg.UserID = conv.UserID
	return s.repo.Append(ctx, &msg)
}

// Recent returns the user's newest n messages in insertion order
func (s *DatabaseStore) Recent(ctx context.Context, conv Conversation, n int) ([]models.ChatMessage, error) {
	return s.repo.Recent(ctx, conv.UserID, n)
}

// History returns all stored messages of the user
func (s *DatabaseStore) History(ctx context.Context, conv Conversation) ([]models.ChatMessage, error) {
	return s.repo.List(ctx, conv.UserID)
}

// Truncate deletes all but the newest keep rows
func (s *DatabaseStore) Truncate(ctx context.Context, conv Conversation, keep int) error {
	_, err := s.repo.Trim(ctx, conv.UserID, keep)
	return err
}

// Clear deletes the user's messages
func (s *DatabaseStore) Clear(ctx context.Context, conv Conversation) error {
	_, err := s.repo.DeleteByUserID(ctx, conv.UserID)
	return err
}

// SessionStore keeps history inside the HTTP session
type SessionStore struct{}

// NewSessionStore creates a session-backed store
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Append adds a message to the session history
func (s *SessionStore) Append(_ context.Context, conv Conversation, msg models.ChatMessage) error {
	if conv.Session == nil {
		return ErrNoSession
	}
	history := append([]models.ChatMessage(nil), conv.Session.History...)
	conv.Session.SetHistory(append(history, msg))
	return nil
}

// Recent returns the newest n messages of the session
func (s *SessionStore) Recent(_ context.Context, conv Conversation, n int) ([]models.ChatMessage, error) {
	if conv.Session == nil {
		return nil, ErrNoSession
	}
	return lastN(conv.Session.History, n), nil
}

// History returns a copy of the session history
func (s *SessionStore) History(_ context.Context, conv Conversation) ([]models.ChatMessage, error) {
	if conv.Session == nil {
		return nil, ErrNoSession
	}
	return lastN(conv.Session.History, len(conv.Session.History)), nil
}

// Truncate keeps only the newest keep messages
func (s *SessionStore) Truncate(_ context.Context, conv Conversation, keep int) error {
	if conv.Session == nil {
		return ErrNoSession
	}
	if len(conv.Session.History) > keep {
		conv.Session.SetHistory(lastN(conv.Session.History, keep))
	}
	return nil
}

// Clear empties the session history
func (s *SessionStore) Clear(_ context.Context, conv Conversation) error {
	if conv.Session == nil {
		return ErrNoSession
	}
	conv.Session.SetHistory(nil)
	return nil
}

// lastN copies the newest n messages
func lastN(history []models.ChatMessage, n int) []models.ChatMessage {
	if n <= 0 {
		return []models.ChatMessage{}
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]models.ChatMessage{}, history...)
}
