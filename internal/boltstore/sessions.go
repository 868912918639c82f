// Package boltstore keeps server-side sessions in a bbolt file.
package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

var bucketSessions = []byte("sessions")

// sessionRecord is the stored form of a session, keyed by token hash
type sessionRecord struct {
	ID        int64                `json:"id"`
	UserID    int64                `json:"user_id"`
	Username  string               `json:"username"`
	History   []models.ChatMessage `json:"history"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
	IPAddress string               `json:"ip_address"`
	UserAgent string               `json:"user_agent"`
}

// SessionStore is a bbolt-backed session store
type SessionStore struct {
	db *bbolt.DB
}

// New opens (or creates) the bbolt file at path
func New(path string) (*SessionStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return &SessionStore{db: db}, nil
}

// Close closes the bbolt file
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Create inserts a session. TokenHash must already be set.
func (s *SessionStore) Create(_ context.Context, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		session.ID = int64(seq)
		return put(b, session)
	})
}

// GetByTokenHash retrieves a session by its hashed token.
// Expired sessions are removed and reported as database.ErrSessionExpired.
func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	var rec sessionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get([]byte(tokenHash))
		if data == nil {
			return database.ErrSessionNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}

	if time.Now().After(rec.ExpiresAt) {
		_ = s.delete(tokenHash)
		return nil, database.ErrSessionExpired
	}

	return &models.Session{
		ID:        rec.ID,
		TokenHash: tokenHash,
		UserID:    rec.UserID,
		Username:  rec.Username,
		History:   rec.History,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
		IPAddress: rec.IPAddress,
		UserAgent: rec.UserAgent,
	}, nil
}

// Save overwrites an existing session
func (s *SessionStore) Save(_ context.Context, session *models.Session) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		if b.Get([]byte(session.TokenHash)) == nil {
			return database.ErrSessionNotFound
		}
		return put(b, session)
	})
}

// Delete deletes a session by its hashed token
func (s *SessionStore) Delete(_ context.Context, tokenHash string) error {
	return s.delete(tokenHash)
}

// DeleteExpired removes all expired sessions
func (s *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	var removed int64
	now := time.Now()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		var expired [][]byte

		err := b.ForEach(func(k, v []byte) error {
			var rec sessionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if now.After(rec.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		// keys cannot be deleted while iterating
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}

func (s *SessionStore) delete(tokenHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete([]byte(tokenHash))
	})
}

func put(b *bbolt.Bucket, session *models.Session) error {
	data, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		Username:  session.Username,
		History:   session.History,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return b.Put([]byte(session.TokenHash), data)
}
