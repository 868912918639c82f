package models

import "time"

// Session is the server-side state bound to the session cookie
type Session struct {
	ID        int64         `json:"id"`
	TokenHash string        `json:"-"` // Never expose in JSON
	UserID    int64         `json:"user_id"`
	Username  string        `json:"username"`
	History   []ChatMessage `json:"history,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	IPAddress string        `json:"ip_address"`
	UserAgent string        `json:"user_agent"`

	dirty     bool
	renew     bool
	destroyed bool
}

// IsAuthenticated returns true if a user is signed in on this session
func (s *Session) IsAuthenticated() bool {
	return s.UserID != 0
}

// IsNew returns true if the session has not been persisted yet
func (s *Session) IsNew() bool {
	return s.TokenHash == ""
}

// SignIn binds the user to the session and requests a new session id.
// History left by a different user is dropped.
func (s *Session) SignIn(user *User) {
	if s.UserID != user.ID {
		s.History = nil
	}
	s.UserID = user.ID
	s.Username = user.Username
	s.dirty = true
	s.renew = true
}

// SetHistory replaces the session chat history
func (s *Session) SetHistory(history []ChatMessage) {
	s.History = history
	s.dirty = true
}

// Destroy marks the session for removal at the end of the request
func (s *Session) Destroy() {
	s.UserID = 0
	s.Username = ""
	s.History = nil
	s.destroyed = true
}

// Dirty reports whether the session carries unsaved changes
func (s *Session) Dirty() bool { return s.dirty }

// NeedsRenewal reports whether the session id must be rotated
func (s *Session) NeedsRenewal() bool { return s.renew }

// Destroyed reports whether Destroy was called
func (s *Session) Destroyed() bool { return s.destroyed }

// MarkSaved clears the pending change flags after the session was persisted
func (s *Session) MarkSaved() {
	s.dirty = false
	s.renew = false
}
