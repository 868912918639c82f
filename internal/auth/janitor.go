package auth

import (
	"context"
	"log/slog"
	"time"
)

// RememberTokenCleaner drops remember-me tokens past their expiry
type RememberTokenCleaner interface {
	ClearExpiredRememberTokens(ctx context.Context) (int64, error)
}

// Janitor periodically deletes expired sessions and remember-me tokens
type Janitor struct {
	sessions *SessionManager
	users    RememberTokenCleaner
	interval time.Duration
	logger   *slog.Logger
}

// NewJanitor creates a janitor running every interval
func NewJanitor(sessions *SessionManager, users RememberTokenCleaner, interval time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		sessions: sessions,
		users:    users,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is done
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass
func (j *Janitor) Sweep(ctx context.Context) {
	sessions, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("failed to delete expired sessions", "error", err)
	}

	tokens, err := j.users.ClearExpiredRememberTokens(ctx)
	if err != nil {
		j.logger.Error("failed to clear expired remember tokens", "error", err)
	}

	if sessions > 0 || tokens > 0 {
		j.logger.Info("janitor sweep", "sessions_deleted", sessions, "remember_tokens_cleared", tokens)
	}
}
