package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

// SessionCookieName is the cookie carrying the opaque session token
const SessionCookieName = "echochat_session"

// SessionStore persists sessions keyed by the hash of their token
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager loads the session for each request and persists changes
// before the response header is written
type SessionManager struct {
	store       SessionStore
	idleTimeout time.Duration
	secure      bool
	logger      *slog.Logger
}

// NewSessionManager creates a session manager.
// secure controls the Secure flag of the session cookie.
func NewSessionManager(store SessionStore, idleTimeout time.Duration, secure bool, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		store:       store,
		idleTimeout: idleTimeout,
		secure:      secure,
		logger:      logger,
	}
}

// Middleware places the request's session in the context.
// New sessions are only persisted once they carry data.
func (m *SessionManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := m.load(c)
			c.Set(ContextKeySession, session)

			c.Response().Before(func() {
				if err := m.Commit(c, session); err != nil {
					m.logger.Error("failed to persist session", "error", err)
				}
			})

			return next(c)
		}
	}
}

// Commit persists the session now and updates the session cookie.
// Calling it more than once per request is safe.
func (m *SessionManager) Commit(c echo.Context, session *models.Session) error {
	ctx := c.Request().Context()

	switch {
	case session.Destroyed():
		if !session.IsNew() {
			if err := m.store.Delete(ctx, session.TokenHash); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			session.TokenHash = ""
		}
		m.clearCookie(c)
		return nil

	case session.IsNew():
		if !session.Dirty() {
			return nil
		}
		return m.create(c, session)

	case session.NeedsRenewal():
		// rotate the id on sign-in
		if err := m.store.Delete(ctx, session.TokenHash); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return m.create(c, session)

	default:
		session.ExpiresAt = time.Now().Add(m.idleTimeout)
		if err := m.store.Save(ctx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		session.MarkSaved()
		return nil
	}
}

// load returns the stored session for the request cookie or a fresh one
func (m *SessionManager) load(c echo.Context) *models.Session {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		session, err := m.store.GetByTokenHash(c.Request().Context(), HashToken(cookie.Value))
		if err == nil {
			return session
		}
		if !errors.Is(err, database.ErrSessionNotFound) && !errors.Is(err, database.ErrSessionExpired) {
			m.logger.Error("failed to load session", "error", err)
		}
	}

	return &models.Session{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func (m *SessionManager) create(c echo.Context, session *models.Session) error {
	token, err := newSessionToken()
	if err != nil {
		return fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session.TokenHash = HashToken(token)
	session.CreatedAt = now
	session.ExpiresAt = now.Add(m.idleTimeout)

	if err := m.store.Create(c.Request().Context(), session); err != nil {
		session.TokenHash = ""
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.MarkSaved()

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *SessionManager) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// DeleteExpired removes sessions past their idle timeout
func (m *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}
