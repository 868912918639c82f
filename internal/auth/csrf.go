package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// CSRFHeader is the request header carrying the CSRF token
const CSRFHeader = "X-CSRF-Token"

const csrfTokenTTL = time.Hour

// CSRFProtection provides CSRF token generation and validation.
// Tokens are bound to the session they were issued for.
type CSRFProtection struct {
	mu     sync.RWMutex
	tokens map[string]*csrfToken
}

type csrfToken struct {
	createdAt time.Time
	sessionID int64
}

// NewCSRFProtection creates a new CSRF protection instance
func NewCSRFProtection() *CSRFProtection {
	return &CSRFProtection{
		tokens: make(map[string]*csrfToken),
	}
}

// GenerateToken generates a new CSRF token for a persisted session
func (p *CSRFProtection) GenerateToken(sessionID int64) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[HashToken(token)] = &csrfToken{
		createdAt: time.Now(),
		sessionID: sessionID,
	}

	return token, nil
}

// ValidateToken validates a CSRF token against the session it must belong to
func (p *CSRFProtection) ValidateToken(token string, sessionID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t, exists := p.tokens[HashToken(token)]
	if !exists {
		return false
	}
	if time.Since(t.createdAt) > csrfTokenTTL {
		return false
	}
	return t.sessionID == sessionID
}

// InvalidateSession drops every token issued for the session (e.g., on logout)
func (p *CSRFProtection) InvalidateSession(sessionID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, t := range p.tokens {
		if t.sessionID == sessionID {
			delete(p.tokens, key)
		}
	}
}

// Run removes expired tokens periodically until ctx is done
func (p *CSRFProtection) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.removeExpired()
		}
	}
}

func (p *CSRFProtection) removeExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for key, t := range p.tokens {
		if now.Sub(t.createdAt) > csrfTokenTTL {
			delete(p.tokens, key)
		}
	}
}

// Middleware validates CSRF tokens on state-changing requests of signed-in sessions
func (p *CSRFProtection) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(c)
			}

			session := GetSessionFromContext(c)
			if session == nil || !session.IsAuthenticated() {
				// RequireAuth rejects these
				return next(c)
			}

			token := c.Request().Header.Get(CSRFHeader)
			if token == "" {
				token = c.FormValue("_csrf")
			}
			if token == "" {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "CSRF token required",
				})
			}

			if !p.ValidateToken(token, session.ID) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid CSRF token",
				})
			}

			return next(c)
		}
	}
}
