package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/models"
)

// RememberCookieName is the remember-me cookie, independent of the session
const RememberCookieName = "RememberMeToken"

// RememberMeConfig configures the RememberMe middleware
type RememberMeConfig struct {
	LoginPath string
	HomePath  string
	Secure    bool
	// OnRestore is called after a session was restored from the cookie
	OnRestore func(c echo.Context, user *models.User)
}

// RememberMe signs the session in from a valid remember-me cookie.
// Invalid or expired cookies are deleted and the request continues anonymously.
// It must run after the session middleware.
func RememberMe(authSvc *Service, cfg RememberMeConfig, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := GetSessionFromContext(c)
			if session == nil {
				return next(c)
			}

			if !session.IsAuthenticated() {
				restoreFromCookie(c, authSvc, cfg, session, logger)
			}

			req := c.Request()
			if session.IsAuthenticated() && req.Method == http.MethodGet && req.URL.Path == cfg.LoginPath {
				return c.Redirect(http.StatusFound, cfg.HomePath)
			}

			return next(c)
		}
	}
}

func restoreFromCookie(c echo.Context, authSvc *Service, cfg RememberMeConfig, session *models.Session, logger *slog.Logger) {
	cookie, err := c.Cookie(RememberCookieName)
	if err != nil || cookie.Value == "" {
		return
	}

	if !IsRememberToken(cookie.Value) {
		ClearRememberCookie(c, cfg.Secure)
		return
	}

	user, err := authSvc.ResolveRememberToken(c.Request().Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			logger.Error("failed to resolve remember token", "error", err)
		}
		ClearRememberCookie(c, cfg.Secure)
		return
	}

	session.SignIn(user)
	SetRememberCookie(c, cookie.Value, time.Now().Add(RememberTokenTTL), cfg.Secure)

	if cfg.OnRestore != nil {
		cfg.OnRestore(c, user)
	}
}

// SetRememberCookie writes the remember-me cookie
func SetRememberCookie(c echo.Context, token string, expires time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RememberCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRememberCookie deletes the remember-me cookie
func ClearRememberCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     RememberCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
