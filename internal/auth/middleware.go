package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

// Context keys for storing request state
const (
	ContextKeyUser    = "user"
	ContextKeySession = "session"
)

// RequireAuth rejects requests whose session carries no user and
// loads the signed-in user into the context
func RequireAuth(authSvc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := GetSessionFromContext(c)
			if session == nil || !session.IsAuthenticated() {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			user, err := authSvc.GetUser(c.Request().Context(), session.UserID)
			if err != nil {
				if errors.Is(err, database.ErrUserNotFound) {
					// account is gone, drop the stale session
					session.Destroy()
					return c.JSON(http.StatusUnauthorized, map[string]string{
						"error": "authentication required",
					})
				}
				return err
			}

			c.Set(ContextKeyUser, user)
			return next(c)
		}
	}
}

// GetUserFromContext retrieves the authenticated user from context
func GetUserFromContext(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionFromContext retrieves the request session from context
func GetSessionFromContext(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}
