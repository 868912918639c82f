package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/models"
)

// loginPage handles GET /api/auth/login.
// Signed-in sessions never get here, RememberMe redirects them home.
func (h *Handler) loginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		"authenticated": false,
	})
}

// register handles POST /api/auth/register
func (h *Handler) register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if err := auth.ValidateRegistration(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": validationMessage(err),
		})
	}

	user, err := h.auth.CreateUser(c.Request().Context(), req.Username, req.Password, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateUsername):
			return c.JSON(http.StatusConflict, map[string]string{
				"error": "username is already taken",
			})
		case errors.Is(err, auth.ErrValidation):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": validationMessage(err),
			})
		default:
			return err
		}
	}

	h.audit.Log(c, user.ID, user.Username, models.ActionRegister, user.Username, nil)

	return c.JSON(http.StatusCreated, map[string]any{
		"user": user,
	})
}

// login handles POST /api/auth/login
func (h *Handler) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	user, err := h.auth.ValidateCredentials(ctx, req.Username, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit.Log(c, 0, req.Username, models.ActionLoginFailed, req.Username, nil)
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid username or password",
			})
		}
		return err
	}

	h.limiter.RecordSuccess(c.RealIP())
	auth.GetSessionFromContext(c).SignIn(user)

	if req.RememberMe {
		token, expiry, err := h.auth.IssueRememberToken(ctx, user)
		if err != nil {
			return err
		}
		auth.SetRememberCookie(c, token, expiry, h.secure)
	} else {
		auth.ClearRememberCookie(c, h.secure)
	}

	h.audit.Log(c, user.ID, user.Username, models.ActionLogin, user.Username, map[string]bool{
		"remember_me": req.RememberMe,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"user": user,
	})
}

// logout handles POST /api/auth/logout
func (h *Handler) logout(c echo.Context) error {
	user := auth.GetUserFromContext(c)
	session := auth.GetSessionFromContext(c)

	if err := h.auth.ClearRememberToken(c.Request().Context(), user.ID); err != nil {
		h.logger.Error("logout error", "user_id", user.ID, "error", err)
	}

	h.csrf.InvalidateSession(session.ID)
	session.Destroy()
	auth.ClearRememberCookie(c, h.secure)

	h.audit.Log(c, user.ID, user.Username, models.ActionLogout, user.Username, nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// me handles GET /api/auth/me
func (h *Handler) me(c echo.Context) error {
	session := auth.GetSessionFromContext(c)

	return c.JSON(http.StatusOK, map[string]any{
		"user": auth.GetUserFromContext(c),
		"session": map[string]any{
			"created_at": session.CreatedAt,
			"expires_at": session.ExpiresAt,
		},
	})
}

// csrfToken handles GET /api/auth/csrf
func (h *Handler) csrfToken(c echo.Context) error {
	session := auth.GetSessionFromContext(c)

	// a session restored from the remember-me cookie has no id until it is stored
	if err := h.sessions.Commit(c, session); err != nil {
		return err
	}

	token, err := h.csrf.GenerateToken(session.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"csrf_token": token,
	})
}

// validationMessage strips the sentinel prefix from a validation error
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), auth.ErrValidation.Error()+": ")
}
