package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/chat"
	"echochat-backend/internal/database"
)

// Health check
func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// home handles GET /
func (h *Handler) home(c echo.Context) error {
	session := auth.GetSessionFromContext(c)
	if session == nil || !session.IsAuthenticated() {
		return c.Redirect(http.StatusFound, LoginPath)
	}

	user, err := h.auth.GetUser(c.Request().Context(), session.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			session.Destroy()
			return c.Redirect(http.StatusFound, LoginPath)
		}
		return err
	}

	history, err := h.chat.History(c.Request().Context(), chat.Conversation{UserID: user.ID, Session: session})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":    user,
		"history": history,
	})
}

// newErrorHandler renders errors as JSON and hides internals outside development
func newErrorHandler(development bool, logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		} else {
			logger.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
			if development {
				message = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"error": message})
		}
		if err != nil {
			logger.Error("failed to write error response", "error", err)
		}
	}
}

// requestLogger forwards echo's request log into slog
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= 500:
				level = slog.LevelError
			case v.Status >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency.Round(time.Microsecond)),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "HTTP request", attrs...)
			return nil
		},
	})
}
