package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/database"
	"echochat-backend/internal/models"
)

// AuditLogger records authentication events from handlers
type AuditLogger struct {
	repo   *database.AuditRepo
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(repo *database.AuditRepo, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{repo: repo, logger: logger}
}

// Log records an event; failures are logged but never fail the request
func (l *AuditLogger) Log(c echo.Context, userID int64, username, action, target string, details any) {
	err := l.repo.Log(c.Request().Context(), userID, username, action, target, details, c.RealIP())
	if err != nil {
		l.logger.Error("failed to write audit log", "action", action, "error", err)
	}
}

// activity handles GET /api/auth/activity
func (h *Handler) activity(c echo.Context) error {
	user := auth.GetUserFromContext(c)

	filter := models.AuditFilter{
		UserID: &user.ID,
		Limit:  50,
	}
	if limit := c.QueryParam("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 && l <= 500 {
			filter.Limit = l
		}
	}
	if offset := c.QueryParam("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	logs, total, err := h.audit.repo.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("list audit logs error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list activity",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"events": logs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}
