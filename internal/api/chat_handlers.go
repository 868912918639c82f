package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"echochat-backend/internal/auth"
	"echochat-backend/internal/chat"
	"echochat-backend/internal/models"
)

// conversation identifies the signed-in user's conversation
func conversation(c echo.Context) chat.Conversation {
	return chat.Conversation{
		UserID:  auth.GetUserFromContext(c).ID,
		Session: auth.GetSessionFromContext(c),
	}
}

// history handles GET /api/chat/history
func (h *Handler) history(c echo.Context) error {
	messages, err := h.chat.History(c.Request().Context(), conversation(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"history": messages,
	})
}

// sendMessage handles POST /api/chat/messages
func (h *Handler) sendMessage(c echo.Context) error {
	var req models.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	reply, err := h.chat.RecordAndReply(c.Request().Context(), conversation(c), req.Message)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ChatResponse{Response: reply})
}

// clearHistory handles DELETE /api/chat/history
func (h *Handler) clearHistory(c echo.Context) error {
	if err := h.chat.Clear(c.Request().Context(), conversation(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "history cleared",
	})
}
