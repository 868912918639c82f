package api

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"echochat-backend/internal/models"
)

type wsUpgrader struct {
	websocket.Upgrader
}

// newWSUpgrader accepts same-host origins and the configured CORS origins
func newWSUpgrader(allowedOrigins []string) *wsUpgrader {
	return &wsUpgrader{websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*") {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}}
}

// chatSocket handles GET /api/chat/ws.
// Each client frame {"message": ...} is answered with {"response": ...}.
func (h *Handler) chatSocket(c echo.Context) error {
	conv := conversation(c)

	// the handshake is the last chance to send Set-Cookie, so a session
	// restored on this request is stored before upgrading
	if err := h.sessions.Commit(c, conv.Session); err != nil {
		return err
	}

	ws, err := h.upgrader.Upgrade(c.Response().Writer, c.Request(), c.Response().Header())
	if err != nil {
		// Upgrade already wrote the error response
		h.logger.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	defer ws.Close()

	h.logger.Info("chat socket connected", "user_id", conv.UserID)

	ctx := c.Request().Context()
	for {
		var req models.ChatRequest
		if err := ws.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("chat socket read ended", "user_id", conv.UserID, "error", err)
			}
			return nil
		}

		reply, err := h.chat.RecordAndReply(ctx, conv, req.Message)
		if err != nil {
			h.logger.Error("chat socket turn failed", "user_id", conv.UserID, "error", err)
			_ = ws.WriteJSON(map[string]string{"error": "failed to process message"})
			return nil
		}

		// the hijacked response never writes headers, so store session changes here
		if err := h.sessions.Commit(c, conv.Session); err != nil {
			h.logger.Error("failed to persist session", "error", err)
		}

		if err := ws.WriteJSON(models.ChatResponse{Response: reply}); err != nil {
			h.logger.Debug("chat socket write failed", "user_id", conv.UserID, "error", err)
			return nil
		}
	}
}
