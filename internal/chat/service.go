// Package chat runs chat turns: it records messages, assembles the
// conversation window and asks the LLM for a reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"echochat-backend/internal/llm"
	"echochat-backend/internal/models"
)

// Fixed replies
const (
	EmptyMessageReply = "Please enter a message."
	NoReply           = "No reply."
)

// Config configures the conversation window
type Config struct {
	Window       int
	HistoryLimit int
	SystemPrompt string
}

// Service handles chat turns
type Service struct {
	store  Store
	client llm.Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a chat service
func NewService(store Store, client llm.Client, cfg Config, logger *slog.Logger) *Service {
	if cfg.HistoryLimit < cfg.Window {
		cfg.HistoryLimit = cfg.Window
	}
	return &Service{
		store:  store,
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RecordAndReply stores the user's message, asks the provider for a reply
// and stores that reply. Provider failures come back as diagnostic reply
// text and are not stored.
func (s *Service) RecordAndReply(ctx context.Context, conv Conversation, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyMessageReply, nil
	}

	err := s.store.Append(ctx, conv, models.ChatMessage{Content: text, IsUser: true, Timestamp: s.now()})
	if err != nil {
		return "", fmt.Errorf("failed to store message: %w", err)
	}

	window, err := s.store.Recent(ctx, conv, s.cfg.Window)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	reply, err := s.client.Complete(ctx, s.buildPrompt(window))
	if err != nil {
		var statusErr *llm.StatusError
		switch {
		case errors.As(err, &statusErr):
			s.logger.Warn("llm provider returned an error", "user_id", conv.UserID, "status", statusErr.StatusCode)
			return statusErr.Error(), nil
		case errors.Is(err, llm.ErrMalformedResponse):
			s.logger.Warn("llm provider returned a malformed response", "user_id", conv.UserID, "error", err)
			reply = NoReply
		default:
			s.logger.Warn("llm request failed", "user_id", conv.UserID, "error", err)
			return "ERROR: " + err.Error(), nil
		}
	}

	err = s.store.Append(ctx, conv, models.ChatMessage{Content: reply, IsUser: false, Timestamp: s.now()})
	if err != nil {
		return "", fmt.Errorf("failed to store reply: %w", err)
	}
	if err := s.store.Truncate(ctx, conv, s.cfg.HistoryLimit); err != nil {
		return "", fmt.Errorf("failed to truncate history: %w", err)
	}

	return reply, nil
}

// History returns the stored conversation, oldest first
func (s *Service) History(ctx context.Context, conv Conversation) ([]models.ChatMessage, error) {
	return s.store.History(ctx, conv)
}

// Clear deletes the stored conversation
func (s *Service) Clear(ctx context.Context, conv Conversation) error {
	return s.store.Clear(ctx, conv)
}

// buildPrompt prepends the system prompt to the window
func (s *Service) buildPrompt(window []models.ChatMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.cfg.SystemPrompt})
	for _, m := range window {
		role := llm.RoleAssistant
		if m.IsUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	return messages
}
