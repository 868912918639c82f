// Package llm talks to chat-completion providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echochat-backend/internal/config"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrMalformedResponse is returned when a 2xx response lacks choices[0].message.content
var ErrMalformedResponse = errors.New("malformed completion response")

// Message is one entry of a chat-completion request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client sends a conversation to a provider and returns the reply text
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options are the generation parameters shared by every provider
type Options struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// StatusError reports a non-2xx provider response
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s ERROR %d: %s", strings.ToUpper(e.Provider), e.StatusCode, e.Body)
}

// New returns the client for the configured provider
func New(cfg config.LLMConfig) (Client, error) {
	opts := Options{
		Provider:    cfg.Provider,
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}

	switch cfg.Provider {
	case config.ProviderTogether, config.ProviderGroq:
		return NewCompatClient(opts), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
