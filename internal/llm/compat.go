package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// CompatClient calls OpenAI-compatible chat-completion endpoints (Together, Groq)
type CompatClient struct {
	opts   Options
	client *resty.Client
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewCompatClient creates a client authenticating with a static bearer token
func NewCompatClient(opts Options) *CompatClient {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: opts.APIKey,
		TokenType:   "Bearer",
	}))

	client := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &CompatClient{opts: opts, client: client}
}

// Complete posts the conversation to /chat/completions
func (c *CompatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:       c.opts.Model,
			Messages:    messages,
			Temperature: c.opts.Temperature,
			MaxTokens:   c.opts.MaxTokens,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.opts.Provider, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", &StatusError{
			Provider:   c.opts.Provider,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	var out completionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message == nil || out.Choices[0].Message.Content == nil {
		return "", ErrMalformedResponse
	}

	reply := strings.TrimSpace(*out.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrMalformedResponse
	}
	return reply, nil
}
