package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient calls the OpenAI API through the official SDK
type OpenAIClient struct {
	opts   Options
	client openai.Client
}

// NewOpenAIClient creates an SDK-backed client
func NewOpenAIClient(opts Options) *OpenAIClient {
	return &OpenAIClient{
		opts: opts,
		client: openai.NewClient(
			option.WithAPIKey(opts.APIKey),
			option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"),
			option.WithRequestTimeout(opts.Timeout),
			option.WithMaxRetries(0),
		),
	}
}

// Complete sends the conversation to the chat completions endpoint
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}

	res, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.opts.Model),
		Messages:    params,
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{
				Provider:   c.opts.Provider,
				StatusCode: apiErr.StatusCode,
				Body:       apiErr.Message,
			}
		}
		return "", fmt.Errorf("%s request failed: %w", c.opts.Provider, err)
	}

	if len(res.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	reply := strings.TrimSpace(res.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrMalformedResponse
	}
	return reply, nil
}
