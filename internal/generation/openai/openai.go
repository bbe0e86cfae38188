package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"askmynotes/internal/domain"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Config configures the OpenAI-compatible chat model.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// Model is a domain.Model backed by the chat completions API. The SDK's own
// retries are disabled so rate limiting surfaces to the caller's policy.
type Model struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// New creates a chat model reading the API key from cfg.APIKeyEnv.
func New(cfg Config) (*Model, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfig, cfg.APIKeyEnv)
	}
	return NewWithAPIKey(key, cfg), nil
}

// NewWithAPIKey creates a chat model with an explicit key.
func NewWithAPIKey(apiKey string, cfg Config) *Model {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Model{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// ModelName returns the configured model.
func (m *Model) ModelName() string { return m.model }

// Complete sends the system prompt, history and user prompt as one chat.
func (m *Model) Complete(ctx context.Context, systemPrompt string, history []domain.Message, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, msg := range history {
		if msg.Role == domain.RoleUser {
			messages = append(messages, openai.UserMessage(msg.Content))
		} else {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(m.model),
		Messages:    messages,
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		return "", fmt.Errorf("%w: chat completion failed: %w", domain.ErrProvider, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no completion choices returned", domain.ErrProvider)
	}
	return completion.Choices[0].Message.Content, nil
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

var _ domain.Model = (*Model)(nil)
