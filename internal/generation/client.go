package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"askmynotes/internal/domain"
)

// Request is one generation call: a system instruction, prior turns and the
// new user prompt.
type Request struct {
	System  string
	History []domain.Message
	Prompt  string
}

// Client isolates callers from provider rate limiting and loose output.
type Client struct {
	model  domain.Model
	policy Policy
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPolicy overrides the retry policy.
func WithPolicy(p Policy) ClientOption {
	return func(c *Client) {
		c.policy = p
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient wraps model with the default retry policy.
func NewClient(model domain.Model, opts ...ClientOption) *Client {
	c := &Client{
		model:  model,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Complete sends req to the model, retrying rate-limited attempts. Errors
// other than rate limiting are wrapped in domain.ErrProvider.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	policy := c.policy
	userHook := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.logger.Warn("model rate limited, backing off",
			"attempt", attempt+1,
			"wait", wait.String(),
			"error", err,
		)
		if userHook != nil {
			userHook(attempt, err, wait)
		}
	}

	started := time.Now()
	text, err := Retry(ctx, policy, func(ctx context.Context) (string, error) {
		return c.model.Complete(ctx, req.System, req.History, req.Prompt)
	})
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return "", fmt.Errorf("retry budget of %d exhausted: %w", policy.MaxRetries, err)
		}
		if !errors.Is(err, domain.ErrProvider) {
			err = fmt.Errorf("%w: %w", domain.ErrProvider, err)
		}
		return "", err
	}

	c.logger.Debug("model completed",
		"duration", time.Since(started).String(),
		"responseLength", len(text),
	)
	return text, nil
}
