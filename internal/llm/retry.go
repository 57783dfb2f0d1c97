package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryClient retries failed completions with exponential backoff.
// Retrying is a property of the reply capability; callers above the
// client never retry on their own.
type RetryClient struct {
	inner      Client
	maxRetries int
	initial    time.Duration
	logger     *slog.Logger
}

// NewRetryClient wraps inner. maxRetries is the number of extra attempts.
func NewRetryClient(inner Client, maxRetries int, logger *slog.Logger) *RetryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryClient{
		inner:      inner,
		maxRetries: maxRetries,
		initial:    500 * time.Millisecond,
		logger:     logger,
	}
}

// Complete calls the wrapped client until it succeeds, a non-retryable
// error occurs, or the attempts are used up.
func (c *RetryClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.maxRetries <= 0 {
		return c.inner.Complete(ctx, req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial

	return backoff.Retry(ctx, func() (*Response, error) {
		resp, err := c.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("retrying completion", "error", err, "backoff", next)
		}),
	)
}

// Available implements Client.Available.
func (c *RetryClient) Available() bool { return c.inner.Available() }

// Close closes the wrapped client when it holds resources.
func (c *RetryClient) Close() error {
	if cl, ok := c.inner.(Closer); ok {
		return cl.Close()
	}
	return nil
}
