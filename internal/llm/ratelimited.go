package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedClient waits on a shared token bucket before each call.
// Clients built for the same provider and model share one limiter, so
// many actors backed by one endpoint are throttled together.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
	key     string
}

// NewRateLimitedClient wraps inner with limiter. key names the limiter in
// errors.
func NewRateLimitedClient(inner Client, limiter *rate.Limiter, key string) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, limiter: limiter, key: key}
}

// Complete implements Client.Complete.
func (c *RateLimitedClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit %s: %w", c.key, err)
	}
	return c.inner.Complete(ctx, req)
}

// Available implements Client.Available.
func (c *RateLimitedClient) Available() bool { return c.inner.Available() }
