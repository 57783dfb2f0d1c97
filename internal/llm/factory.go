package llm

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Factory builds provider clients and decorates them with rate limiting
// and retries. Rate limiters are shared per provider and model for the
// lifetime of the factory, so one factory should serve a whole batch.
type Factory struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	logger   *slog.Logger
}

// NewFactory creates a Factory. A nil logger uses slog.Default().
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		limiters: make(map[string]*rate.Limiter),
		logger:   logger,
	}
}

// New returns a ready-to-use client for cfg.
func (f *Factory) New(cfg ClientConfig) (Client, error) {
	var base Client
	switch provider := strings.ToLower(cfg.Provider); provider {
	case "", "openai", "azure", "vllm", "ollama":
		base = NewOpenAIClient(cfg)
	case "anthropic":
		base = NewAnthropicClient(cfg)
	case "mock":
		// Dry runs: every actor agrees with everything.
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (valid: openai, anthropic, mock)", cfg.Provider)
	}

	var client Client = base
	if cfg.RequestsPerSecond > 0 {
		key := limiterKey(cfg)
		client = NewRateLimitedClient(client, f.limiter(key, cfg), key)
	}
	if cfg.MaxRetries > 0 {
		client = NewRetryClient(client, cfg.MaxRetries, f.logger)
	}
	return client, nil
}

// limiter returns the limiter shared by key. Burst is at least 1 so that
// Wait can always make progress.
func (f *Factory) limiter(key string, cfg ClientConfig) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
		f.limiters[key] = l
	}
	return l
}

func limiterKey(cfg ClientConfig) string {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	return provider + "|" + cfg.BaseURL + "|" + cfg.Model
}
