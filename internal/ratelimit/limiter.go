// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter hands out tokens from one bucket per key. Buckets refill at
// rate tokens per second up to burst. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// refill credits the tokens earned since the bucket was last seen.
func (b *bucket) refill(now time.Time, rate, burst float64) {
	if d := now.Sub(b.seen).Seconds(); d > 0 {
		b.tokens = min(burst, b.tokens+rate*d)
		b.seen = now
	}
}

// NewLimiter returns a limiter refilling at rate tokens per second. New
// keys start with a full bucket of burst tokens; burst is at least 1.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   float64(max(burst, 1)),
		now:     time.Now,
	}
}

// Allow takes a token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, seen: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate, l.burst)

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// ToolLimiters holds one limiter per MCP tool name.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the default set of per-tool rate limiters for
// the MCP server.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"sense_list_scores":     NewLimiter(1.0, 10),      // 60/minute, burst 10
		"sense_get_score":       NewLimiter(1.0, 10),      // 60/minute, burst 10
		"sense_template_report": NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
	}
}

// CheckLimit returns an error when tool has used up its limit. Tools
// without a limiter are never limited.
func CheckLimit(limiters ToolLimiters, tool string) error {
	if l, ok := limiters[tool]; ok && !l.Allow(tool) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", tool)
	}
	return nil
}
