// Package llm provides the reply capability behind every actor: a chat
// completion client interface with OpenAI-compatible, Anthropic and mock
// backends, plus retrying and rate-limited decorators.
package llm

import (
	"context"
	"time"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single chat completion request.
type Request struct {
	// Model overrides the client's configured model when set.
	Model string

	// System is the persona or instruction text of the caller.
	System string

	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is the text returned by a provider.
type Response struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// ClientConfig configures an LLM client.
type ClientConfig struct {
	// Provider identifies the backend: "openai", "anthropic" or "mock".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint. Any OpenAI-compatible server (vLLM,
	// ollama, OpenRouter) works with the "openai" provider.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIType is carried through from dataset configs; "openai" and "azure"
	// both map to the OpenAI-compatible client.
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Temperature is the sampling temperature the actor starts with.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps the length of each reply.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	// Timeout is the maximum duration to wait for a response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxRetries is the number of extra attempts after a failed call. 0 disables retrying.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`

	// RequestsPerSecond limits calls per provider and model. 0 disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`

	// Burst is the token bucket size used with RequestsPerSecond.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:    "openai",
		BaseURL:     "http://0.0.0.0:8000/v1",
		APIType:     "openai",
		Model:       "Llama-2-13b-chat-hf",
		Temperature: 0,
		MaxTokens:   128,
		Timeout:     60 * time.Second,
		MaxRetries:  2,
		Burst:       1,
	}
}

// Client is the reply capability: generate a reply given a message history.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends the request and returns the model's reply.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Available returns true if the client is configured and ready to handle requests.
	Available() bool
}

// Closer is an optional interface for clients that hold resources requiring cleanup.
type Closer interface {
	Close() error
}

// withSystem returns the request messages with the system text prepended
// as a system-role message, for providers that take it inline.
func withSystem(req Request) []Message {
	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	return append(msgs, req.Messages...)
}
