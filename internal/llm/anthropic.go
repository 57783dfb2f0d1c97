package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	anthropicAPIURL       = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-3-haiku-20240307"
	anthropicMaxTokens    = 1024
)

// AnthropicClient implements the Client interface using the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	endpoint   string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewAnthropicClient creates a new AnthropicClient with the given configuration.
// If config.APIKey is empty, it falls back to the ANTHROPIC_API_KEY environment variable.
// If config.Model is empty, it defaults to claude-3-haiku-20240307.
// If config.Timeout is zero, it defaults to 60 seconds.
func NewAnthropicClient(config ClientConfig) *AnthropicClient {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	endpoint := anthropicAPIURL
	if config.BaseURL != "" {
		endpoint = strings.TrimRight(config.BaseURL, "/") + "/messages"
	}

	model := config.Model
	if model == "" {
		model = anthropicDefaultModel
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &AnthropicClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		model:    model,
		timeout:  timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// anthropicRequest represents a request to the Anthropic Messages API.
type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

// anthropicResponse represents a response from the Anthropic Messages API.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the request to the Messages API.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if !c.Available() {
		return nil, fmt.Errorf("anthropic client not available: missing API key")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	jsonBody, err := json.Marshal(anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages:    mergeTurns(req.Messages),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	for _, content := range apiResp.Content {
		if content.Type == "text" {
			return &Response{Content: content.Text, FinishReason: apiResp.StopReason}, nil
		}
	}

	return nil, fmt.Errorf("no text content in API response")
}

// Available returns true if the API key is present.
func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// mergeTurns folds consecutive messages of the same role into one turn and
// makes sure the conversation opens with a user turn, as the Messages API
// requires alternating roles.
func mergeTurns(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	if len(out) > 0 && out[0].Role != "user" {
		out = append([]Message{{Role: "user", Content: "(conversation start)"}}, out...)
	}
	return out
}
