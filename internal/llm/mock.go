package llm

import (
	"context"
	"sync"
	"time"
)

// MockClient implements Client for testing purposes.
// It allows configuring scripted replies, a reply function, errors and
// artificial latency, and tracks calls for verification.
type MockClient struct {
	mu sync.Mutex

	// Configured responses
	replies   []string
	replyFunc func(req Request) (string, error)
	err       error
	delay     time.Duration
	available bool

	// Call tracking
	Calls []Request
}

// NewMockClient creates a new MockClient with default settings.
// By default, it is available and answers "Yes".
func NewMockClient() *MockClient {
	return &MockClient{
		available: true,
		Calls:     make([]Request, 0),
	}
}

// WithReplies configures replies returned in order. After the list is
// exhausted the last reply is repeated.
func (m *MockClient) WithReplies(replies ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = replies
	return m
}

// WithReplyFunc configures a function that computes each reply.
// It takes precedence over WithReplies.
func (m *MockClient) WithReplyFunc(fn func(req Request) (string, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyFunc = fn
	return m
}

// WithError configures the error returned by Complete.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay makes every call block for d (or until ctx is done).
func (m *MockClient) WithDelay(d time.Duration) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Complete implements Client.Complete.
func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	callIndex := len(m.Calls)
	m.Calls = append(m.Calls, req)
	delay, err, fn := m.delay, m.err, m.replyFunc
	var reply string
	switch {
	case len(m.replies) == 0:
		reply = "Yes"
	case callIndex < len(m.replies):
		reply = m.replies[callIndex]
	default:
		reply = m.replies[len(m.replies)-1]
	}
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if err != nil {
		return nil, err
	}
	if fn != nil {
		text, fnErr := fn(req)
		if fnErr != nil {
			return nil, fnErr
		}
		return &Response{Content: text, FinishReason: "stop"}, nil
	}
	return &Response{Content: reply, FinishReason: "stop"}, nil
}

// Available implements Client.Available.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of times Complete was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or false if there was none.
func (m *MockClient) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// Reset clears call tracking and configured responses.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = nil
	m.replyFunc = nil
	m.err = nil
	m.delay = 0
	m.available = true
	m.Calls = make([]Request, 0)
}
