package llm

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockClient is a scripted Client for tests and offline demo runs. Each call
// to Complete or Stream consumes the next scripted response in order; when
// the script is exhausted it repeats the last entry.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	callCount int

	// TokenDelay inserts a pause between streamed chunks so interactive
	// consumers see realistic pacing. Zero means no delay.
	TokenDelay time.Duration
}

// MockResponse is one scripted reply. A non-nil Err is surfaced instead of
// the content (Complete returns it; Stream emits an error chunk).
type MockResponse struct {
	Content string
	Err     error
}

// NewMockClient creates a mock client with scripted responses.
func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

func (m *MockClient) ModelName() string {
	return "mock"
}

// CallCount reports how many completions have been requested so far.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *MockClient) next() MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		m.callCount++
		return MockResponse{Content: "mock response"}
	}
	idx := m.callCount
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	m.callCount++
	return m.responses[idx]
}

// Complete implements the Client interface.
func (m *MockClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	resp := m.next()
	if resp.Err != nil {
		return CompletionResponse{}, resp.Err
	}
	return CompletionResponse{Content: resp.Content}, nil
}

// Stream implements the Client interface. Content is split on word
// boundaries and delivered one word per chunk, which exercises the same
// incremental paths a real provider does.
func (m *MockClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp := m.next()
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		if resp.Err != nil {
			select {
			case ch <- StreamChunk{Error: resp.Err}:
			case <-ctx.Done():
			}
			return
		}

		words := strings.Fields(resp.Content)
		for i, word := range words {
			chunk := word
			if i < len(words)-1 {
				chunk += " "
			}
			select {
			case ch <- StreamChunk{Content: chunk}:
			case <-ctx.Done():
				return
			}
			if m.TokenDelay > 0 {
				select {
				case <-time.After(m.TokenDelay):
				case <-ctx.Done():
					return
				}
			}
		}

		select {
		case ch <- StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}
