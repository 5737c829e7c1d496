package llm

import (
	"context"
	"sync"
)

// MockService is an in-memory Service implementation for tests.
type MockService struct {
	mu sync.Mutex

	// Reply is returned on success. If Err is non-nil it is returned instead.
	Reply string
	Err   error
	// Delay blocks completion until ctx is done or the delay elapses,
	// simulating a slow model.
	Delay func(ctx context.Context) error

	calls [][]Message
}

// NewMockService creates a mock that echoes a fixed reply.
func NewMockService(reply string) *MockService {
	return &MockService{Reply: reply}
}

// Complete records the call and returns the configured reply or error.
func (m *MockService) Complete(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	copied := make([]Message, len(messages))
	copy(copied, messages)
	m.calls = append(m.calls, copied)
	delay := m.Delay
	reply, err := m.Reply, m.Err
	m.mu.Unlock()

	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return "", derr
		}
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Calls returns the recorded context windows, one per invocation.
func (m *MockService) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ Service = (*MockService)(nil)
