package llm

import (
	"context"
	"errors"
	"sync"
)

// Mock is a scripted Completer for tests. Responses are returned in order;
// the last response repeats once the queue is drained.
type Mock struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

// NewMock creates a mock completer that replays the given responses.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// NewMockError creates a mock completer whose every call fails with err.
func NewMockError(err error) *Mock {
	return &Mock{err: err}
}

// Complete implements Completer.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("mock completer: no responses queued")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Prompts returns every prompt seen so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" if none.
func (m *Mock) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
