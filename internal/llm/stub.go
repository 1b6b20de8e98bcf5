package llm

import (
	"context"
	"sync"
)

// StubClient is a deterministic Capability backed by a function.
type StubClient struct {
	model string
	fn    func(prompt string) (string, error)

	mu    sync.Mutex
	calls []string
}

// NewStub returns a stub that answers every prompt with fn.
func NewStub(model string, fn func(prompt string) (string, error)) *StubClient {
	return &StubClient{model: model, fn: fn}
}

// NewEchoStub returns a stub that answers "REVIEWED:" + prompt.
func NewEchoStub(model string) *StubClient {
	return NewStub(model, func(prompt string) (string, error) {
		return "REVIEWED:" + prompt, nil
	})
}

// Invoke records the prompt and returns fn's answer
func (s *StubClient) Invoke(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()
	return s.fn(prompt)
}

// Model returns the stub's model name
func (s *StubClient) Model() string {
	return s.model
}

// Calls returns the prompts received so far, in order.
func (s *StubClient) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
