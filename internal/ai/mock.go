package ai

import (
	"context"
	"strings"
	"sync"
)

// MockClient stands in for the Gemini API when no key is configured and in
// tests. It records requests so callers can assert on prompt construction.
type MockClient struct {
	Reply string
	Err   error

	mu       sync.Mutex
	requests []Request
}

func (m *MockClient) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if strings.TrimSpace(m.Reply) != "" {
		return m.Reply, nil
	}
	return "Mock response: " + strings.TrimSpace(req.UserPrompt), nil
}

func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockClient) LastRequest() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}
