// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"sync"
	"time"
)

// MockResponse defines a canned response for the mock provider.
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider is a test double that returns pre-configured responses in
// sequence. After all responses are exhausted, it keeps returning the last
// one. It honors the Provider contract for request IDs, token totals and
// shutdown, and records every request for later assertion.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []Request
	idx       int
	closed    bool
	errors    uint64
	healthErr error
}

var _ Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock that returns the given responses in order.
// With no responses, every request succeeds with content "ok".
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// SetHealthError makes HealthCheck return err.
func (m *MockProvider) SetHealthError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
}

// ExecuteRequest returns the next canned response and records the request.
// It respects context cancellation.
func (m *MockProvider) ExecuteRequest(ctx context.Context, req *Request, _ string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, newError(KindInvalidRequest, "request is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, newError(KindProviderUnavailable, "mock provider has been shut down")
	}
	m.calls = append(m.calls, *req)

	r := MockResponse{Content: "ok"}
	if len(m.responses) > 0 {
		r = m.responses[m.idx]
		if m.idx < len(m.responses)-1 {
			m.idx++
		}
	}
	if r.Err != nil {
		if !IsKind(r.Err, KindRateLimit) {
			m.errors++
		}
		return nil, r.Err
	}

	return &Response{
		RequestID: req.ID,
		Content:   r.Content,
		ModelUsed: "mock",
		Usage:     NewTokenUsage(estimateTokens(req.Prompt), estimateTokens(r.Content), 0),
		Metadata:  map[string]any{},
	}, nil
}

// Calls returns a copy of all requests received by this mock.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears call history and resets the response index to zero.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
	m.idx = 0
}

// Capabilities reports a single "mock" model.
func (m *MockProvider) Capabilities() Capabilities {
	return Capabilities{MaxContextTokens: 100_000, Models: m.ListModels()}
}

// Status reports the mock's error count; the limiter is unbounded.
func (m *MockProvider) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Healthy:    m.healthErr == nil && !m.closed,
		LastCheck:  time.Now(),
		ErrorCount: m.errors,
		RateLimit:  NewRateLimiter(RateLimitConfig{}).Status(),
	}
}

// HealthCheck returns the error set by SetHealthError.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthErr
}

// Name returns "mock".
func (m *MockProvider) Name() string { return "mock" }

// ListModels returns {"mock"}.
func (m *MockProvider) ListModels() []string { return []string{"mock"} }

// EstimateTokens approximates four bytes per token.
func (m *MockProvider) EstimateTokens(text string) uint64 { return estimateTokens(text) }

// Shutdown marks the mock closed.
func (m *MockProvider) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
