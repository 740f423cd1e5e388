// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package llm provides a provider-agnostic request pipeline over external LLM
// coding agents: a per-provider rate limiter, session audit files, a typed
// error taxonomy, and Provider implementations for the Claude and Codex CLIs.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider normalizes one external LLM agent behind a uniform contract.
// Implementations must be safe for concurrent use.
type Provider interface {
	// ExecuteRequest admits req through the provider's rate limiter, runs
	// it, and returns the normalized response. When sessionDir is non-empty
	// the invoked command line and the agent's stdout and stderr are written
	// there as <id>.cmd, <id>.stdout and <id>.stderr.
	ExecuteRequest(ctx context.Context, req *Request, sessionDir string) (*Response, error)

	// Capabilities reports what the provider supports.
	Capabilities() Capabilities

	// Status reports health, error count, latency and limiter state.
	Status() Status

	// HealthCheck runs a cheap probe and updates Status.
	HealthCheck(ctx context.Context) error

	// Name is a stable identifier such as "claude" or "codex".
	Name() string

	// ListModels returns the model identifiers the provider accepts.
	ListModels() []string

	// EstimateTokens approximates the token count of text.
	EstimateTokens(text string) uint64

	// Shutdown releases held resources. Later requests fail with
	// KindProviderUnavailable. Calling it more than once is safe.
	Shutdown(ctx context.Context) error
}

// Request is the unit of work submitted to a provider.
type Request struct {
	// ID is unique per request and names the audit files.
	ID uuid.UUID

	Prompt string

	// Context is rendered as a sorted "key: value" block ahead of the prompt.
	Context map[string]string

	// MaxTokens caps the output. Zero means the provider default.
	MaxTokens int

	// Temperature in [0, 2]. Nil means the provider default.
	Temperature *float64

	// ModelPreference overrides the configured model when set.
	ModelPreference string

	// SystemMessage is prepended to the prompt.
	SystemMessage string

	// EstimatedTokens is what the rate limiter charges. Zero lets the
	// provider estimate it from the rendered prompt.
	EstimatedTokens uint64
}

// NewRequest returns a request with a fresh ID.
func NewRequest(prompt string) *Request {
	return &Request{
		ID:      uuid.New(),
		Prompt:  prompt,
		Context: map[string]string{},
	}
}

// Validate checks field ranges.
func (r *Request) Validate() error {
	if r.ID == uuid.Nil {
		return newError(KindInvalidRequest, "request id is empty")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return newError(KindInvalidRequest, "prompt is empty")
	}
	if r.MaxTokens < 0 {
		return newError(KindInvalidRequest, fmt.Sprintf("max_tokens must be positive, got %d", r.MaxTokens))
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return newError(KindInvalidRequest, fmt.Sprintf("temperature must be in [0, 2], got %g", *r.Temperature))
	}
	return nil
}

// Response is the result of a successful request.
type Response struct {
	// RequestID always equals the originating Request.ID.
	RequestID     uuid.UUID
	Content       string
	ModelUsed     string
	Usage         TokenUsage
	ExecutionTime time.Duration
	Metadata      map[string]any
}

// TokenUsage reports consumption. Total is always Input + Output; build it
// with NewTokenUsage.
type TokenUsage struct {
	Input         uint64
	Output        uint64
	Total         uint64
	EstimatedCost float64
}

// NewTokenUsage returns a usage record with Total computed.
func NewTokenUsage(input, output uint64, cost float64) TokenUsage {
	return TokenUsage{Input: input, Output: output, Total: input + output, EstimatedCost: cost}
}

// Capabilities describes a provider.
type Capabilities struct {
	Streaming        bool
	FunctionCalling  bool
	Vision           bool
	MaxContextTokens uint64
	Models           []string
}

// Status is a point-in-time view of a provider.
type Status struct {
	Healthy   bool
	LastCheck time.Time
	// ErrorCount is monotonic since construction. Local rate-limit
	// rejections are not counted.
	ErrorCount uint64
	// AverageResponseTime is an exponentially weighted moving average over
	// roughly the last 32 successful requests.
	AverageResponseTime time.Duration
	RateLimit           RateLimitStatus
}
