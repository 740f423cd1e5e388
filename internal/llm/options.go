// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/metrics"
	"github.com/aca-dev/aca/internal/testable"
)

// Option configures provider construction.
type Option func(*providerOptions)

type providerOptions struct {
	backend     backend.Backend
	executor    testable.CommandExecutor
	logger      *slog.Logger
	metrics     *metrics.Recorder
	repo        testable.RepoDetector
	limiterOpts []LimiterOption
	apiOpts     []option.RequestOption
}

func buildProviderOptions(opts []Option) *providerOptions {
	o := &providerOptions{
		executor: testable.DefaultExecutor(),
		logger:   slog.Default(),
		repo:     testable.RealRepoDetector{},
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.backend == nil {
		o.backend = backend.NewHost(backend.WithExecutor(o.executor), backend.WithLogger(o.logger))
	}
	return o
}

// WithBackend runs agent CLIs through b instead of a host backend built from
// the executor.
func WithBackend(b backend.Backend) Option {
	return func(o *providerOptions) { o.backend = b }
}

// WithExecutor replaces process lookup and creation, typically with a mock.
func WithExecutor(e testable.CommandExecutor) Option {
	return func(o *providerOptions) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithLogger sets the provider's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *providerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records request metrics into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *providerOptions) { o.metrics = r }
}

// WithRepoDetector replaces git repository detection for the Codex provider.
func WithRepoDetector(d testable.RepoDetector) Option {
	return func(o *providerOptions) {
		if d != nil {
			o.repo = d
		}
	}
}

// WithLimiterOptions passes options through to the provider's rate limiter.
func WithLimiterOptions(opts ...LimiterOption) Option {
	return func(o *providerOptions) { o.limiterOpts = append(o.limiterOpts, opts...) }
}

// WithAPIRequestOptions adds Anthropic SDK request options for Claude API
// mode, e.g. a custom HTTP client.
func WithAPIRequestOptions(opts ...option.RequestOption) Option {
	return func(o *providerOptions) { o.apiOpts = append(o.apiOpts, opts...) }
}
