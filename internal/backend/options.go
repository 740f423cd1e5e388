// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"log/slog"

	"github.com/aca-dev/aca/internal/testable"
)

// Option configures a backend.
type Option func(*options)

type options struct {
	executor  testable.CommandExecutor
	logger    *slog.Logger
	runtime   ContainerRuntime
	resources func() SystemResources
}

func buildOptions(opts []Option) options {
	o := options{
		executor:  testable.DefaultExecutor(),
		logger:    slog.Default(),
		resources: DetectResources,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// hostOptions re-expresses the resolved options for NewHost.
func (o options) hostOptions() []Option {
	return []Option{WithExecutor(o.executor), WithLogger(o.logger)}
}

// WithExecutor replaces the process factory, typically with a mock.
func WithExecutor(e testable.CommandExecutor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithLogger sets the logger used for per-command debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRuntime sets the container runtime used by the container backend. The
// default drives the docker CLI.
func WithRuntime(rt ContainerRuntime) Option {
	return func(o *options) {
		if rt != nil {
			o.runtime = rt
		}
	}
}

// WithResources replaces host resource detection.
func WithResources(res SystemResources) Option {
	return func(o *options) {
		o.resources = func() SystemResources { return res }
	}
}
