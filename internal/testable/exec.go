// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package testable provides seams over process execution and git discovery
// so that backends and providers can be tested without real agent CLIs,
// container runtimes, or repositories.
package testable

import (
	"context"
	"os/exec"
)

// CommandExecutor is the process seam. The host backend builds every child
// through CommandContext; providers call LookPath to confirm their agent CLI
// is installed before the first request.
type CommandExecutor interface {
	// LookPath resolves an agent or runtime binary on PATH.
	LookPath(file string) (string, error)

	// CommandContext prepares, but does not start, a child process. The host
	// backend sets its pipes, environment and process group before running it.
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// OSExecutor runs real processes.
type OSExecutor struct{}

func (OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (OSExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...) //nolint:gosec // programs come from operator configuration
}

// DefaultExecutor is what backends and providers use unless a test injects
// a MockCommandExecutor.
func DefaultExecutor() CommandExecutor {
	return OSExecutor{}
}
