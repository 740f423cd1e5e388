// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package backend runs a single command, either as a host process or inside
// a container, and reports its exit status, captured output and duration.
//
// The setup executor and the CLI-backed LLM providers both run their child
// processes through a Backend, so they share timeout, cancellation and
// process-group semantics.
package backend

import (
	"context"
	"io"
	"time"
)

// Synthetic exit statuses reported when the child never produced one.
const (
	// ExitStatusTimeout is reported when the command was killed because its
	// timeout expired (the coreutils timeout(1) convention).
	ExitStatusTimeout = 124

	// ExitStatusSpawnFailed is reported when the program could not be
	// started at all (the shell's "command not found" convention).
	ExitStatusSpawnFailed = 127
)

// Command describes one program invocation.
type Command struct {
	// Program is the executable name or path.
	Program string

	// Args are passed to the program in order.
	Args []string

	// Env overlays the inherited environment.
	Env map[string]string

	// WorkingDir is the child's working directory. Empty means the backend's
	// default (the current directory on the host, the image's workdir in a
	// container).
	WorkingDir string

	// Timeout bounds the run. Zero means no bound.
	Timeout time.Duration

	// Stdin is written to the child's standard input.
	Stdin string

	// Stdout and Stderr, when non-nil, receive a copy of the child's output
	// as it is produced. The Result still carries the full captured output.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is the outcome of a command that ran (or was synthesized because it
// could not run).
type Result struct {
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
	Duration   time.Duration
	TimedOut   bool
}

// Success reports whether the command exited with status zero.
func (r *Result) Success() bool {
	return r != nil && r.ExitStatus == 0
}

// Backend runs commands. Implementations must be safe for concurrent use.
//
// Run returns a non-nil Result for every command that was attempted,
// including ones that failed to spawn, timed out, or were killed by a signal;
// in those cases the returned error is a *Error describing what happened and
// the Result carries a synthetic exit status. When ctx is cancelled, Run kills
// the child and returns a nil Result with an error wrapping ctx.Err().
type Backend interface {
	Run(ctx context.Context, cmd Command) (*Result, error)

	// Name identifies the backend in logs ("host", "container").
	Name() string

	// Close releases any resources held by the backend. It is idempotent.
	Close(ctx context.Context) error
}
