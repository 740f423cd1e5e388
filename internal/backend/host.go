// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aca-dev/aca/internal/testable"
)

// waitDelay bounds how long Run waits for output pipes to drain after the
// child has been killed; grandchildren that inherited the pipes would
// otherwise keep Run blocked.
const waitDelay = 2 * time.Second

// Host runs commands as child processes of the current process. Each child
// gets its own process group so that a timeout or cancellation kills
// everything it started.
type Host struct {
	executor testable.CommandExecutor
	logger   *slog.Logger
}

// Compile-time check that Host satisfies the Backend interface.
var _ Backend = (*Host)(nil)

// NewHost creates a host backend.
func NewHost(opts ...Option) *Host {
	o := buildOptions(opts)
	return &Host{executor: o.executor, logger: o.logger}
}

// Name returns "host".
func (h *Host) Name() string { return "host" }

// Close is a no-op; host processes do not outlive Run.
func (h *Host) Close(context.Context) error { return nil }

// Run starts cmd, waits for it, and reports the outcome. See Backend for the
// error contract.
func (h *Host) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Program == "" {
		return nil, ErrEmptyProgram
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if cmd.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	}
	defer cancel()

	c := h.executor.CommandContext(runCtx, cmd.Program, cmd.Args...)
	if cmd.WorkingDir != "" {
		c.Dir = cmd.WorkingDir
	}
	c.Env = mergeEnv(os.Environ(), cmd.Env)
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = teeTo(&stdout, cmd.Stdout)
	c.Stderr = teeTo(&stderr, cmd.Stderr)
	setProcessGroup(c)
	c.WaitDelay = waitDelay

	h.logger.Debug("running command", "backend", "host", "program", cmd.Program, "args", cmd.Args, "dir", cmd.WorkingDir)

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	// Parent cancellation wins over everything else: the caller asked us to
	// stop, so no synthetic outcome is reported.
	if ctx.Err() != nil {
		return nil, &cancelledError{program: cmd.Program, err: ctx.Err()}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.ExitStatus = ExitStatusTimeout
		res.TimedOut = true
		return res, &Error{Kind: KindTimeout, Program: cmd.Program, Timeout: cmd.Timeout}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			res.ExitStatus = 128 + int(ws.Signal())
			return res, &Error{Kind: KindKilledBySignal, Program: cmd.Program, Signal: ws.Signal().String()}
		}
		res.ExitStatus = exitErr.ExitCode()
		return res, nil
	}

	// The process never started. Report it the way a shell would so that
	// output conditions can match on "not found".
	res.ExitStatus = ExitStatusSpawnFailed
	if len(res.Stderr) > 0 {
		res.Stderr = append(res.Stderr, '\n')
	}
	res.Stderr = append(res.Stderr, err.Error()...)
	return res, &Error{Kind: KindSpawnFailed, Program: cmd.Program, Err: err}
}

// cancelledError wraps the caller's context error with the program name.
type cancelledError struct {
	program string
	err     error
}

func (e *cancelledError) Error() string { return e.program + ": " + e.err.Error() }
func (e *cancelledError) Unwrap() error { return e.err }

// mergeEnv overlays overrides onto base (KEY=VALUE pairs). Overrides are
// appended in sorted order so the resulting environment is deterministic.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}
