// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package testable

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// MockResult is the canned behaviour for one mocked command.
type MockResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Sleep delays the command, in shell sleep syntax (e.g. "2"), so tests
	// can exercise timeouts and cancellation.
	Sleep string
}

// MockCommandExecutor is a test double for CommandExecutor. Commands are
// simulated with small sh scripts so that callers still drive a real
// *exec.Cmd (pipes, exit codes, process groups) without the real binary.
type MockCommandExecutor struct {
	// LookPathErr, when non-nil, is returned by LookPath for any file.
	LookPathErr error

	// LookPathResult is returned as the path when LookPathErr is nil. When
	// empty, LookPath returns "/usr/bin/<file>".
	LookPathResult string

	// Results maps a command key (the command name and all arguments joined
	// by spaces) to its simulated result.
	Results map[string]MockResult

	// ByProgram maps a bare program name to a simulated result, used when no
	// exact key in Results matches.
	ByProgram map[string]MockResult

	// Default is used when neither Results nor ByProgram match.
	Default MockResult

	mu    sync.Mutex
	calls []string
}

// LookPath returns the configured result or error.
func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	if m.LookPathErr != nil {
		return "", m.LookPathErr
	}
	if m.LookPathResult != "" {
		return m.LookPathResult, nil
	}
	return "/usr/bin/" + file, nil
}

// CommandContext returns an *exec.Cmd that produces the configured stdout,
// stderr and exit code when run.
func (m *MockCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))

	m.mu.Lock()
	m.calls = append(m.calls, key)
	r, ok := m.Results[key]
	if !ok {
		r, ok = m.ByProgram[name]
	}
	if !ok {
		r = m.Default
	}
	m.mu.Unlock()

	var script strings.Builder
	if r.Sleep != "" {
		fmt.Fprintf(&script, "sleep %s; ", r.Sleep)
	}
	// Drain stdin so writers never block on a closed pipe.
	script.WriteString("cat >/dev/null; ")
	if r.Stdout != "" {
		fmt.Fprintf(&script, "printf '%%s' %s; ", shellQuote(r.Stdout))
	}
	if r.Stderr != "" {
		fmt.Fprintf(&script, "printf '%%s' %s >&2; ", shellQuote(r.Stderr))
	}
	fmt.Fprintf(&script, "exit %d", r.ExitCode)

	return exec.CommandContext(ctx, "sh", "-c", script.String()) //nolint:gosec // test helper
}

// Calls returns a copy of the command keys invoked so far.
func (m *MockCommandExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
