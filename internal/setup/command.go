// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aca-dev/aca/internal/backend"
)

// Command is one entry of a setup plan.
type Command struct {
	// Name identifies the step and must be unique within a plan.
	Name       string
	Program    string
	Args       []string
	WorkingDir string
	Env        map[string]string
	// Timeout bounds each attempt. Zero means no bound.
	Timeout time.Duration
	// Required steps abort the plan when they finally fail.
	Required bool
	// Handler is applied on failure. Nil means none.
	Handler Handler
}

// NewCommand returns a required command with no handler.
func NewCommand(name, program string, args ...string) Command {
	return Command{Name: name, Program: program, Args: args, Required: true}
}

func (c Command) backendCommand() backend.Command {
	return backend.Command{
		Program:    c.Program,
		Args:       c.Args,
		Env:        c.Env,
		WorkingDir: c.WorkingDir,
		Timeout:    c.Timeout,
	}
}

// Handler is the failure policy of a command: exactly one of Skip, Retry or
// Backup.
type Handler interface {
	handlerKind() string
}

// Skip logs the failure and continues with the next command.
type Skip struct {
	Name string
}

// Retry re-runs the command after a fixed delay, up to MaxAttempts
// additional times.
type Retry struct {
	Name        string
	MaxAttempts int
	Delay       time.Duration
}

// Backup runs an alternative program when the first failure matches
// Condition. The backup inherits the command's env, working directory and
// timeout.
type Backup struct {
	Name      string
	Condition Condition
	Program   string
	Args      []string
}

func (Skip) handlerKind() string   { return "skip" }
func (Retry) handlerKind() string  { return "retry" }
func (Backup) handlerKind() string { return "backup" }

// HandlerKind returns "skip", "retry", "backup", or "" for no handler.
func HandlerKind(h Handler) string {
	if h == nil {
		return ""
	}
	return h.handlerKind()
}

// Validate checks a plan before anything runs. Every problem is reported.
func Validate(cmds []Command) error {
	var errs []error
	seen := make(map[string]bool, len(cmds))
	for i, c := range cmds {
		where := fmt.Sprintf("setup[%d]", i)
		if c.Name != "" {
			where += " (" + c.Name + ")"
		}
		if strings.TrimSpace(c.Name) == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else if seen[c.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", where))
		}
		seen[c.Name] = true
		if strings.TrimSpace(c.Program) == "" {
			errs = append(errs, fmt.Errorf("%s: program is required", where))
		}
		if c.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s: timeout must not be negative", where))
		}
		switch h := c.Handler.(type) {
		case nil, Skip:
		case Retry:
			if h.MaxAttempts < 1 {
				errs = append(errs, fmt.Errorf("%s: retry max_attempts must be at least 1, got %d", where, h.MaxAttempts))
			}
			if h.Delay < 0 {
				errs = append(errs, fmt.Errorf("%s: retry delay must not be negative", where))
			}
		case Backup:
			if h.Condition == nil {
				errs = append(errs, fmt.Errorf("%s: backup condition is required", where))
			}
			if strings.TrimSpace(h.Program) == "" {
				errs = append(errs, fmt.Errorf("%s: backup program is required", where))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unsupported handler %T", where, h))
		}
	}
	return errors.Join(errs...)
}
