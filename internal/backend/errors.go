// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyProgram is returned when a Command has no program.
var ErrEmptyProgram = errors.New("backend: command has no program")

// ErrorKind classifies backend failures.
type ErrorKind int

const (
	// KindSpawnFailed means the program could not be started.
	KindSpawnFailed ErrorKind = iota + 1
	// KindTimeout means the command's timeout expired and it was killed.
	KindTimeout
	// KindKilledBySignal means the child terminated on a signal it did not
	// receive from us.
	KindKilledBySignal
)

func (k ErrorKind) String() string {
	switch k {
	case KindSpawnFailed:
		return "spawn failed"
	case KindTimeout:
		return "timeout"
	case KindKilledBySignal:
		return "killed by signal"
	default:
		return "unknown"
	}
}

// Error is returned alongside a synthetic Result when a command did not exit
// normally.
type Error struct {
	Kind    ErrorKind
	Program string
	Timeout time.Duration
	Signal  string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: timed out after %s", e.Program, e.Timeout)
	case KindKilledBySignal:
		return fmt.Sprintf("%s: killed by signal %s", e.Program, e.Signal)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Program, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Program, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}
