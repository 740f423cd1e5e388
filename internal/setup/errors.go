// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"errors"
	"fmt"
)

// ErrorKind classifies setup failures.
type ErrorKind int

const (
	KindCommandFailed ErrorKind = iota + 1
	KindCommandTimeout
	KindRequiredStepAborted
	KindBackupFailed
	KindBackend
)

func (k ErrorKind) String() string {
	switch k {
	case KindCommandFailed:
		return "command_failed"
	case KindCommandTimeout:
		return "command_timeout"
	case KindRequiredStepAborted:
		return "required_step_aborted"
	case KindBackupFailed:
		return "backup_failed"
	case KindBackend:
		return "backend"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error describes why a step failed. Only KindRequiredStepAborted is
// returned from Executor.Run; the other kinds are recorded on outcomes.
type Error struct {
	Kind       ErrorKind
	Name       string
	ExitStatus int
	Err        error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindCommandFailed:
		msg = fmt.Sprintf("setup step %q failed with exit status %d", e.Name, e.ExitStatus)
	case KindCommandTimeout:
		msg = fmt.Sprintf("setup step %q timed out", e.Name)
	case KindRequiredStepAborted:
		msg = fmt.Sprintf("required setup step %q failed; setup aborted", e.Name)
	case KindBackupFailed:
		msg = fmt.Sprintf("backup for setup step %q failed with exit status %d", e.Name, e.ExitStatus)
	default:
		msg = fmt.Sprintf("setup step %q: backend error", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
