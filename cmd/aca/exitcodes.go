package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/setup"
)

// Exit codes for the aca CLI.
const (
	ExitOK              = 0   // Success.
	ExitError           = 1   // Invalid arguments, bad config, or an unexpected failure.
	ExitProviderFailure = 2   // One or more provider requests failed.
	ExitSetupAborted    = 3   // A required setup step failed.
	ExitInterrupted     = 130 // Cancelled by SIGINT/SIGTERM.
)

// exitCodeError carries a non-zero exit code through cobra's error handling.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// ExitCode returns the exit code for this error.
func (e *exitCodeError) ExitCode() int { return e.code }

// exitError creates an exitCodeError. If msg is empty, the error message is
// set to a generic description of the exit code.
func exitError(code int, format string, args ...any) *exitCodeError {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		switch code {
		case ExitProviderFailure:
			msg = "aca: provider request failed"
		case ExitSetupAborted:
			msg = "aca: setup aborted"
		case ExitInterrupted:
			msg = "aca: interrupted"
		default:
			msg = "aca: error"
		}
	}
	return &exitCodeError{code: code, msg: msg}
}

// classify maps a core error to an exit code.
func classify(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case setup.IsKind(err, setup.KindRequiredStepAborted):
		return ExitSetupAborted
	case llm.KindOf(err) != 0:
		return ExitProviderFailure
	default:
		return ExitError
	}
}
