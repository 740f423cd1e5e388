// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"time"
)

// State is the final state of one step.
type State int

const (
	Succeeded State = iota + 1
	SkippedAfterFailure
	RecoveredByBackup
	FailedRequired
	FailedOptional
)

func (s State) String() string {
	switch s {
	case Succeeded:
		return "Succeeded"
	case SkippedAfterFailure:
		return "SkippedAfterFailure"
	case RecoveredByBackup:
		return "RecoveredByBackup"
	case FailedRequired:
		return "FailedRequired"
	case FailedOptional:
		return "FailedOptional"
	default:
		return "Unknown"
	}
}

// Outcome records one executed step.
type Outcome struct {
	Name string
	// Attempts counts runs of the primary program; a backup run is not an
	// attempt.
	Attempts int
	// ExitStatus, Stdout and Stderr come from the last process run for the
	// step, which is the backup when one ran.
	ExitStatus int
	Stdout     []byte
	Stderr     []byte
	// Duration covers every attempt, retry delays and the backup.
	Duration time.Duration
	// HandlerInvoked is the kind of handler that ran, or "" if none did.
	HandlerInvoked string
	State          State
	// Err explains a failed step. Nil on success.
	Err error
}

// PlanState is Completed or Aborted.
type PlanState int

const (
	Completed PlanState = iota + 1
	Aborted
)

func (s PlanState) String() string {
	if s == Aborted {
		return "Aborted"
	}
	return "Completed"
}

// Report is the result of a plan.
type Report struct {
	State PlanState
	// AbortedAt names the step that aborted the plan.
	AbortedAt string
	Outcomes  []Outcome
	Duration  time.Duration
}

// Outcome returns the outcome of the named step, if it ran.
func (r *Report) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Counts tallies outcomes by state.
func (r *Report) Counts() map[State]int {
	out := make(map[State]int)
	for _, o := range r.Outcomes {
		out[o.State]++
	}
	return out
}
