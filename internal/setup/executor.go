// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package setup runs an ordered plan of setup commands through an execution
// backend, applying each command's failure handler (skip, retry or backup)
// and its required/optional policy.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/metrics"
)

// Executor runs setup plans. It is safe to reuse; each Run is independent.
type Executor struct {
	backend backend.Backend
	logger  *slog.Logger
	metrics *metrics.Recorder
	sleep   func(context.Context, time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records step outcomes into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Executor) { e.metrics = r }
}

// NewExecutor returns an executor that runs commands through b.
func NewExecutor(b backend.Backend, opts ...Option) *Executor {
	e := &Executor{
		backend: b,
		logger:  slog.Default(),
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes cmds strictly in order. It returns a nil error when the plan
// completes, even if optional steps failed. When a required step finally
// fails the report is Aborted at that step, no later step runs, and the
// error is a *Error of KindRequiredStepAborted. When ctx is cancelled the
// running child is killed, the report is Aborted at the current step and
// the error wraps ctx.Err(). An invalid plan is rejected before anything
// runs.
func (e *Executor) Run(ctx context.Context, cmds []Command) (*Report, error) {
	if err := Validate(cmds); err != nil {
		return nil, fmt.Errorf("invalid setup plan: %w", err)
	}

	start := time.Now()
	report := &Report{State: Completed}
	defer func() { report.Duration = time.Since(start) }()

	for i, c := range cmds {
		log := e.logger.With("step", c.Name, "index", i)
		log.Info("running setup step", "program", c.Program, "args", c.Args)

		o, err := e.runStep(ctx, c, log)
		report.Outcomes = append(report.Outcomes, o)
		e.metrics.ObserveSetupStep(o.State.String(), o.Duration)

		if err != nil {
			report.State = Aborted
			report.AbortedAt = c.Name
			log.Warn("setup cancelled", "error", err)
			return report, fmt.Errorf("setup step %q: %w", c.Name, err)
		}

		switch o.State {
		case Succeeded, RecoveredByBackup:
			log.Info("setup step finished", "state", o.State, "attempts", o.Attempts, "duration", o.Duration)
		case FailedRequired:
			report.State = Aborted
			report.AbortedAt = c.Name
			log.Error("required setup step failed", "attempts", o.Attempts, "exit_status", o.ExitStatus, "error", o.Err)
			return report, &Error{Kind: KindRequiredStepAborted, Name: c.Name, ExitStatus: o.ExitStatus, Err: o.Err}
		default:
			log.Warn("setup step failed; continuing", "state", o.State, "attempts", o.Attempts, "error", o.Err)
		}
	}
	return report, nil
}

// runStep is the per-command state machine. A non-nil error means ctx was
// cancelled; the outcome is still filled in as far as it got.
func (e *Executor) runStep(ctx context.Context, c Command, log *slog.Logger) (o Outcome, err error) {
	start := time.Now()
	o.Name = c.Name
	defer func() { o.Duration = time.Since(start) }()

	for {
		o.Attempts++
		res, runErr := e.run(ctx, c.backendCommand())
		if res == nil {
			o.State = failedState(c.Required)
			o.Err = runErr
			return o, runErr
		}
		o.record(res)
		if res.Success() {
			o.State = Succeeded
			return o, nil
		}
		stepErr := failure(c.Name, res, runErr)

		switch h := c.Handler.(type) {
		case Skip:
			o.HandlerInvoked = HandlerKind(h)
			o.State = SkippedAfterFailure
			o.Err = stepErr
			return o, nil

		case Retry:
			if o.Attempts <= h.MaxAttempts {
				o.HandlerInvoked = HandlerKind(h)
				log.Info("setup step failed; retrying", "attempt", o.Attempts, "max_retries", h.MaxAttempts,
					"delay", h.Delay, "exit_status", res.ExitStatus)
				if err := e.sleep(ctx, h.Delay); err != nil {
					o.State = failedState(c.Required)
					o.Err = err
					return o, err
				}
				continue
			}

		case Backup:
			if h.Condition.Match(newOutput(res.Stdout, res.Stderr, res.ExitStatus)) {
				o.HandlerInvoked = HandlerKind(h)
				log.Info("setup step failed; running backup", "backup", h.Program, "condition", h.Condition.String())
				bcmd := c.backendCommand()
				bcmd.Program, bcmd.Args = h.Program, h.Args
				bres, berr := e.run(ctx, bcmd)
				if bres == nil {
					o.State = failedState(c.Required)
					o.Err = berr
					return o, berr
				}
				o.record(bres)
				if bres.Success() {
					o.State = RecoveredByBackup
					return o, nil
				}
				stepErr = &Error{Kind: KindBackupFailed, Name: c.Name, ExitStatus: bres.ExitStatus, Err: berr}
			} else {
				log.Debug("backup condition did not match", "condition", h.Condition.String())
			}
		}

		o.State = failedState(c.Required)
		o.Err = stepErr
		return o, nil
	}
}

// run calls the backend. A nil result with a nil error never escapes: a
// result-less failure that is not a cancellation becomes a synthetic one.
func (e *Executor) run(ctx context.Context, cmd backend.Command) (*backend.Result, error) {
	res, err := e.backend.Run(ctx, cmd)
	if res != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err == nil {
		err = errors.New("backend returned no result")
	}
	return &backend.Result{ExitStatus: -1, Stderr: []byte(err.Error())}, err
}

func (o *Outcome) record(res *backend.Result) {
	o.ExitStatus = res.ExitStatus
	o.Stdout = res.Stdout
	o.Stderr = res.Stderr
}

func failedState(required bool) State {
	if required {
		return FailedRequired
	}
	return FailedOptional
}

// failure classifies a non-zero result.
func failure(name string, res *backend.Result, runErr error) *Error {
	switch {
	case res.TimedOut || backend.IsKind(runErr, backend.KindTimeout):
		return &Error{Kind: KindCommandTimeout, Name: name, ExitStatus: res.ExitStatus, Err: runErr}
	case runErr != nil:
		return &Error{Kind: KindBackend, Name: name, ExitStatus: res.ExitStatus, Err: runErr}
	default:
		return &Error{Kind: KindCommandFailed, Name: name, ExitStatus: res.ExitStatus}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
