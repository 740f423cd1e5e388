package setup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/metrics"
)

// noSleep records requested delays without waiting.
type noSleep struct{ delays []time.Duration }

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.delays = append(n.delays, d)
	return ctx.Err()
}

func newTestExecutor(b backend.Backend, opts ...Option) (*Executor, *noSleep) {
	e := NewExecutor(b, opts...)
	ns := &noSleep{}
	e.sleep = ns.sleep
	return e, ns
}

func TestRun_AllSucceed(t *testing.T) {
	b := newScriptedBackend()
	e, _ := newTestExecutor(b)

	report, err := e.Run(context.Background(), []Command{
		NewCommand("one", "a"),
		NewCommand("two", "b", "x"),
	})
	require.NoError(t, err)
	assert.Equal(t, Completed, report.State)
	require.Len(t, report.Outcomes, 2)
	for _, o := range report.Outcomes {
		assert.Equal(t, Succeeded, o.State)
		assert.Equal(t, 1, o.Attempts)
		assert.Empty(t, o.HandlerInvoked)
		assert.NoError(t, o.Err)
	}
	assert.Equal(t, []string{"a", "b x"}, b.Calls())
}

func TestRun_RetryCountsAndDelays(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 5} {
		b := newScriptedBackend().on("flaky", exit(1, "boom"), nil)
		e, ns := newTestExecutor(b)
		cmd := NewCommand("r", "flaky")
		cmd.Required = false
		cmd.Handler = Retry{MaxAttempts: maxAttempts, Delay: 50 * time.Millisecond}

		report, err := e.Run(context.Background(), []Command{cmd})
		require.NoError(t, err)
		o := report.Outcomes[0]
		assert.Equal(t, FailedOptional, o.State)
		assert.Equal(t, 1+maxAttempts, o.Attempts)
		assert.Len(t, b.Calls(), 1+maxAttempts)
		assert.Len(t, ns.delays, maxAttempts)
		assert.Equal(t, "retry", o.HandlerInvoked)
		assert.True(t, IsKind(o.Err, KindCommandFailed))
	}
}

func TestRun_RetrySucceedsLater(t *testing.T) {
	b := newScriptedBackend().
		on("flaky", exit(1, ""), nil).
		on("flaky", exit(0, ""), nil)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("r", "flaky")
	cmd.Handler = Retry{MaxAttempts: 3}

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, Succeeded, o.State)
	assert.Equal(t, 2, o.Attempts)
	assert.Equal(t, "retry", o.HandlerInvoked)
}

func TestRun_RetryRetriesTimeouts(t *testing.T) {
	timeout := &backend.Error{Kind: backend.KindTimeout, Program: "slow", Timeout: time.Second}
	b := newScriptedBackend().
		on("slow", &backend.Result{ExitStatus: backend.ExitStatusTimeout, TimedOut: true}, timeout).
		on("slow", exit(0, ""), nil)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("s", "slow")
	cmd.Timeout = time.Second
	cmd.Handler = Retry{MaxAttempts: 1}

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	assert.Equal(t, Succeeded, report.Outcomes[0].State)
	assert.Equal(t, 2, report.Outcomes[0].Attempts)
}

func TestRun_TimeoutIsClassified(t *testing.T) {
	timeout := &backend.Error{Kind: backend.KindTimeout, Program: "slow", Timeout: time.Second}
	b := newScriptedBackend().on("slow", &backend.Result{ExitStatus: backend.ExitStatusTimeout, TimedOut: true}, timeout)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("s", "slow")
	cmd.Required = false

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, FailedOptional, o.State)
	assert.True(t, IsKind(o.Err, KindCommandTimeout))
	assert.True(t, backend.IsKind(o.Err, backend.KindTimeout))
}

func TestRun_BackupFailure(t *testing.T) {
	b := newScriptedBackend().
		on("primary", exit(2, "not found"), nil).
		on("fallback", exit(9, ""), nil)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("b", "primary")
	cmd.Required = false
	cmd.Handler = Backup{Condition: StderrContains("not found"), Program: "fallback"}

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, FailedOptional, o.State)
	assert.Equal(t, 9, o.ExitStatus)
	assert.Equal(t, 1, o.Attempts)
	assert.True(t, IsKind(o.Err, KindBackupFailed))
	assert.Equal(t, []string{"primary", "fallback"}, b.Calls())
}

func TestRun_BackupNotTriggered(t *testing.T) {
	b := newScriptedBackend().on("primary", exit(1, "permission denied"), nil)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("b", "primary")
	cmd.Required = false
	cmd.Handler = Backup{Condition: StderrContains("not found"), Program: "fallback"}

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, FailedOptional, o.State)
	assert.Empty(t, o.HandlerInvoked)
	assert.Equal(t, []string{"primary"}, b.Calls())
}

func TestRun_RequiredFailureAbortsPlan(t *testing.T) {
	b := newScriptedBackend().on("bad", exit(1, ""), nil)
	e, _ := newTestExecutor(b)

	report, err := e.Run(context.Background(), []Command{
		NewCommand("ok", "good"),
		NewCommand("x", "bad"),
		NewCommand("never", "good"),
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRequiredStepAborted))
	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "x", se.Name)

	assert.Equal(t, Aborted, report.State)
	assert.Equal(t, "x", report.AbortedAt)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, FailedRequired, report.Outcomes[1].State)
	assert.Equal(t, []string{"good", "bad"}, b.Calls())
}

func TestRun_SpawnFailureIsBackendError(t *testing.T) {
	spawn := &backend.Error{Kind: backend.KindSpawnFailed, Program: "nope", Err: errors.New("executable file not found")}
	b := newScriptedBackend().on("nope", exit(backend.ExitStatusSpawnFailed, "nope: not found"), spawn)
	e, _ := newTestExecutor(b)
	cmd := NewCommand("n", "nope")
	cmd.Handler = Skip{}

	report, err := e.Run(context.Background(), []Command{cmd})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, SkippedAfterFailure, o.State)
	assert.True(t, IsKind(o.Err, KindBackend))
	assert.Equal(t, backend.ExitStatusSpawnFailed, o.ExitStatus)
}

func TestRun_CancelledDuringRetryDelay(t *testing.T) {
	b := newScriptedBackend().on("flaky", exit(1, ""), nil)
	e := NewExecutor(b)
	ctx, cancel := context.WithCancel(context.Background())
	e.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	cmd := NewCommand("r", "flaky")
	cmd.Required = false
	cmd.Handler = Retry{MaxAttempts: 3, Delay: time.Hour}

	report, err := e.Run(ctx, []Command{cmd, NewCommand("after", "good")})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsKind(err, KindRequiredStepAborted))
	assert.Equal(t, Aborted, report.State)
	assert.Equal(t, "r", report.AbortedAt)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, []string{"flaky"}, b.Calls())
}

func TestRun_InvalidPlanRunsNothing(t *testing.T) {
	b := newScriptedBackend()
	e, _ := newTestExecutor(b)

	report, err := e.Run(context.Background(), []Command{
		NewCommand("dup", "a"),
		NewCommand("dup", "b"),
	})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Empty(t, b.Calls())
}

func TestRun_RecordsMetrics(t *testing.T) {
	rec := metrics.New()
	b := newScriptedBackend().on("bad", exit(1, ""), nil)
	e, _ := newTestExecutor(b, WithMetrics(rec))
	skip := NewCommand("s", "bad")
	skip.Handler = Skip{}

	_, err := e.Run(context.Background(), []Command{NewCommand("ok", "good"), skip})
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(rec.Registry(), "aca_setup_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
