//go:build unix

package setup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/setup"
)

// countingBackend wraps the host backend and counts invocations.
type countingBackend struct {
	backend.Backend
	calls int
}

func (c *countingBackend) Run(ctx context.Context, cmd backend.Command) (*backend.Result, error) {
	c.calls++
	return c.Backend.Run(ctx, cmd)
}

func newHost() *countingBackend {
	return &countingBackend{Backend: backend.NewHost()}
}

func TestExecutor_SkipOnFailure(t *testing.T) {
	b := newHost()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{
		{Name: "a", Program: "sh", Args: []string{"-c", "exit 7"}, Required: true, Handler: setup.Skip{}},
		{Name: "b", Program: "true", Required: true},
	})
	require.NoError(t, err)
	assert.Equal(t, setup.Completed, report.State)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, setup.SkippedAfterFailure, report.Outcomes[0].State)
	assert.Equal(t, 7, report.Outcomes[0].ExitStatus)
	assert.Equal(t, setup.Succeeded, report.Outcomes[1].State)
}

func TestExecutor_RetryExhaustion(t *testing.T) {
	b := newHost()
	start := time.Now()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{{
		Name:    "r",
		Program: "sh",
		Args:    []string{"-c", "exit 1"},
		Handler: setup.Retry{MaxAttempts: 2, Delay: 100 * time.Millisecond},
	}})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, setup.FailedOptional, o.State)
	assert.Equal(t, 3, o.Attempts)
	assert.Equal(t, 3, b.calls)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.GreaterOrEqual(t, o.Duration, 200*time.Millisecond)
}

func TestExecutor_BackupTriggers(t *testing.T) {
	b := newHost()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{{
		Name:    "b",
		Program: "nonexistent-aca-setup-program",
		Handler: setup.Backup{Condition: setup.StderrContains("not found"), Program: "echo", Args: []string{"ok"}},
	}})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, setup.RecoveredByBackup, o.State)
	assert.Equal(t, "backup", o.HandlerInvoked)
	assert.Equal(t, "ok\n", string(o.Stdout))
	assert.Equal(t, 2, b.calls)
}

func TestExecutor_BackupConditionDoesNotMatch(t *testing.T) {
	b := newHost()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{{
		Name:    "b",
		Program: "sh",
		Args:    []string{"-c", "echo permission denied >&2; exit 1"},
		Handler: setup.Backup{Condition: setup.StderrContains("not found"), Program: "echo", Args: []string{"ok"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, setup.FailedOptional, report.Outcomes[0].State)
	assert.Equal(t, 1, b.calls)
}

func TestExecutor_RequiredAbort(t *testing.T) {
	b := newHost()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{
		{Name: "x", Program: "false", Required: true},
		{Name: "y", Program: "true", Required: true},
	})
	require.Error(t, err)
	assert.True(t, setup.IsKind(err, setup.KindRequiredStepAborted))
	assert.Equal(t, setup.Aborted, report.State)
	assert.Equal(t, "x", report.AbortedAt)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, 1, b.calls)
}

func TestExecutor_CancellationKillsRunningStep(t *testing.T) {
	b := newHost()
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := setup.NewExecutor(b).Run(ctx, []setup.Command{
		{Name: "long", Program: "sleep", Args: []string{"10"}, Required: false, Handler: setup.Skip{}},
		{Name: "after", Program: "true"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, setup.Aborted, report.State)
	assert.Equal(t, "long", report.AbortedAt)
	assert.Equal(t, 1, b.calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecutor_PerAttemptTimeout(t *testing.T) {
	b := newHost()
	report, err := setup.NewExecutor(b).Run(context.Background(), []setup.Command{{
		Name:    "slow",
		Program: "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	}})
	require.NoError(t, err)
	o := report.Outcomes[0]
	assert.Equal(t, setup.FailedOptional, o.State)
	assert.Equal(t, backend.ExitStatusTimeout, o.ExitStatus)
	assert.True(t, setup.IsKind(o.Err, setup.KindCommandTimeout))
}
