//go:build unix

package backend_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/testable"
)

func TestHost_Success(t *testing.T) {
	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{
		Program: "sh",
		Args:    []string{"-c", "printf hello; printf oops >&2"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "hello", string(res.Stdout))
	assert.Equal(t, "oops", string(res.Stderr))
	assert.False(t, res.TimedOut)
}

func TestHost_NonZeroExitIsNotAnError(t *testing.T) {
	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{
		Program: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.False(t, res.Success())
}

func TestHost_Timeout(t *testing.T) {
	h := backend.NewHost()
	start := time.Now()
	res, err := h.Run(context.Background(), backend.Command{
		Program: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.True(t, backend.IsKind(err, backend.KindTimeout))
	require.NotNil(t, res)
	assert.Equal(t, backend.ExitStatusTimeout, res.ExitStatus)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestHost_TimeoutKillsProcessGroup(t *testing.T) {
	h := backend.NewHost()
	start := time.Now()
	// The backgrounded sleep holds stdout open; only a group kill lets Run
	// return promptly.
	res, err := h.Run(context.Background(), backend.Command{
		Program: "sh",
		Args:    []string{"-c", "sleep 10 & wait"},
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, backend.ExitStatusTimeout, res.ExitStatus)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHost_SpawnFailure(t *testing.T) {
	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{Program: "nonexistent-aca-program"})
	require.Error(t, err)
	assert.True(t, backend.IsKind(err, backend.KindSpawnFailed))
	require.NotNil(t, res)
	assert.Equal(t, backend.ExitStatusSpawnFailed, res.ExitStatus)
	assert.Contains(t, string(res.Stderr), "not found")
}

func TestHost_KilledBySignal(t *testing.T) {
	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{
		Program: "sh",
		Args:    []string{"-c", "kill -9 $$"},
	})
	require.Error(t, err)
	assert.True(t, backend.IsKind(err, backend.KindKilledBySignal))
	assert.Equal(t, 128+9, res.ExitStatus)
}

func TestHost_Cancellation(t *testing.T) {
	h := backend.NewHost()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	res, err := h.Run(ctx, backend.Command{Program: "sh", Args: []string{"-c", "sleep 5"}})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHost_EnvOverlayAndWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ACA_INHERITED", "parent")

	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{
		Program:    "sh",
		Args:       []string{"-c", `printf '%s|%s|%s' "$ACA_INHERITED" "$ACA_OVERLAY" "$(pwd -P)"`},
		Env:        map[string]string{"ACA_OVERLAY": "child"},
		WorkingDir: dir,
	})
	require.NoError(t, err)
	out := string(res.Stdout)
	assert.Contains(t, out, "parent|child|")
}

func TestHost_StdinAndTee(t *testing.T) {
	var live bytes.Buffer
	h := backend.NewHost()
	res, err := h.Run(context.Background(), backend.Command{
		Program: "cat",
		Stdin:   "from stdin",
		Stdout:  &live,
	})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(res.Stdout))
	assert.Equal(t, "from stdin", live.String())
}

func TestHost_EmptyProgram(t *testing.T) {
	_, err := backend.NewHost().Run(context.Background(), backend.Command{})
	assert.ErrorIs(t, err, backend.ErrEmptyProgram)
}

func TestHost_MockExecutor(t *testing.T) {
	mock := &testable.MockCommandExecutor{
		Results: map[string]testable.MockResult{
			"git status": {Stdout: "clean", ExitCode: 0},
		},
		Default: testable.MockResult{Stderr: "boom", ExitCode: 2},
	}
	h := backend.NewHost(backend.WithExecutor(mock))

	res, err := h.Run(context.Background(), backend.Command{Program: "git", Args: []string{"status"}})
	require.NoError(t, err)
	assert.Equal(t, "clean", string(res.Stdout))

	res, err = h.Run(context.Background(), backend.Command{Program: "make"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitStatus)
	assert.Equal(t, "boom", string(res.Stderr))

	assert.Equal(t, []string{"git status", "make"}, mock.Calls())
}
