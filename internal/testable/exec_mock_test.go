//go:build unix

package testable

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCommandExecutor_Results(t *testing.T) {
	m := &MockCommandExecutor{
		Results:   map[string]MockResult{"git status": {Stdout: "it's clean"}},
		ByProgram: map[string]MockResult{"make": {Stderr: "no rule", ExitCode: 2}},
	}

	out, err := m.CommandContext(context.Background(), "git", "status").Output()
	require.NoError(t, err)
	assert.Equal(t, "it's clean", string(out))

	err = m.CommandContext(context.Background(), "make", "all").Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())

	assert.Equal(t, []string{"git status", "make all"}, m.Calls())
}

func TestMockCommandExecutor_LookPath(t *testing.T) {
	m := &MockCommandExecutor{}
	p, err := m.LookPath("claude")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/claude", p)

	m.LookPathResult = "/opt/bin/claude"
	p, _ = m.LookPath("claude")
	assert.Equal(t, "/opt/bin/claude", p)

	m.LookPathErr = errors.New("missing")
	_, err = m.LookPath("claude")
	assert.Error(t, err)
}
