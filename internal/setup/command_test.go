package setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]Command{
		NewCommand("a", "true"),
		{Name: "b", Program: "x", Handler: Retry{MaxAttempts: 1}},
		{Name: "c", Program: "x", Handler: Backup{Condition: ExitCodeEquals(1), Program: "y"}},
	}))

	err := Validate([]Command{
		{Name: "", Program: "x"},
		{Name: "dup", Program: "x"},
		{Name: "dup", Program: ""},
		{Name: "r", Program: "x", Handler: Retry{MaxAttempts: 0, Delay: -time.Second}},
		{Name: "b", Program: "x", Handler: Backup{}},
		{Name: "t", Program: "x", Timeout: -1},
	})
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"name is required",
		"duplicate name",
		"program is required",
		"max_attempts must be at least 1",
		"delay must not be negative",
		"backup condition is required",
		"backup program is required",
		"timeout must not be negative",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestHandlerKind(t *testing.T) {
	assert.Equal(t, "", HandlerKind(nil))
	assert.Equal(t, "skip", HandlerKind(Skip{}))
	assert.Equal(t, "retry", HandlerKind(Retry{}))
	assert.Equal(t, "backup", HandlerKind(Backup{}))
}

func TestNewCommandIsRequired(t *testing.T) {
	c := NewCommand("n", "p", "a", "b")
	assert.True(t, c.Required)
	assert.Equal(t, []string{"a", "b"}, c.Args)
	assert.Nil(t, c.Handler)
}
