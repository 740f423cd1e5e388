package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	cfg := &Config{
		Provider: ProviderSection{Type: "claude", Additional: map[string]any{"mode": "api"}},
		Setup:    []SetupCommand{{Name: "a", Program: "true"}},
	}
	assert.NoError(t, Validate(cfg))
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Provider: ProviderSection{Additional: map[string]any{"colour": "blue"}},
		Execution: ExecutionSection{
			Mode: "vm",
		},
		Setup: []SetupCommand{
			{Name: "a", Program: "x", Handler: &HandlerConfig{Type: "retry", MaxAttempts: 0}},
			{Name: "a", Program: ""},
		},
	}
	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "config validation failed")
	assert.Contains(t, msg, "provider.type: required")
	assert.Contains(t, msg, "provider.additional_config.colour: unknown key")
	assert.Contains(t, msg, "execution.mode")
	assert.Contains(t, msg, "max_attempts must be at least 1")
	assert.Contains(t, msg, "duplicate name")
	assert.Contains(t, msg, "program is required")
}

func TestValidate_UnknownProviderType(t *testing.T) {
	err := Validate(&Config{Provider: ProviderSection{Type: "gpt"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider type "gpt"`)
}
