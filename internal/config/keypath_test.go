package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValue(t *testing.T) {
	cfg := &Config{
		Provider:  ProviderSection{Type: "claude", Additional: map[string]any{"mode": "api"}},
		Execution: ExecutionSection{Mode: "container"},
	}

	val, err := GetValue(cfg, "provider.type")
	require.NoError(t, err)
	assert.Equal(t, "claude", val)

	val, err = GetValue(cfg, "provider.additional_config.mode")
	require.NoError(t, err)
	assert.Equal(t, "api", val)

	val, err = GetValue(cfg, "provider")
	require.NoError(t, err)
	_, ok := val.(map[string]any)
	assert.True(t, ok)

	_, err = GetValue(cfg, "provider.nope")
	assert.Error(t, err)

	_, err = GetValue(cfg, "provider.type.x")
	assert.Error(t, err)
}

func TestFlattenMap(t *testing.T) {
	flat := FlattenMap(map[string]any{
		"provider": map[string]any{"type": "claude", "rate_limits": map[string]any{"burst_allowance": 5}},
		"session_dir": "s",
	}, "")
	assert.Equal(t, map[string]any{
		"provider.type":                        "claude",
		"provider.rate_limits.burst_allowance": 5,
		"session_dir":                          "s",
	}, flat)
}
