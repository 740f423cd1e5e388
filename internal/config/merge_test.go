package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aca-dev/aca/internal/redact"
)

func TestMerge_CLIWins(t *testing.T) {
	file := &Config{
		Provider:  ProviderSection{Type: "claude", Model: "opus"},
		Execution: ExecutionSection{Mode: "host"},
	}
	got := Merge(file, Overrides{Model: "sonnet", ExecutionMode: "container", Image: "debian", SessionDir: "s"})
	assert.Equal(t, "claude", got.Provider.Type)
	assert.Equal(t, "sonnet", got.Provider.Model)
	assert.Equal(t, "container", got.Execution.Mode)
	assert.Equal(t, "debian", got.Execution.Image)
	assert.Equal(t, "s", got.SessionDir)
	assert.Equal(t, "opus", file.Provider.Model, "file config must not change")
}

func TestMerge_ProviderSwitchClearsModel(t *testing.T) {
	file := &Config{Provider: ProviderSection{Type: "claude", Model: "opus"}}
	got := Merge(file, Overrides{ProviderType: "codex"})
	assert.Equal(t, "codex", got.Provider.Type)
	assert.Empty(t, got.Provider.Model)
}

func TestMerge_Empty(t *testing.T) {
	file := &Config{Provider: ProviderSection{Type: "claude", Model: "opus"}}
	assert.Equal(t, file, Merge(file, Overrides{}))
}

func TestRedacted(t *testing.T) {
	cfg := &Config{Provider: ProviderSection{Type: "claude", APIKey: "sk-secret"}}
	r := cfg.Redacted()
	assert.Equal(t, redact.Placeholder, r.Provider.APIKey)
	assert.Equal(t, "sk-secret", cfg.Provider.APIKey)
}
