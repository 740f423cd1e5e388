package redact

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_RedactsKnownEnvVars(t *testing.T) {
	resetCache()
	t.Cleanup(resetCache)
	t.Setenv("OPENAI_API_KEY", "oa-TESTSECRETVALUE1234567890") //nolint:gosec // fake test credential

	got := String("error: auth failed with key oa-TESTSECRETVALUE1234567890 for codex")
	assert.Equal(t, "error: auth failed with key [REDACTED] for codex", got)
}

func TestString_NoSecretSetIsNoop(t *testing.T) {
	resetCache()
	t.Cleanup(resetCache)
	os.Unsetenv("OPENAI_API_KEY") //nolint:errcheck // test cleanup

	input := "some normal error message"
	assert.Equal(t, input, String(input))
}

func TestString_ShortValuesIgnored(t *testing.T) {
	resetCache()
	t.Cleanup(resetCache)
	t.Setenv("ANTHROPIC_API_KEY", "abc")

	input := "abc is in the string abc"
	assert.Equal(t, input, String(input))
}

func TestString_MultipleSecrets(t *testing.T) {
	resetCache()
	t.Cleanup(resetCache)
	t.Setenv("OPENAI_API_KEY", "test-token-aaaa")
	t.Setenv("ANTHROPIC_API_KEY", "test-token-bbbb")

	got := String("tokens: test-token-aaaa and test-token-bbbb")
	assert.Equal(t, "tokens: [REDACTED] and [REDACTED]", got)
}

func TestValues(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		secrets []string
		want    string
	}{
		{"explicit secret", "claude --key hunter22", []string{"hunter22"}, "claude --key [REDACTED]"},
		{"short secret ignored", "a b c", []string{"b"}, "a b c"},
		{"key pattern", "using sk-ant-REDACTED", nil, "using [REDACTED]"},
		{"short sk- prefix kept", "task-sk-1", nil, "task-sk-1"},
		{"nothing", "plain", []string{""}, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Values(tt.in, tt.secrets...))
		})
	}
}
