package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/testable"
)

func TestNewProvider_UnimplementedVariantsFailClosed(t *testing.T) {
	for _, typ := range []llm.ProviderType{llm.ProviderAnthropic, llm.ProviderLocal, llm.CustomProvider("mine")} {
		t.Run(string(typ), func(t *testing.T) {
			p, err := llm.NewProvider(llm.ProviderConfig{Type: typ}, t.TempDir())
			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, llm.IsKind(err, llm.KindProviderUnavailable))

			_, err2 := llm.NewProvider(llm.ProviderConfig{Type: typ}, t.TempDir())
			assert.Equal(t, err.Error(), err2.Error(), "message is deterministic")
		})
	}
}

func TestNewProvider_UnknownType(t *testing.T) {
	_, err := llm.NewProvider(llm.ProviderConfig{Type: "gemini"}, t.TempDir())
	assert.True(t, llm.IsKind(err, llm.KindInvalidRequest))
}

func TestNewProvider_Variants(t *testing.T) {
	t.Setenv("CLAUDE_MODE", "")
	mock := &testable.MockCommandExecutor{}

	p, err := llm.NewProvider(llm.ProviderConfig{Type: llm.ProviderClaude}, t.TempDir(), llm.WithExecutor(mock))
	require.NoError(t, err)
	assert.IsType(t, &llm.ClaudeProvider{}, p)

	p, err = llm.NewProvider(llm.ProviderConfig{Type: llm.ProviderOpenAI}, t.TempDir(),
		llm.WithExecutor(mock), llm.WithRepoDetector(testable.StaticRepoDetector{Inside: true}))
	require.NoError(t, err)
	assert.IsType(t, &llm.CodexProvider{}, p)
}

func TestNewProvider_BadAdditionalConfig(t *testing.T) {
	t.Setenv("CLAUDE_MODE", "")
	mock := &testable.MockCommandExecutor{}
	for key, val := range map[string]any{
		llm.KeyTimeout:          "soon",
		llm.KeyRateLimitMaxWait: -5,
		llm.KeyExtraArgs:        42,
		llm.KeyCLIPath:          true,
	} {
		cfg := llm.ProviderConfig{Type: llm.ProviderClaude, Additional: map[string]any{key: val}}
		_, err := llm.NewProvider(cfg, t.TempDir(), llm.WithExecutor(mock))
		assert.True(t, llm.IsKind(err, llm.KindInvalidRequest), "key %s: %v", key, err)
	}
}

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		in      string
		want    llm.ProviderType
		wantErr bool
	}{
		{"claude", llm.ProviderClaude, false},
		{"Claude-Code", llm.ProviderClaude, false},
		{"codex", llm.ProviderOpenAI, false},
		{"OpenAI", llm.ProviderOpenAI, false},
		{"anthropic", llm.ProviderAnthropic, false},
		{"local_model", llm.ProviderLocal, false},
		{"custom:MyAgent", llm.CustomProvider("MyAgent"), false},
		{"custom:", "", true},
		{"gemini", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := llm.ParseProviderType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequest_Validate(t *testing.T) {
	req := llm.NewRequest("ok")
	assert.NoError(t, req.Validate())
	assert.NotEqual(t, req.ID, llm.NewRequest("ok").ID)

	bad := 2.5
	req.Temperature = &bad
	assert.True(t, llm.IsKind(req.Validate(), llm.KindInvalidRequest))

	req = llm.NewRequest("ok")
	req.MaxTokens = -1
	assert.True(t, llm.IsKind(req.Validate(), llm.KindInvalidRequest))
}

func TestTokenUsageTotal(t *testing.T) {
	u := llm.NewTokenUsage(7, 5, 0.5)
	assert.Equal(t, uint64(12), u.Total)
}

func TestError_Messages(t *testing.T) {
	err := &llm.Error{Kind: llm.KindContextTooLarge, Current: 300, Max: 200}
	assert.Equal(t, "context too large: 300 tokens exceeds limit of 200", err.Error())
	assert.Equal(t, "network error: timeout", (&llm.Error{Kind: llm.KindNetwork, Message: "timeout"}).Error())
	assert.Equal(t, "rate_limit", llm.KindRateLimit.String())
	assert.Zero(t, llm.KindOf(assert.AnError))
}
