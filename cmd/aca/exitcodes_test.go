package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/setup"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"cancelled", fmt.Errorf("step: %w", context.Canceled), ExitInterrupted},
		{"setup aborted", &setup.Error{Kind: setup.KindRequiredStepAborted, Name: "x"}, ExitSetupAborted},
		{"provider", &llm.Error{Kind: llm.KindRateLimit}, ExitProviderFailure},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err))
		})
	}
}

func TestExitError_DefaultMessages(t *testing.T) {
	assert.Equal(t, "aca: setup aborted", exitError(ExitSetupAborted, "").Error())
	assert.Equal(t, "aca: provider request failed", exitError(ExitProviderFailure, "").Error())
	assert.Equal(t, "aca: custom 3", exitError(ExitError, "aca: custom %d", 3).Error())
	assert.Equal(t, ExitInterrupted, exitError(ExitInterrupted, "").ExitCode())
}

func TestProviderTypeValue(t *testing.T) {
	var v providerTypeValue
	assert.NoError(t, v.Set("Codex"))
	assert.Equal(t, "openai", v.String())
	assert.Equal(t, "provider", v.Type())
	assert.Error(t, v.Set("gpt"))
	assert.Equal(t, "openai", v.String())
}
