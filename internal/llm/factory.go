// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"fmt"
)

// NewProvider builds the provider selected by cfg.Type. Agent CLIs run with
// workspaceRoot as their working directory. Claude and OpenAI (Codex) are
// implemented; Anthropic, Local and custom types fail with
// KindProviderUnavailable.
func NewProvider(cfg ProviderConfig, workspaceRoot string, opts ...Option) (Provider, error) {
	o := buildProviderOptions(opts)
	switch cfg.Type {
	case ProviderClaude:
		return newClaudeProvider(cfg, workspaceRoot, o)
	case ProviderOpenAI:
		return newCodexProvider(cfg, workspaceRoot, o)
	case ProviderAnthropic:
		return nil, newError(KindProviderUnavailable,
			"anthropic provider is not implemented; use provider_type claude with additional_config.mode = \"api\"")
	case ProviderLocal:
		return nil, newError(KindProviderUnavailable, "local model provider is not implemented")
	}
	if name, ok := cfg.Type.Custom(); ok {
		return nil, newError(KindProviderUnavailable, fmt.Sprintf("custom provider %q is not implemented", name))
	}
	return nil, newError(KindInvalidRequest, fmt.Sprintf("unknown provider type %q", cfg.Type))
}
