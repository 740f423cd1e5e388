// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProviderType names a provider variant. Custom variants are spelled
// "custom:<name>".
type ProviderType string

const (
	ProviderClaude    ProviderType = "claude"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderLocal     ProviderType = "local"

	customPrefix = "custom:"
)

// CustomProvider returns the type for a named custom provider.
func CustomProvider(name string) ProviderType {
	return ProviderType(customPrefix + name)
}

// Custom reports the name of a custom provider type.
func (t ProviderType) Custom() (string, bool) {
	name, ok := strings.CutPrefix(string(t), customPrefix)
	return name, ok
}

var providerAliases = map[string]ProviderType{
	"claude":      ProviderClaude,
	"claude-code": ProviderClaude,
	"openai":      ProviderOpenAI,
	"codex":       ProviderOpenAI,
	"anthropic":   ProviderAnthropic,
	"local":       ProviderLocal,
	"localmodel":  ProviderLocal,
	"local_model": ProviderLocal,
}

// ParseProviderType accepts the canonical names, common aliases ("codex",
// "claude-code", "local_model") and "custom:<name>", case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	trimmed := strings.TrimSpace(s)
	norm := strings.ToLower(trimmed)
	if t, ok := providerAliases[norm]; ok {
		return t, nil
	}
	if strings.HasPrefix(norm, customPrefix) {
		name := strings.TrimSpace(trimmed[len(customPrefix):])
		if name == "" {
			return "", fmt.Errorf("custom provider type needs a name, e.g. custom:myagent")
		}
		return CustomProvider(name), nil
	}
	return "", fmt.Errorf("unknown provider type %q (want claude, openai, anthropic, local or custom:<name>)", s)
}

// RateLimitConfig bounds admission per provider. A zero cap disables that
// bucket.
type RateLimitConfig struct {
	MaxRequestsPerMinute uint64
	MaxTokensPerMinute   uint64
	// BurstAllowance is added to the token cap as short-window slack.
	BurstAllowance uint64
}

// DefaultRateLimitConfig returns 60 requests and 10k tokens per minute with a
// burst allowance of 10 tokens.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequestsPerMinute: 60,
		MaxTokensPerMinute:   10_000,
		BurstAllowance:       10,
	}
}

// ProviderConfig holds construction parameters for a provider.
type ProviderConfig struct {
	Type       ProviderType
	APIKey     string
	BaseURL    string
	Model      string
	RateLimits RateLimitConfig
	// Additional holds variant-specific settings; see the accessor methods
	// for the recognized keys.
	Additional map[string]any
}

// Recognized Additional keys.
const (
	KeyCLIPath          = "cli_path"
	KeyMode             = "mode"
	KeyProfile          = "profile"
	KeyAllowOutsideGit  = "allow_outside_git"
	KeyExtraArgs        = "extra_args"
	KeyTimeout          = "timeout"
	KeyRateLimitMaxWait = "rate_limit_max_wait"
	KeyMinCLIVersion    = "min_cli_version"
	KeyAllowedTools     = "allowed_tools"
)

// KnownAdditionalKeys lists every recognized Additional key.
var KnownAdditionalKeys = []string{
	KeyCLIPath, KeyMode, KeyProfile, KeyAllowOutsideGit, KeyExtraArgs,
	KeyTimeout, KeyRateLimitMaxWait, KeyMinCLIVersion, KeyAllowedTools,
}

func (c ProviderConfig) stringOpt(key string) (string, error) {
	v, ok := c.Additional[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("additional_config.%s must be a string, got %T", key, v)
	}
	return strings.TrimSpace(s), nil
}

// boolOpt returns the value and whether it was set.
func (c ProviderConfig) boolOpt(key string) (bool, bool, error) {
	v, ok := c.Additional[key]
	if !ok || v == nil {
		return false, false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false, fmt.Errorf("additional_config.%s: %w", key, err)
		}
		return parsed, true, nil
	default:
		return false, false, fmt.Errorf("additional_config.%s must be a boolean, got %T", key, v)
	}
}

// stringListOpt accepts a list of strings or a single comma-separated string.
func (c ProviderConfig) stringListOpt(key string) ([]string, error) {
	v, ok := c.Additional[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("additional_config.%s[%d] must be a string, got %T", key, i, e)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("additional_config.%s must be a list of strings, got %T", key, v)
	}
}

// durationOpt accepts a Go duration string or a number of seconds.
func (c ProviderConfig) durationOpt(key string) (time.Duration, error) {
	v, ok := c.Additional[key]
	if !ok || v == nil {
		return 0, nil
	}
	var d time.Duration
	switch n := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("additional_config.%s: %w", key, err)
		}
		d = parsed
	case int:
		d = time.Duration(n) * time.Second
	case int64:
		d = time.Duration(n) * time.Second
	case uint64:
		d = time.Duration(n) * time.Second //nolint:gosec // config values are small
	case float64:
		d = time.Duration(n * float64(time.Second))
	case time.Duration:
		d = n
	default:
		return 0, fmt.Errorf("additional_config.%s must be a duration, got %T", key, v)
	}
	if d < 0 {
		return 0, fmt.Errorf("additional_config.%s must not be negative", key)
	}
	return d, nil
}
