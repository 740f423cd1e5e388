// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package config handles aca configuration files (TOML or YAML).
package config

import (
	"fmt"
	"time"
)

// Config represents the contents of an aca configuration file.
type Config struct {
	Provider   ProviderSection  `toml:"provider" yaml:"provider"`
	Execution  ExecutionSection `toml:"execution" yaml:"execution,omitempty"`
	SessionDir string           `toml:"session_dir" yaml:"session_dir,omitempty"`
	Setup      []SetupCommand   `toml:"setup" yaml:"setup,omitempty"`
}

// ProviderSection configures the LLM provider.
type ProviderSection struct {
	Type       string            `toml:"type" yaml:"type"`
	APIKey     string            `toml:"api_key" yaml:"api_key,omitempty"`
	BaseURL    string            `toml:"base_url" yaml:"base_url,omitempty"`
	Model      string            `toml:"model" yaml:"model,omitempty"`
	RateLimits *RateLimitSection `toml:"rate_limits" yaml:"rate_limits,omitempty"`
	Additional map[string]any    `toml:"additional_config" yaml:"additional_config,omitempty"`
}

// RateLimitSection overrides the default limits. Unset fields keep their
// defaults; an explicit zero disables that bucket.
type RateLimitSection struct {
	MaxRequestsPerMinute *uint64 `toml:"max_requests_per_minute" yaml:"max_requests_per_minute,omitempty"`
	MaxTokensPerMinute   *uint64 `toml:"max_tokens_per_minute" yaml:"max_tokens_per_minute,omitempty"`
	BurstAllowance       *uint64 `toml:"burst_allowance" yaml:"burst_allowance,omitempty"`
}

// ExecutionSection selects where commands run.
type ExecutionSection struct {
	// Mode is "host" (default) or "container".
	Mode               string   `toml:"mode" yaml:"mode,omitempty"`
	Image              string   `toml:"image" yaml:"image,omitempty"`
	ResourcePercentage *float64 `toml:"resource_percentage" yaml:"resource_percentage,omitempty"`
	MemoryLimitBytes   *int64   `toml:"memory_limit_bytes" yaml:"memory_limit_bytes,omitempty"`
	CPUQuota           *int64   `toml:"cpu_quota" yaml:"cpu_quota,omitempty"`
	WorkspaceMount     string   `toml:"workspace_mount" yaml:"workspace_mount,omitempty"`
}

// SetupCommand is one step of the setup plan.
type SetupCommand struct {
	Name       string            `toml:"name" yaml:"name"`
	Program    string            `toml:"program" yaml:"program"`
	Args       []string          `toml:"args" yaml:"args,omitempty"`
	WorkingDir string            `toml:"working_dir" yaml:"working_dir,omitempty"`
	Env        map[string]string `toml:"env" yaml:"env,omitempty"`
	Timeout    Duration          `toml:"timeout" yaml:"timeout,omitempty"`
	// Required defaults to true.
	Required *bool          `toml:"required" yaml:"required,omitempty"`
	Handler  *HandlerConfig `toml:"handler" yaml:"handler,omitempty"`
}

// HandlerConfig selects a failure handler by Type: "skip", "retry" or
// "backup".
type HandlerConfig struct {
	Type string `toml:"type" yaml:"type"`
	Name string `toml:"name" yaml:"name,omitempty"`

	// Retry settings.
	MaxAttempts int      `toml:"max_attempts" yaml:"max_attempts,omitempty"`
	Delay       Duration `toml:"delay" yaml:"delay,omitempty"`

	// Backup settings.
	Condition *ConditionConfig `toml:"condition" yaml:"condition,omitempty"`
	Program   string           `toml:"program" yaml:"program,omitempty"`
	Args      []string         `toml:"args" yaml:"args,omitempty"`
}

// ConditionConfig is an output condition. Exactly one field must be set.
type ConditionConfig struct {
	StderrContains *string            `toml:"stderr_contains" yaml:"stderr_contains,omitempty"`
	StdoutContains *string            `toml:"stdout_contains" yaml:"stdout_contains,omitempty"`
	ExitCodeEquals *int               `toml:"exit_code_equals" yaml:"exit_code_equals,omitempty"`
	ExitCodeRange  *ExitCodeRange     `toml:"exit_code_range" yaml:"exit_code_range,omitempty"`
	Any            []*ConditionConfig `toml:"any" yaml:"any,omitempty"`
	All            []*ConditionConfig `toml:"all" yaml:"all,omitempty"`
	Not            *ConditionConfig   `toml:"not" yaml:"not,omitempty"`
}

// ExitCodeRange is an inclusive range of exit statuses.
type ExitCodeRange struct {
	Min int `toml:"min" yaml:"min"`
	Max int `toml:"max" yaml:"max"`
}

// Duration is a time.Duration written as a string ("30s", "1m30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(parsed)
	return nil
}

// IsZero lets yaml omitempty drop unset durations.
func (d Duration) IsZero() bool { return d == 0 }
