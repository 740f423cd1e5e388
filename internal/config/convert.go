// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/setup"
)

// Execution modes.
const (
	ModeHost      = "host"
	ModeContainer = "container"
)

// ProviderConfig converts the provider section.
func (c *Config) ProviderConfig() (llm.ProviderConfig, error) {
	p := c.Provider
	typ, err := llm.ParseProviderType(p.Type)
	if err != nil {
		return llm.ProviderConfig{}, fmt.Errorf("provider.type: %w", err)
	}
	limits := llm.DefaultRateLimitConfig()
	if rl := p.RateLimits; rl != nil {
		if rl.MaxRequestsPerMinute != nil {
			limits.MaxRequestsPerMinute = *rl.MaxRequestsPerMinute
		}
		if rl.MaxTokensPerMinute != nil {
			limits.MaxTokensPerMinute = *rl.MaxTokensPerMinute
		}
		if rl.BurstAllowance != nil {
			limits.BurstAllowance = *rl.BurstAllowance
		}
	}
	return llm.ProviderConfig{
		Type:       typ,
		APIKey:     p.APIKey,
		BaseURL:    p.BaseURL,
		Model:      p.Model,
		RateLimits: limits,
		Additional: p.Additional,
	}, nil
}

// ExecutionMode converts the execution section. An empty mode is host.
func (c *Config) ExecutionMode() (backend.Mode, error) {
	e := c.Execution
	switch strings.ToLower(strings.TrimSpace(e.Mode)) {
	case "", ModeHost:
		return backend.HostMode(), nil
	case ModeContainer:
		cc := backend.ContainerConfig{
			Image:              e.Image,
			ResourcePercentage: backend.DefaultResourcePercentage,
			MemoryLimitBytes:   e.MemoryLimitBytes,
			CPUQuota:           e.CPUQuota,
			WorkspaceMount:     e.WorkspaceMount,
		}
		if cc.Image == "" {
			cc.Image = backend.DefaultImage
		}
		if e.ResourcePercentage != nil {
			cc.ResourcePercentage = *e.ResourcePercentage
		}
		if err := cc.Validate(); err != nil {
			return backend.Mode{}, fmt.Errorf("execution: %w", err)
		}
		return backend.ContainerMode(cc), nil
	default:
		return backend.Mode{}, fmt.Errorf("execution.mode: invalid value %q (must be host or container)", e.Mode)
	}
}

// SetupCommands converts the setup plan. Every conversion problem is
// reported; the plan itself is checked by setup.Validate.
func (c *Config) SetupCommands() ([]setup.Command, error) {
	var errs []error
	cmds := make([]setup.Command, 0, len(c.Setup))
	for i, sc := range c.Setup {
		cmd := setup.Command{
			Name:       sc.Name,
			Program:    sc.Program,
			Args:       sc.Args,
			WorkingDir: sc.WorkingDir,
			Env:        sc.Env,
			Timeout:    sc.Timeout.Std(),
			Required:   sc.Required == nil || *sc.Required,
		}
		if sc.Handler != nil {
			h, err := sc.Handler.handler()
			if err != nil {
				errs = append(errs, fmt.Errorf("setup[%d].handler: %w", i, err))
			}
			cmd.Handler = h
		}
		cmds = append(cmds, cmd)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cmds, nil
}

func (h *HandlerConfig) handler() (setup.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(h.Type)) {
	case "skip":
		return setup.Skip{Name: h.Name}, nil
	case "retry":
		return setup.Retry{Name: h.Name, MaxAttempts: h.MaxAttempts, Delay: h.Delay.Std()}, nil
	case "backup":
		b := setup.Backup{Name: h.Name, Program: h.Program, Args: h.Args}
		if h.Condition == nil {
			return b, nil
		}
		cond, err := h.Condition.Condition()
		if err != nil {
			return nil, fmt.Errorf("condition: %w", err)
		}
		b.Condition = cond
		return b, nil
	default:
		return nil, fmt.Errorf("invalid type %q (must be skip, retry, or backup)", h.Type)
	}
}

// Condition converts a condition tree.
func (cc *ConditionConfig) Condition() (setup.Condition, error) {
	if cc == nil {
		return nil, errors.New("empty condition")
	}
	var set []string
	var cond setup.Condition
	if cc.StderrContains != nil {
		set = append(set, "stderr_contains")
		cond = setup.StderrContains(*cc.StderrContains)
	}
	if cc.StdoutContains != nil {
		set = append(set, "stdout_contains")
		cond = setup.StdoutContains(*cc.StdoutContains)
	}
	if cc.ExitCodeEquals != nil {
		set = append(set, "exit_code_equals")
		cond = setup.ExitCodeEquals(*cc.ExitCodeEquals)
	}
	if r := cc.ExitCodeRange; r != nil {
		set = append(set, "exit_code_range")
		if r.Min > r.Max {
			return nil, fmt.Errorf("exit_code_range: min %d is greater than max %d", r.Min, r.Max)
		}
		cond = setup.ExitCodeInRange{Min: r.Min, Max: r.Max}
	}
	if cc.Any != nil {
		set = append(set, "any")
		subs, err := conditions("any", cc.Any)
		if err != nil {
			return nil, err
		}
		cond = setup.Any(subs)
	}
	if cc.All != nil {
		set = append(set, "all")
		subs, err := conditions("all", cc.All)
		if err != nil {
			return nil, err
		}
		cond = setup.All(subs)
	}
	if cc.Not != nil {
		set = append(set, "not")
		sub, err := cc.Not.Condition()
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		cond = setup.Not{Condition: sub}
	}

	switch len(set) {
	case 0:
		return nil, errors.New("empty condition")
	case 1:
		return cond, nil
	default:
		return nil, fmt.Errorf("exactly one condition kind is allowed, got %s", strings.Join(set, ", "))
	}
}

func conditions(kind string, ccs []*ConditionConfig) ([]setup.Condition, error) {
	out := make([]setup.Condition, 0, len(ccs))
	for i, sub := range ccs {
		c, err := sub.Condition()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
