// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type claudeMode string

const (
	claudeModeCLI claudeMode = "cli"
	claudeModeAPI claudeMode = "api"
)

const (
	defaultClaudeCLI   = "claude"
	defaultClaudeModel = "sonnet"
)

// defaultAllowedTools are granted to the claude CLI so it can edit the
// workspace without interactive approval.
var defaultAllowedTools = []string{
	"Read", "Write", "Edit", "Bash", "Glob", "Grep", "MultiEdit", "Task", "TodoWrite",
}

var claudeModels = []string{"sonnet", "opus", "haiku", defaultAPIModel, "claude-opus-4-1-20250805", "claude-haiku-4-5-20251001"}

// ClaudeProvider drives Claude either through the claude CLI ("cli" mode,
// the default) or through the Anthropic Messages API ("api" mode).
type ClaudeProvider struct {
	core  *providerCore
	mode  claudeMode
	model string

	// cli mode
	cliPath      string
	runner       *cliRunner
	allowedTools []string
	extraArgs    []string
	minVersion   string

	// api mode
	api *anthropicClient
}

var _ Provider = (*ClaudeProvider)(nil)

func newClaudeProvider(cfg ProviderConfig, workspace string, o *providerOptions) (*ClaudeProvider, error) {
	mode, err := resolveClaudeMode(cfg)
	if err != nil {
		return nil, err
	}
	core, err := newProviderCore("claude", cfg, o)
	if err != nil {
		return nil, err
	}
	p := &ClaudeProvider{core: core, mode: mode, model: cfg.Model}

	if mode == claudeModeAPI {
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		if key == "" {
			return nil, newError(KindAuthentication, "claude api mode needs an api_key or ANTHROPIC_API_KEY")
		}
		core.secrets = append(core.secrets, key)
		if p.model == "" {
			p.model = defaultAPIModel
		}
		p.api = newAnthropicClient(key, cfg.BaseURL, o.apiOpts...)
		return p, nil
	}

	if p.model == "" {
		p.model = defaultClaudeModel
	}
	if p.cliPath, err = resolveCLI(cfg, defaultClaudeCLI, o); err != nil {
		return nil, err
	}
	if p.allowedTools, err = cfg.stringListOpt(KeyAllowedTools); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if len(p.allowedTools) == 0 {
		p.allowedTools = defaultAllowedTools
	}
	if p.extraArgs, err = cfg.stringListOpt(KeyExtraArgs); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if p.minVersion, err = cfg.stringOpt(KeyMinCLIVersion); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	timeout, err := cfg.durationOpt(KeyTimeout)
	if err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if timeout == 0 {
		timeout = defaultCLITimeout
	}
	var env map[string]string
	if cfg.APIKey != "" {
		env = map[string]string{"ANTHROPIC_API_KEY": cfg.APIKey}
	}
	p.runner = &cliRunner{backend: o.backend, workdir: workspace, timeout: timeout, env: env}
	return p, nil
}

// resolveClaudeMode reads additional_config.mode, then CLAUDE_MODE, and
// defaults to cli.
func resolveClaudeMode(cfg ProviderConfig) (claudeMode, error) {
	raw, err := cfg.stringOpt(KeyMode)
	if err != nil {
		return "", newError(KindInvalidRequest, err.Error())
	}
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("CLAUDE_MODE"))
	}
	switch m := claudeMode(strings.ToLower(raw)); m {
	case "", claudeModeCLI:
		return claudeModeCLI, nil
	case claudeModeAPI:
		return claudeModeAPI, nil
	default:
		return "", newError(KindInvalidRequest, fmt.Sprintf("unknown claude mode %q (want cli or api)", raw))
	}
}

// resolveCLI finds the agent binary, honoring additional_config.cli_path.
func resolveCLI(cfg ProviderConfig, fallback string, o *providerOptions) (string, error) {
	name, err := cfg.stringOpt(KeyCLIPath)
	if err != nil {
		return "", newError(KindInvalidRequest, err.Error())
	}
	if name == "" {
		name = fallback
	}
	path, err := o.executor.LookPath(name)
	if err != nil {
		return "", wrapError(KindProviderUnavailable, fmt.Sprintf("%s CLI not found: %v", name, err), err)
	}
	return path, nil
}

// Name returns "claude".
func (p *ClaudeProvider) Name() string { return "claude" }

// Mode reports "cli" or "api".
func (p *ClaudeProvider) Mode() string { return string(p.mode) }

// Model returns the configured default model.
func (p *ClaudeProvider) Model() string { return p.model }

// ExecuteRequest runs req through the claude CLI or the Messages API.
func (p *ClaudeProvider) ExecuteRequest(ctx context.Context, req *Request, sessionDir string) (*Response, error) {
	if req == nil {
		return p.core.execute(ctx, req, sessionDir, "", nil)
	}
	model := p.model
	if req.ModelPreference != "" {
		model = req.ModelPreference
	}
	prompt := composePrompt(req, false)
	rendered := req.SystemMessage + prompt

	if p.mode == claudeModeAPI {
		return p.core.execute(ctx, req, sessionDir, rendered, func(ctx context.Context, audit *auditFiles) (*Response, error) {
			if err := audit.beginAttempt("anthropic-api", []string{"messages.create", "--model", model}); err != nil {
				return nil, wrapError(KindProviderSpecific, "audit: "+err.Error(), err)
			}
			resp, err := p.api.complete(ctx, model, prompt, req)
			if err == nil && audit != nil {
				_, _ = audit.stdout.WriteString(resp.Content)
			}
			return resp, err
		})
	}

	args := p.cliArgs(req, model)
	return p.core.execute(ctx, req, sessionDir, rendered, func(ctx context.Context, audit *auditFiles) (*Response, error) {
		res, err := p.runner.run(ctx, audit, p.cliPath, args, prompt)
		if err != nil {
			return nil, err
		}
		out := parseClaudeOutput(res.Stdout)
		if !res.Success() || out.isError {
			fo := failureOutput{Stderr: string(res.Stderr), Stdout: string(res.Stdout)}
			// Non-JSON output on failure is the CLI's own diagnostic.
			if out.isError || out.raw {
				fo.Reported = out.content
			}
			return nil, classifyFailure(p.cliPath, res.ExitStatus, fo)
		}
		return out.response(model, rendered), nil
	})
}

func (p *ClaudeProvider) cliArgs(req *Request, model string) []string {
	args := []string{
		"--print",
		"--output-format", "json",
		"--allowedTools", strings.Join(p.allowedTools, ","),
		"--permission-mode", "acceptEdits",
	}
	if sys := strings.TrimSpace(req.SystemMessage); sys != "" {
		args = append(args, "--append-system-prompt", sys)
	}
	args = append(args, "--model", model)
	return append(args, p.extraArgs...)
}

// claudeOutput is what we take from `claude --print --output-format json`.
type claudeOutput struct {
	content   string
	isError   bool
	hasUsage  bool
	input     uint64
	output    uint64
	cost      *float64
	sessionID string
	numTurns  int
	raw       bool
}

// parseClaudeOutput probes the JSON envelope for result, response and
// content in that order. Non-JSON output is taken verbatim.
func parseClaudeOutput(stdout []byte) claudeOutput {
	var env struct {
		Result       *string  `json:"result"`
		Response     *string  `json:"response"`
		Content      *string  `json:"content"`
		IsError      bool     `json:"is_error"`
		TotalCostUSD *float64 `json:"total_cost_usd"`
		SessionID    string   `json:"session_id"`
		NumTurns     int      `json:"num_turns"`
		Usage        *struct {
			InputTokens              uint64 `json:"input_tokens"`
			CacheCreationInputTokens uint64 `json:"cache_creation_input_tokens"`
			CacheReadInputTokens     uint64 `json:"cache_read_input_tokens"`
			OutputTokens             uint64 `json:"output_tokens"`
		} `json:"usage"`
	}
	trimmed := strings.TrimSpace(string(stdout))
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return claudeOutput{content: trimmed, raw: true}
	}
	out := claudeOutput{
		isError:   env.IsError,
		cost:      env.TotalCostUSD,
		sessionID: env.SessionID,
		numTurns:  env.NumTurns,
	}
	for _, field := range []*string{env.Result, env.Response, env.Content} {
		if field != nil {
			out.content = *field
			break
		}
	}
	if env.Usage != nil {
		out.hasUsage = true
		out.input = env.Usage.InputTokens + env.Usage.CacheCreationInputTokens + env.Usage.CacheReadInputTokens
		out.output = env.Usage.OutputTokens
	}
	return out
}

func (o claudeOutput) response(model, rendered string) *Response {
	in, outTok := o.input, o.output
	if !o.hasUsage {
		in, outTok = estimateTokens(rendered), estimateTokens(o.content)
	}
	cost := estimateCost(model, in, outTok)
	if o.cost != nil {
		cost = *o.cost
	}
	meta := map[string]any{"mode": string(claudeModeCLI), "usage_estimated": !o.hasUsage}
	if o.sessionID != "" {
		meta["session_id"] = o.sessionID
	}
	if o.numTurns > 0 {
		meta["num_turns"] = o.numTurns
	}
	if o.raw {
		meta["raw_output"] = true
	}
	return &Response{
		Content:   strings.TrimSpace(o.content),
		ModelUsed: model,
		Usage:     NewTokenUsage(in, outTok, cost),
		Metadata:  meta,
	}
}

// Capabilities reports Claude's static capabilities.
func (p *ClaudeProvider) Capabilities() Capabilities {
	return Capabilities{
		FunctionCalling:  true,
		Vision:           p.mode == claudeModeAPI,
		MaxContextTokens: 200_000,
		Models:           p.ListModels(),
	}
}

// ListModels returns the accepted model names and aliases.
func (p *ClaudeProvider) ListModels() []string {
	out := make([]string, len(claudeModels))
	copy(out, claudeModels)
	return out
}

// EstimateTokens approximates four bytes per token.
func (p *ClaudeProvider) EstimateTokens(text string) uint64 { return estimateTokens(text) }

// Status returns a snapshot of the provider's health and limiter.
func (p *ClaudeProvider) Status() Status { return p.core.statusSnapshot() }

// HealthCheck runs `claude --version` (enforcing min_cli_version) in CLI
// mode, or lists models in API mode.
func (p *ClaudeProvider) HealthCheck(ctx context.Context) error {
	var err error
	if p.mode == claudeModeAPI {
		err = p.api.ping(ctx)
	} else {
		var version string
		version, err = p.runner.versionCheck(ctx, p.cliPath, p.minVersion)
		if err == nil {
			p.core.logger.Debug("health check passed", "version", version)
		}
	}
	p.core.status.recordHealth(err == nil, time.Now())
	return err
}

// Shutdown marks the provider closed. It holds no other resources.
func (p *ClaudeProvider) Shutdown(context.Context) error {
	if p.core.shutdown() {
		p.core.logger.Debug("provider shut down")
	}
	return nil
}
