// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"
)

const (
	defaultCodexCLI   = "codex"
	defaultCodexModel = "o4-mini"
)

var codexModels = []string{"o4-mini", "o3-mini", "gpt-4.1", "gpt-5-codex"}

// CodexProvider drives the OpenAI Codex CLI (`codex exec --json`).
type CodexProvider struct {
	core            *providerCore
	model           string
	cliPath         string
	runner          *cliRunner
	profile         string
	allowOutsideGit bool
	extraArgs       []string
	minVersion      string
}

var _ Provider = (*CodexProvider)(nil)

func newCodexProvider(cfg ProviderConfig, workspace string, o *providerOptions) (*CodexProvider, error) {
	core, err := newProviderCore("codex", cfg, o)
	if err != nil {
		return nil, err
	}
	p := &CodexProvider{core: core, model: cfg.Model}
	if p.model == "" {
		p.model = defaultCodexModel
	}
	if p.cliPath, err = resolveCLI(cfg, defaultCodexCLI, o); err != nil {
		return nil, err
	}
	if p.profile, err = cfg.stringOpt(KeyProfile); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if p.extraArgs, err = cfg.stringListOpt(KeyExtraArgs); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if p.minVersion, err = cfg.stringOpt(KeyMinCLIVersion); err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}

	allow, set, err := cfg.boolOpt(KeyAllowOutsideGit)
	if err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if !set {
		// Codex refuses to run outside a git work tree unless told to.
		inside, derr := o.repo.InsideWorkTree(workspace)
		if derr != nil {
			core.logger.Warn("git detection failed; assuming outside a repository", "workspace", workspace, "error", derr)
		}
		allow = !inside
	}
	p.allowOutsideGit = allow

	timeout, err := cfg.durationOpt(KeyTimeout)
	if err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	if timeout == 0 {
		timeout = defaultCLITimeout
	}
	var env map[string]string
	if cfg.APIKey != "" {
		env = map[string]string{"OPENAI_API_KEY": cfg.APIKey}
	}
	p.runner = &cliRunner{backend: o.backend, workdir: workspace, timeout: timeout, env: env}
	return p, nil
}

// Name returns "codex".
func (p *CodexProvider) Name() string { return "codex" }

// Model returns the configured default model.
func (p *CodexProvider) Model() string { return p.model }

// AllowsOutsideGit reports whether --skip-git-repo-check is passed.
func (p *CodexProvider) AllowsOutsideGit() bool { return p.allowOutsideGit }

// ExecuteRequest runs req through `codex exec`. When the CLI rejects the
// model it is retried once without --model under the same permit.
func (p *CodexProvider) ExecuteRequest(ctx context.Context, req *Request, sessionDir string) (*Response, error) {
	if req == nil {
		return p.core.execute(ctx, req, sessionDir, "", nil)
	}
	model := p.model
	if req.ModelPreference != "" {
		model = req.ModelPreference
	}
	prompt := composePrompt(req, true)

	return p.core.execute(ctx, req, sessionDir, prompt, func(ctx context.Context, audit *auditFiles) (*Response, error) {
		withModel := true
		for {
			res, err := p.runner.run(ctx, audit, p.cliPath, p.cliArgs(model, withModel), prompt)
			if err != nil {
				return nil, err
			}
			out := parseCodexOutput(res.Stdout)
			if !res.Success() {
				msg := strings.TrimSpace(string(res.Stderr))
				if out.failure != "" {
					msg = strings.TrimSpace(msg + "\n" + out.failure)
				}
				if withModel && strings.Contains(msg, "Unsupported model") {
					p.core.logger.Info("codex rejected the model; retrying without --model", "model", model, "request_id", req.ID)
					withModel = false
					continue
				}
				return nil, classifyFailure(p.cliPath, res.ExitStatus, failureOutput{
					Reported: out.failure,
					Stderr:   string(res.Stderr),
					Stdout:   string(res.Stdout),
				})
			}
			if out.content == "" {
				reason := out.failure
				if reason == "" {
					reason = "codex did not return an agent message"
				}
				return nil, classifyFailure(p.cliPath, res.ExitStatus, failureOutput{Reported: reason, Stderr: string(res.Stderr)})
			}

			used := model
			if !withModel {
				used = "default"
			}
			in, outTok := out.input, out.output
			estimated := !out.hasUsage
			if estimated {
				in, outTok = estimateTokens(prompt), estimateTokens(out.content)
			}
			meta := map[string]any{"usage_estimated": estimated}
			if out.threadID != "" {
				meta["thread_id"] = out.threadID
			}
			if out.cachedInput > 0 {
				meta["cached_input_tokens"] = out.cachedInput
			}
			return &Response{
				Content:   strings.TrimSpace(out.content),
				ModelUsed: used,
				Usage:     NewTokenUsage(in, outTok, estimateCost(used, in, outTok)),
				Metadata:  meta,
			}, nil
		}
	})
}

func (p *CodexProvider) cliArgs(model string, withModel bool) []string {
	args := []string{"exec", "--json"}
	if withModel && model != "" {
		args = append(args, "--model", model)
	}
	if p.allowOutsideGit {
		args = append(args, "--skip-git-repo-check")
	}
	if p.profile != "" {
		args = append(args, "--profile", p.profile)
	}
	args = append(args, p.extraArgs...)
	return append(args, "-")
}

// codexOutput is what we take from the `codex exec --json` event stream.
type codexOutput struct {
	content     string
	failure     string
	threadID    string
	hasUsage    bool
	input       uint64
	cachedInput uint64
	output      uint64
}

type codexEvent struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
	Item     *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item"`
	Usage *struct {
		InputTokens       uint64 `json:"input_tokens"`
		CachedInputTokens uint64 `json:"cached_input_tokens"`
		OutputTokens      uint64 `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// parseCodexOutput scans JSONL events. The last completed agent_message is
// the content. Lines that are not JSON are ignored.
func parseCodexOutput(stdout []byte) codexOutput {
	var out codexOutput
	sc := bufio.NewScanner(bytes.NewReader(stdout))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev codexEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "thread.started":
			out.threadID = ev.ThreadID
		case "item.completed":
			if ev.Item != nil && ev.Item.Type == "agent_message" {
				out.content = ev.Item.Text
			}
		case "turn.completed":
			if ev.Usage != nil {
				out.hasUsage = true
				out.input = ev.Usage.InputTokens
				out.cachedInput = ev.Usage.CachedInputTokens
				out.output = ev.Usage.OutputTokens
			}
		case "error":
			if ev.Message != "" {
				out.failure = ev.Message
			}
		case "turn.failed", "run.failed":
			if ev.Error != nil && ev.Error.Message != "" {
				out.failure = ev.Error.Message
			}
		}
	}
	return out
}

// Capabilities reports Codex's static capabilities.
func (p *CodexProvider) Capabilities() Capabilities {
	return Capabilities{
		MaxContextTokens: 128_000,
		Models:           p.ListModels(),
	}
}

// ListModels returns the accepted model names.
func (p *CodexProvider) ListModels() []string {
	out := make([]string, len(codexModels))
	copy(out, codexModels)
	return out
}

// EstimateTokens approximates four bytes per token.
func (p *CodexProvider) EstimateTokens(text string) uint64 { return estimateTokens(text) }

// Status returns a snapshot of the provider's health and limiter.
func (p *CodexProvider) Status() Status { return p.core.statusSnapshot() }

// HealthCheck runs `codex --version`, enforcing min_cli_version.
func (p *CodexProvider) HealthCheck(ctx context.Context) error {
	version, err := p.runner.versionCheck(ctx, p.cliPath, p.minVersion)
	if err == nil {
		p.core.logger.Debug("health check passed", "version", version)
	}
	p.core.status.recordHealth(err == nil, time.Now())
	return err
}

// Shutdown marks the provider closed. It holds no other resources.
func (p *CodexProvider) Shutdown(context.Context) error {
	if p.core.shutdown() {
		p.core.logger.Debug("provider shut down")
	}
	return nil
}
