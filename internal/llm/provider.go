// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/metrics"
)

// defaultCLITimeout bounds one agent run when no timeout is configured.
const defaultCLITimeout = 10 * time.Minute

// providerCore is the state and request pipeline shared by every variant.
type providerCore struct {
	name    string
	limiter *RateLimiter
	status  *statusTracker
	metrics *metrics.Recorder
	logger  *slog.Logger
	secrets []string
	closed  atomic.Bool
}

func newProviderCore(name string, cfg ProviderConfig, o *providerOptions) (*providerCore, error) {
	maxWait, err := cfg.durationOpt(KeyRateLimitMaxWait)
	if err != nil {
		return nil, newError(KindInvalidRequest, err.Error())
	}
	limiterOpts := append([]LimiterOption{WithMaxWait(maxWait)}, o.limiterOpts...)
	var secrets []string
	if cfg.APIKey != "" {
		secrets = append(secrets, cfg.APIKey)
	}
	return &providerCore{
		name:    name,
		limiter: NewRateLimiter(cfg.RateLimits, limiterOpts...),
		status:  newStatusTracker(),
		metrics: o.metrics,
		logger:  o.logger.With("provider", name),
		secrets: secrets,
	}, nil
}

// attemptFunc performs the provider-specific part of a request: spawning the
// agent (or calling the API) and parsing its output. The core fills in
// RequestID and ExecutionTime.
type attemptFunc func(ctx context.Context, audit *auditFiles) (*Response, error)

// execute runs the common pipeline: admission, audit setup, the attempt, and
// bookkeeping. rendered is what the rate limiter estimates tokens from when
// the request carries no estimate.
func (c *providerCore) execute(ctx context.Context, req *Request, sessionDir, rendered string, attempt attemptFunc) (*Response, error) {
	begin := time.Now()
	resp, err := c.executeOnce(ctx, req, sessionDir, rendered, attempt)
	c.finish(req, begin, resp, err)
	return resp, err
}

func (c *providerCore) executeOnce(ctx context.Context, req *Request, sessionDir, rendered string, attempt attemptFunc) (*Response, error) {
	if req == nil {
		return nil, newError(KindInvalidRequest, "request is nil")
	}
	if c.closed.Load() {
		return nil, newError(KindProviderUnavailable, c.name+" provider has been shut down")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	est := req.EstimatedTokens
	if est == 0 {
		est = estimateTokens(rendered)
	}
	permit, err := c.limiter.Acquire(ctx, est)
	if err != nil {
		if IsKind(err, KindRateLimit) {
			c.metrics.RateLimited(c.name)
		}
		return nil, err
	}

	done := c.metrics.RequestStarted(c.name)
	defer done()

	audit, err := openAudit(sessionDir, req.ID, c.secrets...)
	if err != nil {
		return nil, wrapError(KindProviderSpecific, "audit: "+err.Error(), err)
	}
	defer func() {
		if cerr := audit.close(); cerr != nil {
			c.logger.Warn("closing audit files", "request_id", req.ID, "error", cerr)
		}
	}()

	c.logger.Debug("executing request", "request_id", req.ID, "permit_id", permit.ID, "estimated_tokens", est)
	start := time.Now()
	resp, err := attempt(ctx, audit)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, newError(KindProviderSpecific, c.name+" returned an empty response")
	}
	resp.RequestID = req.ID
	resp.ExecutionTime = elapsed
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["permit_id"] = permit.ID.String()
	return resp, nil
}

// finish updates status and metrics for one request.
func (c *providerCore) finish(req *Request, begin time.Time, resp *Response, err error) {
	d := time.Since(begin)
	if err == nil {
		c.status.recordSuccess(resp.ExecutionTime)
		c.metrics.ObserveRequest(c.name, "success", d)
		c.metrics.AddTokens(c.name, resp.Usage.Input, resp.Usage.Output)
		c.logger.Info("request completed", "request_id", resp.RequestID, "model", resp.ModelUsed,
			"tokens", resp.Usage.Total, "duration", resp.ExecutionTime)
		return
	}

	outcome := "error"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "cancelled"
	case KindOf(err) != 0:
		outcome = KindOf(err).String()
	}
	c.metrics.ObserveRequest(c.name, outcome, d)
	if outcome != "cancelled" && !IsKind(err, KindRateLimit) {
		c.status.recordError()
	}
	var id any
	if req != nil {
		id = req.ID
	}
	c.logger.Warn("request failed", "request_id", id, "outcome", outcome, "error", err)
}

func (c *providerCore) statusSnapshot() Status {
	return c.status.snapshot(c.limiter.Status())
}

// shutdown marks the provider closed. It reports whether this call closed it.
func (c *providerCore) shutdown() bool {
	return c.closed.CompareAndSwap(false, true)
}

// cliRunner spawns an agent CLI through a backend and maps backend failures
// onto the error taxonomy.
type cliRunner struct {
	backend backend.Backend
	workdir string
	timeout time.Duration
	env     map[string]string
}

// run executes one attempt. A nil error means the child ran to completion;
// the caller inspects the exit status.
func (r *cliRunner) run(ctx context.Context, audit *auditFiles, program string, args []string, stdin string) (*backend.Result, error) {
	if err := audit.beginAttempt(program, args); err != nil {
		return nil, wrapError(KindProviderSpecific, "audit: "+err.Error(), err)
	}
	res, err := r.backend.Run(ctx, backend.Command{
		Program:    program,
		Args:       args,
		Env:        r.env,
		WorkingDir: r.workdir,
		Timeout:    r.timeout,
		Stdin:      stdin,
		Stdout:     audit.writeStdout(),
		Stderr:     audit.writeStderr(),
	})
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return nil, err
	case backend.IsKind(err, backend.KindSpawnFailed):
		return nil, wrapError(KindProviderUnavailable, fmt.Sprintf("cannot start %s: %v", program, err), err)
	case backend.IsKind(err, backend.KindTimeout):
		return nil, wrapError(KindNetwork, fmt.Sprintf("%s did not finish within %s", program, r.timeout), err)
	default:
		return nil, wrapError(KindProviderSpecific, err.Error(), err)
	}
}

// versionCheck runs `<program> --version` and enforces minVersion.
func (r *cliRunner) versionCheck(ctx context.Context, program, minVersion string) (string, error) {
	res, err := r.backend.Run(ctx, backend.Command{
		Program: program,
		Args:    []string{"--version"},
		Timeout: 30 * time.Second,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", wrapError(KindProviderUnavailable, fmt.Sprintf("%s --version: %v", program, err), err)
	}
	if !res.Success() {
		return "", newError(KindProviderUnavailable, fmt.Sprintf("%s --version exited with status %d: %s",
			program, res.ExitStatus, strings.TrimSpace(string(res.Stderr))))
	}
	version := ParseCLIVersion(string(res.Stdout))
	if err := checkMinVersion(program, version, minVersion); err != nil {
		return version, err
	}
	return version, nil
}
