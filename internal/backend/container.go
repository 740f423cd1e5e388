// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ContainerWorkdir is where the workspace is mounted inside the sandbox.
const ContainerWorkdir = "/workspace"

const (
	// createTimeout bounds container creation, image pull included.
	createTimeout = 5 * time.Minute
	killTimeout   = 10 * time.Second
)

// ContainerSpec is everything a runtime needs to create the sandbox.
type ContainerSpec struct {
	Name           string
	Image          string
	Limits         Allocation
	WorkspaceMount string
}

// ContainerRuntime is the narrow surface of a container engine the container
// backend depends on.
type ContainerRuntime interface {
	// Create starts a long-lived container and returns its ID.
	Create(ctx context.Context, spec ContainerSpec) (string, error)

	// ExecCommand translates cmd into a host command that runs it inside
	// container id. tag names this execution for Kill.
	ExecCommand(id, tag string, cmd Command) Command

	// Kill stops the execution started under tag and everything it spawned.
	// Killing the local client does not reach processes inside the container.
	Kill(ctx context.Context, id, tag string) error

	// Remove force-removes container id.
	Remove(ctx context.Context, id string) error
}

// Container runs commands inside one sandbox container, created on first use
// and reused for every later command.
type Container struct {
	cfg       ContainerConfig
	runtime   ContainerRuntime
	host      *Host
	resources func() SystemResources
	logger    *slog.Logger

	group singleflight.Group

	mu     sync.Mutex
	id     string
	closed bool
}

var _ Backend = (*Container)(nil)

// NewContainer validates cfg and returns a container backend. No container
// is created until the first Run.
func NewContainer(cfg ContainerConfig, opts ...Option) (*Container, error) {
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("container backend: %w", err)
	}
	o := buildOptions(opts)
	host := NewHost(o.hostOptions()...)
	rt := o.runtime
	if rt == nil {
		rt = NewDockerCLI("docker", host)
	}
	return &Container{
		cfg:       cfg,
		runtime:   rt,
		host:      host,
		resources: o.resources,
		logger:    o.logger,
	}, nil
}

// Name returns "container".
func (c *Container) Name() string { return "container" }

// Run execs cmd inside the sandbox, creating it first if needed. A failure to
// create the container is reported as a spawn failure.
func (c *Container) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Program == "" {
		return nil, ErrEmptyProgram
	}
	id, err := c.ensure(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &cancelledError{program: cmd.Program, err: ctx.Err()}
		}
		return &Result{
			ExitStatus: ExitStatusSpawnFailed,
			Stderr:     []byte(err.Error()),
		}, &Error{Kind: KindSpawnFailed, Program: cmd.Program, Err: err}
	}

	if cmd.WorkingDir == "" {
		cmd.WorkingDir = ContainerWorkdir
	}
	tag := uuid.NewString()
	res, err := c.host.Run(ctx, c.runtime.ExecCommand(id, tag, cmd))
	if ctx.Err() != nil || IsKind(err, KindTimeout) {
		c.kill(ctx, id, tag)
	}
	var be *Error
	if errors.As(err, &be) {
		// Report the user's program, not the runtime client.
		be.Program = cmd.Program
	}
	return res, err
}

func (c *Container) kill(ctx context.Context, id, tag string) {
	kctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
	defer cancel()
	if err := c.runtime.Kill(kctx, id, tag); err != nil {
		c.logger.Warn("stopping sandbox process", "id", id, "error", err)
	}
}

// ensure returns the sandbox ID, creating it once. Concurrent first callers
// share a single creation, which outlives any one caller's context so that a
// cancelled caller cannot fail it for the others.
func (c *Container) ensure(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", errors.New("container backend is closed")
	}
	if c.id != "" {
		id := c.id
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ch := c.group.DoChan("create", func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createTimeout)
		defer cancel()
		spec := ContainerSpec{
			Name:           "aca-" + uuid.NewString()[:8],
			Image:          c.cfg.Image,
			Limits:         c.cfg.Allocation(c.resources()),
			WorkspaceMount: c.cfg.WorkspaceMount,
		}
		c.logger.Info("creating sandbox container", "image", spec.Image, "name", spec.Name,
			"memory_bytes", spec.Limits.MemoryBytes, "cpu_quota", spec.Limits.CPUQuota)
		id, err := c.runtime.Create(cctx, spec)
		if err != nil {
			return "", fmt.Errorf("create container from %s: %w", spec.Image, err)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			// Close raced with creation; do not leak the container.
			go func() { _ = c.runtime.Remove(context.WithoutCancel(cctx), id) }()
			return "", errors.New("container backend is closed")
		}
		c.id = id
		return id, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// Close removes the sandbox container if one was created. It is idempotent.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	id := c.id
	c.id = ""
	c.closed = true
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	c.logger.Info("removing sandbox container", "id", id)
	return c.runtime.Remove(ctx, id)
}

// DockerCLI drives a docker-compatible CLI (docker or podman).
type DockerCLI struct {
	binary string
	host   *Host
}

// NewDockerCLI returns a runtime that invokes binary through host.
func NewDockerCLI(binary string, host *Host) *DockerCLI {
	return &DockerCLI{binary: binary, host: host}
}

// Create runs `<binary> run -d` with the spec's limits and mount, keeping the
// container alive with `sleep infinity`.
func (d *DockerCLI) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	args := []string{"run", "-d", "--name", spec.Name}
	if spec.Limits.MemoryBytes > 0 {
		args = append(args, "--memory", strconv.FormatInt(spec.Limits.MemoryBytes, 10))
	}
	if spec.Limits.CPUQuota > 0 {
		args = append(args,
			"--cpu-period", strconv.Itoa(cpuPeriod),
			"--cpu-quota", strconv.FormatInt(spec.Limits.CPUQuota, 10))
	}
	if spec.WorkspaceMount != "" {
		args = append(args, "-v", spec.WorkspaceMount+":"+ContainerWorkdir)
	}
	args = append(args, "-w", ContainerWorkdir, spec.Image, "sleep", "infinity")

	res, err := d.host.Run(ctx, Command{Program: d.binary, Args: args})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("%s run exited %d: %s", d.binary, res.ExitStatus, strings.TrimSpace(string(res.Stderr)))
	}
	id := strings.TrimSpace(string(res.Stdout))
	if id == "" {
		return "", fmt.Errorf("%s run printed no container id", d.binary)
	}
	return id, nil
}

// pidFile is where the exec wrapper records the PID of the run tagged tag.
func pidFile(tag string) string { return "/tmp/aca-" + tag + ".pid" }

// execWrapper records its PID in $0 and then becomes the program, so Kill
// can find it.
const execWrapper = `echo $$ > "$0"; exec "$@"`

// killScript kills the recorded process group, falling back to the single
// PID when the process does not lead a group.
const killScript = `pid=$(cat "$0" 2>/dev/null) || exit 0; ` +
	`kill -KILL -- -"$pid" 2>/dev/null || kill -KILL "$pid" 2>/dev/null; rm -f "$0"`

// ExecCommand maps cmd onto `<binary> exec -i`, wrapped in sh so the
// in-container PID is recorded. Env overrides are passed with -e so they
// apply inside the container rather than to the client.
func (d *DockerCLI) ExecCommand(id, tag string, cmd Command) Command {
	args := []string{"exec", "-i"}
	if cmd.WorkingDir != "" {
		args = append(args, "-w", cmd.WorkingDir)
	}
	keys := make([]string, 0, len(cmd.Env))
	for k := range cmd.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+cmd.Env[k])
	}
	args = append(args, id, "sh", "-c", execWrapper, pidFile(tag), cmd.Program)
	args = append(args, cmd.Args...)
	return Command{
		Program: d.binary,
		Args:    args,
		Timeout: cmd.Timeout,
		Stdin:   cmd.Stdin,
		Stdout:  cmd.Stdout,
		Stderr:  cmd.Stderr,
	}
}

// Kill runs the kill script inside container id for the run tagged tag.
func (d *DockerCLI) Kill(ctx context.Context, id, tag string) error {
	res, err := d.host.Run(ctx, Command{Program: d.binary, Args: []string{"exec", id, "sh", "-c", killScript, pidFile(tag)}})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s exec kill exited %d: %s", d.binary, res.ExitStatus, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}

// Remove runs `<binary> rm -f`.
func (d *DockerCLI) Remove(ctx context.Context, id string) error {
	res, err := d.host.Run(ctx, Command{Program: d.binary, Args: []string{"rm", "-f", id}})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s rm exited %d: %s", d.binary, res.ExitStatus, strings.TrimSpace(string(res.Stderr)))
	}
	return nil
}
