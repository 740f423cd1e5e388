// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"fmt"
)

// DefaultImage is used when a container configuration names no image.
const DefaultImage = "alpine:latest"

// DefaultResourcePercentage is the share of host CPU and memory given to the
// sandbox container when no percentage is configured.
const DefaultResourcePercentage = 0.5

// ModeKind selects an execution backend.
type ModeKind int

const (
	ModeHost ModeKind = iota
	ModeContainer
)

func (k ModeKind) String() string {
	if k == ModeContainer {
		return "container"
	}
	return "host"
}

// Mode is the execution-mode configuration: either host, or container with
// its settings.
type Mode struct {
	Kind      ModeKind
	Container ContainerConfig
}

// HostMode returns the host execution mode.
func HostMode() Mode { return Mode{Kind: ModeHost} }

// ContainerMode returns a container execution mode.
func ContainerMode(cfg ContainerConfig) Mode {
	return Mode{Kind: ModeContainer, Container: cfg}
}

// ContainerConfig describes the sandbox container.
type ContainerConfig struct {
	Image string

	// ResourcePercentage is the share of detected host CPU and memory given
	// to the container, in [0, 1].
	ResourcePercentage float64

	// MemoryLimitBytes and CPUQuota, when non-nil, override the
	// percentage-derived limits.
	MemoryLimitBytes *int64
	CPUQuota         *int64

	// WorkspaceMount, when set, is bind-mounted at /workspace.
	WorkspaceMount string
}

// Allocation resolves the container's limits against res. Explicit overrides
// take precedence over the percentage.
func (c ContainerConfig) Allocation(res SystemResources) Allocation {
	a := res.AllocatePercentage(c.ResourcePercentage)
	if c.MemoryLimitBytes != nil {
		a.MemoryBytes = *c.MemoryLimitBytes
	}
	if c.CPUQuota != nil {
		a.CPUQuota = *c.CPUQuota
	}
	return a
}

// Validate checks the container configuration.
func (c ContainerConfig) Validate() error {
	if c.ResourcePercentage < 0 || c.ResourcePercentage > 1 {
		return fmt.Errorf("resource_percentage must be between 0.0 and 1.0, got %g", c.ResourcePercentage)
	}
	if c.MemoryLimitBytes != nil && *c.MemoryLimitBytes <= 0 {
		return fmt.Errorf("memory_limit_bytes must be positive, got %d", *c.MemoryLimitBytes)
	}
	if c.CPUQuota != nil && *c.CPUQuota <= 0 {
		return fmt.Errorf("cpu_quota must be positive, got %d", *c.CPUQuota)
	}
	return nil
}

// New builds the backend selected by mode. Host options apply to the host
// backend and to the container runtime's own process execution.
func New(mode Mode, opts ...Option) (Backend, error) {
	o := buildOptions(opts)
	switch mode.Kind {
	case ModeHost:
		return NewHost(o.hostOptions()...), nil
	case ModeContainer:
		return NewContainer(mode.Container, opts...)
	default:
		return nil, fmt.Errorf("backend: unknown execution mode %d", mode.Kind)
	}
}
