// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

//go:build unix

package backend

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in a new process group and makes context
// cancellation kill the whole group rather than just the leader.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
}
