// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

//go:build !unix

package backend

import "os/exec"

// setProcessGroup is a no-op on platforms without process groups; the
// default exec.CommandContext cancellation kills the direct child only.
func setProcessGroup(*exec.Cmd) {}
