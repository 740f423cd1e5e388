// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// cpuPeriod is the CFS scheduling period, in microseconds, that CPU quotas
// are expressed against. A quota equal to cpuPeriod is one full core.
const cpuPeriod = 100_000

// fallbackMemoryBytes is assumed when total memory cannot be detected.
const fallbackMemoryBytes = 8 << 30

// SystemResources describes the host's capacity.
type SystemResources struct {
	TotalMemoryBytes uint64
	CPUCores         int
}

// Allocation is a concrete container resource limit.
type Allocation struct {
	MemoryBytes int64
	// CPUQuota is in microseconds per cpuPeriod.
	CPUQuota int64
}

// DetectResources reads total memory from /proc/meminfo (falling back to
// 8 GiB where that file is unavailable) and counts logical CPUs.
func DetectResources() SystemResources {
	mem, err := readMemTotal("/proc/meminfo")
	if err != nil {
		mem = fallbackMemoryBytes
	}
	return SystemResources{
		TotalMemoryBytes: mem,
		CPUCores:         runtime.NumCPU(),
	}
}

// AllocatePercentage returns pct of the host's memory and CPU. pct is
// clamped to [0, 1].
func (r SystemResources) AllocatePercentage(pct float64) Allocation {
	pct = clamp01(pct)
	return Allocation{
		MemoryBytes: int64(float64(r.TotalMemoryBytes) * pct),
		CPUQuota:    int64(float64(r.CPUCores) * pct * cpuPeriod),
	}
}

func readMemTotal(path string) (uint64, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixed system path
	if err != nil {
		return 0, err
	}
	return parseMemTotal(data)
}

// parseMemTotal extracts MemTotal (reported in kB) from meminfo content.
func parseMemTotal(data []byte) (uint64, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("meminfo: %w", err)
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("meminfo: MemTotal not found")
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
