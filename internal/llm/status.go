// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"sync"
	"sync/atomic"
	"time"
)

// ewmaSamples is the effective window of the response-time average.
const ewmaSamples = 32

// statusTracker accumulates the mutable parts of Status.
type statusTracker struct {
	errors atomic.Uint64

	mu        sync.Mutex
	healthy   bool
	lastCheck time.Time
	avg       time.Duration
	samples   int
}

func newStatusTracker() *statusTracker {
	return &statusTracker{healthy: true}
}

func (s *statusTracker) recordError() { s.errors.Add(1) }

// recordSuccess folds d into the moving average. The first sample seeds it.
func (s *statusTracker) recordSuccess(d time.Duration) {
	const alpha = 2.0 / (ewmaSamples + 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples == 0 {
		s.avg = d
	} else {
		s.avg = time.Duration(alpha*float64(d) + (1-alpha)*float64(s.avg))
	}
	s.samples++
}

func (s *statusTracker) recordHealth(ok bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
	s.lastCheck = at
}

func (s *statusTracker) snapshot(rl RateLimitStatus) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Healthy:             s.healthy,
		LastCheck:           s.lastCheck,
		ErrorCount:          s.errors.Load(),
		AverageResponseTime: s.avg,
		RateLimit:           rl,
	}
}
