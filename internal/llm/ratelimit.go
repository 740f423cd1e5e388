// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// rateWindow is the span both caps are measured over.
const rateWindow = time.Minute

// Permit is the receipt for one admitted request. Consumption is never
// refunded; capacity returns as the admission ages out of the window.
type Permit struct {
	ID              uuid.UUID
	TokensConsumed  uint64
	RequestConsumed bool
	GrantedAt       time.Time
}

// RateLimitStatus is a snapshot of remaining capacity. A disabled bucket
// reports math.MaxUint64 remaining.
type RateLimitStatus struct {
	RequestsRemaining uint64
	TokensRemaining   uint64
	// NextReset is when the oldest admission in the window expires, or the
	// snapshot time when the window is empty.
	NextReset time.Time
}

type admission struct {
	at     time.Time
	tokens uint64
}

// RateLimiter admits requests so that, over any 60-second window, neither
// the request cap nor the token cap (plus burst allowance) is exceeded.
//
// Admissions are kept in a ledger and capacity is recovered exactly when an
// admission leaves the trailing window. The mutex is never held while
// waiting.
type RateLimiter struct {
	cfg     RateLimitConfig
	maxWait time.Duration
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	mu     sync.Mutex
	ledger []admission
}

// LimiterOption configures a RateLimiter.
type LimiterOption func(*RateLimiter)

// WithMaxWait lets Acquire wait up to d for capacity instead of failing
// immediately. The caller's context deadline still bounds the wait.
func WithMaxWait(d time.Duration) LimiterOption {
	return func(l *RateLimiter) {
		if d > 0 {
			l.maxWait = d
		}
	}
}

func withClock(now func() time.Time, sleep func(context.Context, time.Duration) error) LimiterOption {
	return func(l *RateLimiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewRateLimiter creates a limiter for cfg.
func NewRateLimiter(cfg RateLimitConfig, opts ...LimiterOption) *RateLimiter {
	l := &RateLimiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RateLimiter) tokenCap() uint64 {
	return l.cfg.MaxTokensPerMinute + l.cfg.BurstAllowance
}

func (l *RateLimiter) disabled() bool {
	return l.cfg.MaxRequestsPerMinute == 0 && l.cfg.MaxTokensPerMinute == 0
}

// Acquire admits a request charging estimatedTokens. When capacity is short
// it waits for the ledger to age out, up to the configured max wait and the
// context deadline, and otherwise fails with KindRateLimit carrying the
// earliest time the request could be admitted. A request larger than the
// token cap can never be admitted and fails with KindInvalidRequest.
func (l *RateLimiter) Acquire(ctx context.Context, estimatedTokens uint64) (*Permit, error) {
	if l.cfg.MaxTokensPerMinute > 0 && estimatedTokens > l.tokenCap() {
		return nil, newError(KindInvalidRequest, fmt.Sprintf(
			"estimated %d tokens exceeds the per-minute capacity of %d", estimatedTokens, l.tokenCap()))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.mu.Lock()
		now := l.now()
		wait := l.waitLocked(now, estimatedTokens)
		if wait == 0 {
			if !l.disabled() {
				l.ledger = append(l.ledger, admission{at: now, tokens: estimatedTokens})
			}
			l.mu.Unlock()
			return &Permit{
				ID:              uuid.New(),
				TokensConsumed:  estimatedTokens,
				RequestConsumed: true,
				GrantedAt:       now,
			}, nil
		}
		l.mu.Unlock()

		allowed := l.maxWait
		if deadline, ok := ctx.Deadline(); ok {
			if rem := deadline.Sub(now); rem < allowed {
				allowed = rem
			}
		}
		if wait > allowed {
			return nil, &Error{
				Kind:      KindRateLimit,
				Message:   fmt.Sprintf("local limit of %d requests / %d tokens per minute reached", l.cfg.MaxRequestsPerMinute, l.tokenCap()),
				ResetTime: now.Add(wait),
			}
		}
		if err := l.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// waitLocked prunes expired admissions and returns how long until a request
// of the given size fits. Zero means it fits now.
func (l *RateLimiter) waitLocked(now time.Time, tokens uint64) time.Duration {
	l.pruneLocked(now)

	var until time.Time
	if rpm := l.cfg.MaxRequestsPerMinute; rpm > 0 && uint64(len(l.ledger)) >= rpm {
		// The admission whose expiry brings the count below the cap.
		until = l.ledger[uint64(len(l.ledger))-rpm].at.Add(rateWindow)
	}
	if l.cfg.MaxTokensPerMinute > 0 {
		var used uint64
		for _, a := range l.ledger {
			used += a.tokens
		}
		capacity := l.tokenCap()
		for i := 0; used+tokens > capacity && i < len(l.ledger); i++ {
			used -= l.ledger[i].tokens
			if t := l.ledger[i].at.Add(rateWindow); t.After(until) {
				until = t
			}
		}
	}
	if until.IsZero() || !until.After(now) {
		return 0
	}
	return until.Sub(now)
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(l.ledger) && !l.ledger[i].at.After(cutoff) {
		i++
	}
	if i > 0 {
		l.ledger = append(l.ledger[:0], l.ledger[i:]...)
	}
}

// Status returns remaining capacity in the current window.
func (l *RateLimiter) Status() RateLimitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.pruneLocked(now)

	st := RateLimitStatus{
		RequestsRemaining: math.MaxUint64,
		TokensRemaining:   math.MaxUint64,
		NextReset:         now,
	}
	if rpm := l.cfg.MaxRequestsPerMinute; rpm > 0 {
		st.RequestsRemaining = saturatingSub(rpm, uint64(len(l.ledger)))
	}
	if l.cfg.MaxTokensPerMinute > 0 {
		var used uint64
		for _, a := range l.ledger {
			used += a.tokens
		}
		st.TokensRemaining = saturatingSub(l.tokenCap(), used)
	}
	if len(l.ledger) > 0 {
		st.NextReset = l.ledger[0].at.Add(rateWindow)
	}
	return st
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
