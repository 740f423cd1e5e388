// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies provider failures. The set is closed.
type ErrorKind int

const (
	KindRateLimit ErrorKind = iota + 1
	KindAuthentication
	KindInvalidRequest
	KindModelUnavailable
	KindProviderUnavailable
	KindContextTooLarge
	KindNetwork
	KindProviderSpecific
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindAuthentication:
		return "authentication"
	case KindInvalidRequest:
		return "invalid_request"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindContextTooLarge:
		return "context_too_large"
	case KindNetwork:
		return "network"
	case KindProviderSpecific:
		return "provider_specific"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the typed failure returned by providers and the rate limiter.
type Error struct {
	Kind    ErrorKind
	Message string

	// ResetTime is when a rate-limited request could be admitted. Zero when
	// unknown.
	ResetTime time.Time

	// Current and Max are set for KindContextTooLarge.
	Current uint64
	Max     uint64

	Err error
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Error renders one human-readable line per kind.
func (e *Error) Error() string {
	switch e.Kind {
	case KindRateLimit:
		if !e.ResetTime.IsZero() {
			return fmt.Sprintf("rate limit exceeded: %s (resets at %s)", e.Message, e.ResetTime.Format(time.RFC3339))
		}
		return "rate limit exceeded: " + e.Message
	case KindAuthentication:
		return "authentication failed: " + e.Message
	case KindInvalidRequest:
		return "invalid request: " + e.Message
	case KindModelUnavailable:
		return "model unavailable: " + e.Message
	case KindProviderUnavailable:
		return "provider unavailable: " + e.Message
	case KindContextTooLarge:
		if e.Max > 0 {
			return fmt.Sprintf("context too large: %d tokens exceeds limit of %d", e.Current, e.Max)
		}
		return "context too large: " + e.Message
	case KindNetwork:
		return "network error: " + e.Message
	default:
		return "provider error: " + e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
