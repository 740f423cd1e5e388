// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

// Package redact strips sensitive values from strings before they appear in
// output, logs, audit files or error messages.
package redact

import (
	"os"
	"regexp"
	"strings"
	"sync"
)

// Placeholder replaces every redacted value.
const Placeholder = "[REDACTED]"

// minSecretLen guards against false positives from very short values.
const minSecretLen = 4

// sensitiveEnvVars lists environment variable names whose values must never
// appear in output.
var sensitiveEnvVars = []string{
	"ANTHROPIC_API_KEY",
	"OPENAI_API_KEY",
	"CODEX_API_KEY",
	"CLAUDE_CODE_OAUTH_TOKEN",
	"ACA_API_KEY",
	"GITHUB_TOKEN",
}

// apiKeyPattern matches provider-style keys (sk-..., sk-ant-...) that were
// not supplied through the environment.
var apiKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)

var (
	cachedSecrets []string
	cacheOnce     sync.Once
)

func loadSecrets() {
	for _, envVar := range sensitiveEnvVars {
		val := os.Getenv(envVar)
		if len(val) >= minSecretLen {
			cachedSecrets = append(cachedSecrets, val)
		}
	}
}

func resetCache() {
	cachedSecrets = nil
	cacheOnce = sync.Once{}
}

// ResetForTest resets the cached secrets so tests in other packages can
// verify redaction behavior after setting env vars with t.Setenv.
func ResetForTest() { resetCache() }

// String replaces known sensitive environment variable values and anything
// shaped like a provider API key with Placeholder. Secret values are cached
// on first call.
func String(s string) string {
	cacheOnce.Do(loadSecrets)
	return Values(s, cachedSecrets...)
}

// Values replaces each of secrets (ignoring ones shorter than four bytes)
// and anything shaped like a provider API key with Placeholder.
func Values(s string, secrets ...string) string {
	for _, secret := range secrets {
		if len(secret) < minSecretLen {
			continue
		}
		s = strings.ReplaceAll(s, secret, Placeholder)
	}
	return apiKeyPattern.ReplaceAllString(s, Placeholder)
}
