// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxContextValueBytes truncates each context value in the rendered prompt.
const maxContextValueBytes = 2048

// composePrompt renders the system message (when includeSystem is set), a
// sorted Context block and the prompt, separated by blank lines.
func composePrompt(req *Request, includeSystem bool) string {
	var segments []string
	if sys := strings.TrimSpace(req.SystemMessage); includeSystem && sys != "" {
		segments = append(segments, "System instructions:\n"+sys)
	}
	if len(req.Context) > 0 {
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("Context:")
		for _, k := range keys {
			b.WriteString("\n- ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(truncateUTF8(strings.TrimSpace(req.Context[k]), maxContextValueBytes))
		}
		segments = append(segments, b.String())
	}
	segments = append(segments, req.Prompt)
	return strings.Join(segments, "\n\n")
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// estimateTokens approximates four bytes per token, rounding up.
func estimateTokens(text string) uint64 {
	return uint64((len(text) + 3) / 4)
}

// price is USD per million tokens.
type price struct {
	input, output float64
}

// priceTable maps a model name prefix to its list price. Longer prefixes are
// tried first.
var priceTable = map[string]price{
	"claude-opus":   {15, 75},
	"opus":          {15, 75},
	"claude-sonnet": {3, 15},
	"sonnet":        {3, 15},
	"claude-haiku":  {1, 5},
	"haiku":         {1, 5},
	"o4-mini":       {1.1, 4.4},
	"o3-mini":       {1.1, 4.4},
	"gpt-4.1":       {2, 8},
	"gpt-5":         {1.25, 10},
}

// estimateCost returns the list-price cost of a request, or zero for models
// without a known price.
func estimateCost(model string, input, output uint64) float64 {
	model = strings.ToLower(model)
	best := ""
	for prefix := range priceTable {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0
	}
	p := priceTable[best]
	return (float64(input)*p.input + float64(output)*p.output) / 1e6
}

// Failure signatures. Status codes only count next to words that make them
// HTTP statuses, so pids, line numbers and paths cannot match.
var (
	rateLimitSignatures = []string{
		"rate limit", "rate_limit", "too many requests", "usage limit", "quota exceeded",
		"status 429", "status code 429", "http 429", "error: 429", "error 429",
	}
	authSignatures = []string{
		"unauthorized", "authentication_error", "authentication failed", "authentication required",
		"invalid api key", "invalid x-api-key", "status 401", "status code 401", "http 401", "error: 401",
		"not logged in", "please log in", "please run /login", "codex login", "not signed in",
	}
	modelSignatures = []string{
		"model not found", "unknown model", "unsupported model", "model_not_found", "invalid model",
	}
	contextSignatures = []string{
		"context length", "context window", "prompt is too long", "too many tokens", "maximum context",
	}

	// modelMissing matches "model X does not exist" style messages.
	modelMissing = regexp.MustCompile(`\bmodel\b[^\n]{0,80}\b(does not exist|is not available|not available)\b`)
)

// failureOutput is what a failed agent run left behind. Reported is the
// error the CLI put in its structured output; Stdout is only shown, never
// scanned, since it carries agent text that can mention anything.
type failureOutput struct {
	Reported string
	Stderr   string
	Stdout   string
}

// classifyFailure maps a failed agent run to an error kind by scanning the
// reported error and stderr for well-known signatures, falling back to
// KindProviderSpecific.
func classifyFailure(program string, exitStatus int, out failureOutput) *Error {
	msg := firstNonEmpty(out.Reported, out.Stderr, out.Stdout, "no output")
	lower := strings.ToLower(out.Reported + "\n" + out.Stderr)
	kind := KindProviderSpecific
	switch {
	case containsAny(lower, rateLimitSignatures):
		kind = KindRateLimit
	case containsAny(lower, authSignatures):
		kind = KindAuthentication
	case containsAny(lower, modelSignatures) || modelMissing.MatchString(lower):
		kind = KindModelUnavailable
	case containsAny(lower, contextSignatures):
		kind = KindContextTooLarge
	}
	if kind == KindProviderSpecific {
		msg = program + " exited with status " + strconv.Itoa(exitStatus) + ": " + msg
	}
	return newError(kind, msg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
