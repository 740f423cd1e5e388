// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package setup

import (
	"fmt"
	"strings"
)

// Output is what a condition inspects: the captured streams of a failed
// command and its exit status.
type Output struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// newOutput decodes raw streams, replacing invalid UTF-8.
func newOutput(stdout, stderr []byte, exitStatus int) Output {
	return Output{
		Stdout:     strings.ToValidUTF8(string(stdout), "�"),
		Stderr:     strings.ToValidUTF8(string(stderr), "�"),
		ExitStatus: exitStatus,
	}
}

// Condition decides whether a Backup handler applies to a failure.
type Condition interface {
	Match(out Output) bool
	String() string
}

// StderrContains matches when stderr contains the substring.
type StderrContains string

func (c StderrContains) Match(out Output) bool { return strings.Contains(out.Stderr, string(c)) }
func (c StderrContains) String() string        { return fmt.Sprintf("stderr contains %q", string(c)) }

// StdoutContains matches when stdout contains the substring.
type StdoutContains string

func (c StdoutContains) Match(out Output) bool { return strings.Contains(out.Stdout, string(c)) }
func (c StdoutContains) String() string        { return fmt.Sprintf("stdout contains %q", string(c)) }

// ExitCodeEquals matches one exit status.
type ExitCodeEquals int

func (c ExitCodeEquals) Match(out Output) bool { return out.ExitStatus == int(c) }
func (c ExitCodeEquals) String() string        { return fmt.Sprintf("exit code == %d", int(c)) }

// ExitCodeInRange matches Min <= status <= Max.
type ExitCodeInRange struct {
	Min, Max int
}

func (c ExitCodeInRange) Match(out Output) bool {
	return out.ExitStatus >= c.Min && out.ExitStatus <= c.Max
}

func (c ExitCodeInRange) String() string {
	return fmt.Sprintf("exit code in [%d, %d]", c.Min, c.Max)
}

// Any matches when at least one member matches, evaluated in order with
// short-circuit. An empty Any never matches.
type Any []Condition

func (c Any) Match(out Output) bool {
	for _, sub := range c {
		if sub.Match(out) {
			return true
		}
	}
	return false
}

func (c Any) String() string { return "any(" + joinConditions(c) + ")" }

// All matches when every member matches, evaluated in order with
// short-circuit. An empty All always matches.
type All []Condition

func (c All) Match(out Output) bool {
	for _, sub := range c {
		if !sub.Match(out) {
			return false
		}
	}
	return true
}

func (c All) String() string { return "all(" + joinConditions(c) + ")" }

// Not inverts a condition.
type Not struct {
	Condition Condition
}

func (c Not) Match(out Output) bool { return !c.Condition.Match(out) }
func (c Not) String() string        { return "not(" + c.Condition.String() + ")" }

func joinConditions(cs []Condition) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
