// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aca-dev/aca/internal/redact"
)

// AuditPaths returns the three audit files written for request id under dir.
func AuditPaths(dir string, id uuid.UUID) (cmd, stdout, stderr string) {
	base := filepath.Join(dir, id.String())
	return base + ".cmd", base + ".stdout", base + ".stderr"
}

// auditFiles holds the per-request audit streams. A nil *auditFiles is valid
// and discards everything.
type auditFiles struct {
	cmd, stdout, stderr *os.File
	secrets             []string
}

// openAudit creates dir if needed and the three audit files inside it. It
// runs before any child is spawned, so a spawn failure still leaves the .cmd
// breadcrumb.
func openAudit(dir string, id uuid.UUID, secrets ...string) (*auditFiles, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	cmdPath, outPath, errPath := AuditPaths(dir, id)
	a := &auditFiles{secrets: secrets}
	var err error
	if a.cmd, err = createAuditFile(cmdPath); err != nil {
		return nil, err
	}
	if a.stdout, err = createAuditFile(outPath); err != nil {
		_ = a.close()
		return nil, err
	}
	if a.stderr, err = createAuditFile(errPath); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

func createAuditFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600) //nolint:gosec // path derived from request id
	if err != nil {
		return nil, fmt.Errorf("create audit file: %w", err)
	}
	return f, nil
}

// beginAttempt truncates all three files and records the command line of
// the attempt about to run. Only the final attempt is kept on disk.
func (a *auditFiles) beginAttempt(program string, args []string) error {
	if a == nil {
		return nil
	}
	for _, f := range []*os.File{a.cmd, a.stdout, a.stderr} {
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("truncate audit file: %w", err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind audit file: %w", err)
		}
	}
	line := redact.Values(shellJoin(program, args), a.secrets...)
	if _, err := a.cmd.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write audit command: %w", err)
	}
	return nil
}

// writeStdout and writeStderr return nil writers for a nil receiver, which
// the backend treats as "no tee".
func (a *auditFiles) writeStdout() io.Writer {
	if a == nil {
		return nil
	}
	return a.stdout
}

func (a *auditFiles) writeStderr() io.Writer {
	if a == nil {
		return nil
	}
	return a.stderr
}

// close syncs and closes every open file.
func (a *auditFiles) close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for _, f := range []*os.File{a.cmd, a.stdout, a.stderr} {
		if f == nil {
			continue
		}
		errs = append(errs, f.Sync(), f.Close())
	}
	return errors.Join(errs...)
}

// shellJoin renders program and args as one POSIX shell line.
func shellJoin(program string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellEscape(program))
	for _, a := range args {
		parts = append(parts, shellEscape(a))
	}
	return strings.Join(parts, " ")
}

func shellEscape(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	if strings.IndexFunc(s, isControl) >= 0 {
		return ansiQuote(s)
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ansiQuote uses $'...' quoting so that control characters, newlines in
// particular, do not break the single-line .cmd file.
func ansiQuote(s string) string {
	var b strings.Builder
	b.WriteString("$'")
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func isControl(r rune) bool { return r < 0x20 || r == 0x7f }

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,@%+", r)
}
