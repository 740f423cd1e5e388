// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.-]+)?`)

// ParseCLIVersion extracts the first semantic version from `--version`
// output such as "1.0.51 (Claude Code)" or "codex-cli 0.46.0". It returns ""
// when none is found.
func ParseCLIVersion(out string) string {
	return versionPattern.FindString(out)
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// checkMinVersion fails with KindProviderUnavailable when version is older
// than minVersion. An empty minVersion always passes.
func checkMinVersion(program, version, minVersion string) error {
	if minVersion == "" {
		return nil
	}
	want := canonicalVersion(minVersion)
	if want == "" {
		return newError(KindInvalidRequest, fmt.Sprintf("min_cli_version %q is not a semantic version", minVersion))
	}
	have := canonicalVersion(version)
	if have == "" {
		return newError(KindProviderUnavailable, fmt.Sprintf("cannot determine %s version", program))
	}
	if semver.Compare(have, want) < 0 {
		return newError(KindProviderUnavailable, fmt.Sprintf("%s %s is older than the required %s", program, version, minVersion))
	}
	return nil
}
