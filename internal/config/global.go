// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
)

// GlobalConfigDir returns the directory for user-wide aca configuration.
// It uses $XDG_CONFIG_HOME/aca if set, otherwise ~/.config/aca.
func GlobalConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "aca")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aca")
}

// GlobalConfigPath returns the path to the user-wide config file.
func GlobalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.toml")
}
