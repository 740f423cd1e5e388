package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aca-dev/aca/internal/config"
)

// resolveConfigPath returns --config, or the first discovered config file
// relative to dir.
func resolveConfigPath(dir string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Discover(dir)
}

// loadConfig loads, merges and validates the configuration. The returned
// path is the file the configuration came from.
func loadConfig(dir string, overrides config.Overrides) (*config.Config, string, error) {
	path, err := resolveConfigPath(dir)
	if err != nil {
		return nil, "", exitError(ExitError, "aca: %v", err)
	}
	fileCfg, err := config.Load(path)
	if err != nil {
		return nil, path, exitError(ExitError, "aca: loading config: %v", err)
	}
	cfg := config.Merge(fileCfg, overrides)
	if err := config.Validate(cfg); err != nil {
		return nil, path, exitError(ExitError, "aca: %s: %v", path, err)
	}
	logger.Debug("loaded config", "path", path)
	return cfg, path, nil
}

// resolveWorkspace returns the absolute workspace directory, defaulting to
// the current directory.
func resolveWorkspace(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", exitError(ExitError, "aca: cannot resolve workspace %q (%v)", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", exitError(ExitError, "aca: workspace %q does not exist", dir)
	}
	if !info.IsDir() {
		return "", exitError(ExitError, "aca: workspace %q is not a directory", dir)
	}
	return abs, nil
}

// sessionDirFor resolves the audit directory; relative paths are taken from
// the workspace.
func sessionDirFor(workspace, dir string) (string, error) {
	if dir == "" {
		dir = filepath.Join(".aca", "sessions")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	return dir, nil
}
