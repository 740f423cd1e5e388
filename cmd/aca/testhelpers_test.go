package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/aca-dev/aca/internal/llm"
)

// resetFlags restores every package-level flag to its default.
func resetFlags() {
	verbose, quiet, noColor = false, true, true
	logFormat = "text"
	configPath, metricsFile = "", ""
	setupWorkspace, setupMode, setupImage = ".", "", ""
	askWorkspace, askSessionDir, askSystem, askModel = ".", "", "", ""
	askConcurrency, askMaxTokens = 1, 0
	askContext = map[string]string{}
	askProvider = providerTypeValue{}
	providersAll, configShowFlat = false, false
	providersTimeout = 30 * time.Second
	resetHelp(rootCmd)
}

// resetHelp clears --help left set by an earlier Execute.
func resetHelp(c *cobra.Command) {
	if f := c.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
	}
	for _, sub := range c.Commands() {
		resetHelp(sub)
	}
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--quiet", "--no-color"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeConfig writes an aca.toml into a fresh directory and returns both.
func writeConfig(t *testing.T, body string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "aca.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return dir, path
}

// withMockProvider makes every provider construction return p.
func withMockProvider(t *testing.T, p llm.Provider) *[]llm.ProviderConfig {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []llm.ProviderConfig
	)
	orig := newProvider
	newProvider = func(cfg llm.ProviderConfig, _ string, _ ...llm.Option) (llm.Provider, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, cfg)
		return p, nil
	}
	t.Cleanup(func() { newProvider = orig })
	return &seen
}

func exitCodeOf(err error) int {
	if ece, ok := err.(*exitCodeError); ok {
		return ece.code
	}
	return -1
}
