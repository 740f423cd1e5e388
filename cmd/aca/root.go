package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	acalog "github.com/aca-dev/aca/internal/log"
	"github.com/aca-dev/aca/internal/metrics"
)

// Global flag values.
var (
	verbose     bool
	quiet       bool
	noColor     bool
	logFormat   string
	configPath  string
	metricsFile string
)

// Process-wide collaborators, set up once per invocation.
var (
	logger   = slog.Default()
	recorder *metrics.Recorder
)

// rootCmd is the base command for aca.
var rootCmd = &cobra.Command{
	Use:   "aca",
	Short: "Run coding agents and task setup plans",
	Long: `aca drives command-line coding agents (Claude Code, Codex) behind one
provider contract with per-provider rate limiting, and runs staged task
setup plans on the host or inside a container.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		switch logFormat {
		case "text", "json":
		default:
			return exitError(ExitError, "aca: invalid --log-format %q (must be text or json)", logFormat)
		}
		logger = acalog.Setup(acalog.Options{Verbose: verbose, Quiet: quiet, JSON: logFormat == "json"})
		if noColor {
			color.NoColor = true
		}
		recorder = metrics.New()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: aca.toml, .aca/config.toml, then $XDG_CONFIG_HOME/aca/config.toml)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write Prometheus metrics in textfile format to this path on exit")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// writeMetrics flushes the recorder to --metrics-file, if requested.
func writeMetrics() error {
	if metricsFile == "" || recorder == nil {
		return nil
	}
	if err := recorder.WriteTextfile(metricsFile); err != nil {
		return fmt.Errorf("%s: %w", metricsFile, err)
	}
	return nil
}
