package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aca-dev/aca/internal/config"
)

// configCmd is the parent command for config subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect aca configuration",
	Long: `Inspect aca configuration.

aca reads the first of aca.toml or .aca/config.toml in the current
directory, then $XDG_CONFIG_HOME/aca/config.toml (~/.config/aca/config.toml).
Pass --config to use a specific file; files ending in .yaml or .yml are
read as YAML, anything else as TOML. Unknown keys are errors.`,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, path, err := loadConfig(".", config.Overrides{})
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, okColor.Sprint("valid"))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Print the resolved configuration, or one value by dot-notation key",
	Long: `Print the resolved configuration as YAML with secrets redacted.

Examples:
  aca config show
  aca config show provider.type
  aca config show provider.rate_limits`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the path of the configuration file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := resolveConfigPath(".")
		if err != nil {
			return exitError(ExitError, "aca: %v", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

// configShowFlat prints dot-notation key = value lines instead of YAML.
var configShowFlat bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowFlat, "flat", false, "print dot-notation key = value lines")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(".", config.Overrides{})
	if err != nil {
		return err
	}
	cfg = cfg.Redacted()
	if len(args) == 0 {
		if configShowFlat {
			return printFlat(cmd, cfg)
		}
		return config.Write(cmd.OutOrStdout(), cfg)
	}

	val, err := config.GetValue(cfg, args[0])
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	switch v := val.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), string(out))
	default:
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}

func printFlat(cmd *cobra.Command, cfg *config.Config) error {
	val, err := config.GetValue(cfg, "")
	if err != nil {
		return err
	}
	m, _ := val.(map[string]any)
	flat := config.FlattenMap(m, "")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", k, flat[k])
	}
	return nil
}
