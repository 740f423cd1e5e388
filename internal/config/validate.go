package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/setup"
)

// Validate checks all fields in the config and returns all errors at once.
func Validate(cfg *Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Provider.Type) == "" {
		errs = append(errs, "provider.type: required")
	} else if _, err := cfg.ProviderConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	unknown := make([]string, 0)
	for k := range cfg.Provider.Additional {
		if !slices.Contains(llm.KnownAdditionalKeys, k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, fmt.Sprintf("provider.additional_config.%s: unknown key (valid keys: %s)",
			k, strings.Join(llm.KnownAdditionalKeys, ", ")))
	}

	if _, err := cfg.ExecutionMode(); err != nil {
		errs = append(errs, err.Error())
	}

	cmds, err := cfg.SetupCommands()
	if err == nil {
		err = setup.Validate(cmds)
	}
	if err != nil {
		errs = append(errs, splitJoined(err)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// splitJoined flattens an errors.Join result into its messages.
func splitJoined(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
