package config

import "github.com/aca-dev/aca/internal/redact"

// Overrides are command-line values that take precedence over the file.
// Zero-value fields fall through to the file config.
type Overrides struct {
	ProviderType  string
	Model         string
	ExecutionMode string
	Image         string
	SessionDir    string
}

// Merge returns a copy of fileCfg with the CLI overrides applied.
func Merge(fileCfg *Config, cli Overrides) *Config {
	result := *fileCfg

	if cli.ProviderType != "" && cli.ProviderType != result.Provider.Type {
		result.Provider.Type = cli.ProviderType
		// A model picked for one provider rarely fits another.
		if cli.Model == "" {
			result.Provider.Model = ""
		}
	}
	if cli.Model != "" {
		result.Provider.Model = cli.Model
	}
	if cli.ExecutionMode != "" {
		result.Execution.Mode = cli.ExecutionMode
	}
	if cli.Image != "" {
		result.Execution.Image = cli.Image
	}
	if cli.SessionDir != "" {
		result.SessionDir = cli.SessionDir
	}
	return &result
}

// Redacted returns a copy of cfg that is safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Provider.APIKey != "" {
		out.Provider.APIKey = redact.Placeholder
	}
	return &out
}
