package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aca-dev/aca/internal/config"
	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/redact"
)

// Providers command flags.
var (
	providersAll     bool
	providersTimeout time.Duration
)

// providersCmd is the parent command for provider inspection.
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Inspect the configured provider",
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the provider's capabilities, models and limiter state",
	Args:  cobra.NoArgs,
	RunE:  runProvidersList,
}

var providersHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run provider health checks",
	Long: `Run the health check of the configured provider. With --all, every
implemented provider type is probed concurrently using the configured
settings with the type swapped.`,
	Args: cobra.NoArgs,
	RunE: runProvidersHealth,
}

func init() {
	providersHealthCmd.Flags().BoolVar(&providersAll, "all", false, "probe every implemented provider type")
	providersHealthCmd.Flags().DurationVar(&providersTimeout, "timeout", 30*time.Second, "timeout per health check")
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersHealthCmd)
}

// implementedProviders are the types NewProvider can build.
var implementedProviders = []llm.ProviderType{llm.ProviderClaude, llm.ProviderOpenAI}

func buildProvider(pc llm.ProviderConfig, workspace string) (llm.Provider, error) {
	return newProvider(pc, workspace, llm.WithLogger(logger), llm.WithMetrics(recorder))
}

func runProvidersList(cmd *cobra.Command, _ []string) error {
	workspace, err := resolveWorkspace(".")
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(workspace, config.Overrides{})
	if err != nil {
		return err
	}
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	p, err := buildProvider(pc, workspace)
	if err != nil {
		return exitError(classify(err), "aca: %v", redact.String(err.Error()))
	}
	defer p.Shutdown(context.Background()) //nolint:errcheck // nothing in flight

	printProvider(cmd.OutOrStdout(), pc, p)
	return nil
}

func printProvider(w io.Writer, pc llm.ProviderConfig, p llm.Provider) {
	caps := p.Capabilities()
	st := p.Status()
	row := func(k string, v any) {
		_, _ = fmt.Fprintf(w, "  %-20s %v\n", k+":", v)
	}
	_, _ = fmt.Fprintln(w, okColor.Sprint(p.Name()))
	row("type", pc.Type)
	row("models", strings.Join(p.ListModels(), ", "))
	row("max context tokens", caps.MaxContextTokens)
	row("streaming", caps.Streaming)
	row("function calling", caps.FunctionCalling)
	row("vision", caps.Vision)
	row("requests/min", limitString(pc.RateLimits.MaxRequestsPerMinute))
	row("tokens/min", limitString(pc.RateLimits.MaxTokensPerMinute))
	row("requests remaining", limitString(st.RateLimit.RequestsRemaining))
	row("tokens remaining", limitString(st.RateLimit.TokensRemaining))
}

// limitString renders disabled buckets as "unlimited".
func limitString(n uint64) string {
	if n == 0 || n == ^uint64(0) {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

type healthResult struct {
	name    string
	err     error
	latency time.Duration
}

func runProvidersHealth(cmd *cobra.Command, _ []string) error {
	workspace, err := resolveWorkspace(".")
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(workspace, config.Overrides{})
	if err != nil {
		return err
	}
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}

	configs := []llm.ProviderConfig{pc}
	if providersAll {
		configs = configs[:0]
		for _, t := range implementedProviders {
			c := pc
			c.Type = t
			if t != pc.Type {
				c.Model = ""
			}
			configs = append(configs, c)
		}
	}

	results := make([]healthResult, len(configs))
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, c := range configs {
		g.Go(func() error {
			results[i] = probe(ctx, c, workspace)
			return nil
		})
	}
	_ = g.Wait()

	unhealthy := 0
	for _, r := range results {
		if r.err != nil {
			unhealthy++
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", failColor.Sprint("FAIL"), r.name, redact.String(r.err.Error()))
			continue
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", okColor.Sprint("ok  "), r.name, r.latency.Round(time.Millisecond))
	}
	if unhealthy > 0 {
		return exitError(ExitProviderFailure, "aca: %d provider(s) unhealthy", unhealthy)
	}
	return nil
}

func probe(ctx context.Context, pc llm.ProviderConfig, workspace string) healthResult {
	r := healthResult{name: string(pc.Type)}
	p, err := buildProvider(pc, workspace)
	if err != nil {
		r.err = err
		return r
	}
	r.name = p.Name()
	defer p.Shutdown(context.Background()) //nolint:errcheck // nothing in flight

	ctx, cancel := context.WithTimeout(ctx, providersTimeout)
	defer cancel()
	start := time.Now()
	r.err = p.HealthCheck(ctx)
	r.latency = time.Since(start)
	return r
}
