package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aca-dev/aca/internal/config"
	"github.com/aca-dev/aca/internal/llm"
	"github.com/aca-dev/aca/internal/redact"
)

// Ask-specific flag values.
var (
	askWorkspace   string
	askSessionDir  string
	askConcurrency int
	askSystem      string
	askContext     map[string]string
	askMaxTokens   int
	askModel       string
	askProvider    providerTypeValue
)

// newProvider builds a provider. Tests swap it for a mock.
var newProvider = llm.NewProvider

// askCmd sends prompts to the configured provider.
var askCmd = &cobra.Command{
	Use:   "ask <prompt>...",
	Short: "Send prompts to the configured coding agent",
	Long: `Send one or more prompts to the configured provider and print the
responses in argument order. Prompts are dispatched concurrently (bounded
by --concurrency) through a single provider, so they share its rate limits.

Each request writes <id>.cmd, <id>.stdout and <id>.stderr audit files to
the session directory.

Examples:
  aca ask "explain internal/setup"
  aca ask --provider codex --concurrency 2 "fix the lint errors" "add tests"
  aca ask --context branch=main --system "answer briefly" "what changed?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askWorkspace, "workspace", "w", ".", "workspace directory the agent works in")
	askCmd.Flags().StringVar(&askSessionDir, "session-dir", "", "directory for audit files (default: <workspace>/.aca/sessions)")
	askCmd.Flags().IntVarP(&askConcurrency, "concurrency", "j", 1, "maximum prompts in flight")
	askCmd.Flags().StringVar(&askSystem, "system", "", "system message prepended to every prompt")
	askCmd.Flags().StringToStringVar(&askContext, "context", nil, "context entries as key=value")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "maximum response tokens (0 = provider default)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model override")
	askCmd.Flags().Var(&askProvider, "provider", "provider override: claude, codex, ...")
}

// askResult is the outcome of one prompt.
type askResult struct {
	resp *llm.Response
	err  error
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askConcurrency < 1 {
		return exitError(ExitError, "aca: --concurrency must be at least 1, got %d", askConcurrency)
	}
	workspace, err := resolveWorkspace(askWorkspace)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(workspace, config.Overrides{
		ProviderType: string(askProvider.typ),
		Model:        askModel,
		SessionDir:   askSessionDir,
	})
	if err != nil {
		return err
	}
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	sessionDir, err := sessionDirFor(workspace, cfg.SessionDir)
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}

	provider, err := newProvider(pc, workspace, llm.WithLogger(logger), llm.WithMetrics(recorder))
	if err != nil {
		return exitError(classify(err), "aca: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("provider shutdown", "provider", provider.Name(), "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := make([]askResult, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(askConcurrency)
	for i, prompt := range args {
		req := llm.NewRequest(prompt)
		req.SystemMessage = askSystem
		req.MaxTokens = askMaxTokens
		req.ModelPreference = askModel
		for k, v := range askContext {
			req.Context[k] = v
		}
		g.Go(func() error {
			resp, err := provider.ExecuteRequest(gctx, req, sessionDir)
			results[i] = askResult{resp: resp, err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := printResponses(cmd.OutOrStdout(), results)
	if err := ctx.Err(); err != nil {
		return exitError(ExitInterrupted, "aca: interrupted")
	}
	if failed > 0 {
		return exitError(ExitProviderFailure, "aca: %d of %d request(s) failed", failed, len(args))
	}
	return nil
}

// printResponses writes each response in order and returns the number of
// failures.
func printResponses(w io.Writer, results []askResult) int {
	heading := color.New(color.Bold)
	failed := 0
	for i, r := range results {
		if len(results) > 1 {
			_, _ = fmt.Fprintln(w, heading.Sprintf("[%d/%d]", i+1, len(results)))
		}
		if r.err != nil {
			failed++
			_, _ = fmt.Fprintf(w, "%s %s\n", failColor.Sprint("error:"), redact.String(r.err.Error()))
			var le *llm.Error
			if errors.As(r.err, &le) && le.Kind == llm.KindRateLimit && !le.ResetTime.IsZero() {
				_, _ = fmt.Fprintf(w, "  retry after %s\n", time.Until(le.ResetTime).Round(time.Second))
			}
			continue
		}
		_, _ = fmt.Fprintln(w, r.resp.Content)
		u := r.resp.Usage
		_, _ = fmt.Fprintln(w, dimColor.Sprintf("(%s, %d in / %d out tokens, $%.4f, %s)",
			r.resp.ModelUsed, u.Input, u.Output, u.EstimatedCost, r.resp.ExecutionTime.Round(time.Millisecond)))
	}
	return failed
}
