package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aca-dev/aca/internal/backend"
	"github.com/aca-dev/aca/internal/config"
	"github.com/aca-dev/aca/internal/redact"
	"github.com/aca-dev/aca/internal/setup"
)

// Setup-specific flag values.
var (
	setupWorkspace string
	setupMode      string
	setupImage     string
)

// newBackend builds the execution backend. Tests swap it for a fake.
var newBackend = backend.New

// setupCmd runs the configured setup plan.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the configured task setup plan",
	Long: `Run the [[setup]] commands from the configuration in order, on the host
or inside a container, applying each command's failure handler.

Exit status is 0 when the plan completes (optional steps may have failed),
3 when a required step failed and the plan was aborted, and 130 when
interrupted.

Example:
  aca setup --workspace ./repo --mode container --image golang:1.25`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVarP(&setupWorkspace, "workspace", "w", ".", "workspace directory the plan runs in")
	setupCmd.Flags().StringVar(&setupMode, "mode", "", "execution mode override: host or container")
	setupCmd.Flags().StringVar(&setupImage, "image", "", "container image override")
}

func runSetup(cmd *cobra.Command, _ []string) error {
	workspace, err := resolveWorkspace(setupWorkspace)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(workspace, config.Overrides{ExecutionMode: setupMode, Image: setupImage})
	if err != nil {
		return err
	}
	cmds, err := cfg.SetupCommands()
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	if len(cmds) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no setup commands configured")
		return nil
	}
	mode, err := cfg.ExecutionMode()
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	if mode.Kind == backend.ModeContainer && mode.Container.WorkspaceMount == "" {
		mode.Container.WorkspaceMount = workspace
	}
	if mode.Kind == backend.ModeHost {
		anchorWorkingDirs(cmds, workspace)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(mode, backend.WithLogger(logger))
	if err != nil {
		return exitError(ExitError, "aca: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			logger.Warn("closing backend", "backend", b.Name(), "error", err)
		}
	}()

	exec := setup.NewExecutor(b, setup.WithLogger(logger), setup.WithMetrics(recorder))
	report, runErr := exec.Run(ctx, cmds)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}

	switch code := classify(runErr); {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.DeadlineExceeded):
		return exitError(ExitInterrupted, "aca: setup interrupted: %v", runErr)
	default:
		return exitError(code, "aca: %v", runErr)
	}
}

// anchorWorkingDirs makes host working directories relative to workspace.
func anchorWorkingDirs(cmds []setup.Command, workspace string) {
	for i := range cmds {
		switch {
		case cmds[i].WorkingDir == "":
			cmds[i].WorkingDir = workspace
		case !filepath.IsAbs(cmds[i].WorkingDir):
			cmds[i].WorkingDir = filepath.Join(workspace, cmds[i].WorkingDir)
		}
	}
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func stateColor(s setup.State) *color.Color {
	switch s {
	case setup.Succeeded:
		return okColor
	case setup.RecoveredByBackup, setup.SkippedAfterFailure, setup.FailedOptional:
		return warnColor
	default:
		return failColor
	}
}

// printReport renders one line per executed step plus a summary.
func printReport(w io.Writer, r *setup.Report) {
	for _, o := range r.Outcomes {
		detail := fmt.Sprintf("exit %d, %d attempt(s), %s", o.ExitStatus, o.Attempts, o.Duration.Round(time.Millisecond))
		if o.HandlerInvoked != "" {
			detail += ", handler " + o.HandlerInvoked
		}
		_, _ = fmt.Fprintf(w, "  %s %-24s %s\n",
			stateColor(o.State).Sprintf("%-20s", o.State), o.Name, dimColor.Sprint(detail))
		if o.Err != nil {
			if tail := lastLine(o.Stderr); tail != "" {
				_, _ = fmt.Fprintf(w, "      %s\n", dimColor.Sprint(redact.String(tail)))
			}
		}
	}

	counts := r.Counts()
	summary := fmt.Sprintf("%d step(s): %d succeeded, %d recovered, %d skipped, %d failed",
		len(r.Outcomes), counts[setup.Succeeded], counts[setup.RecoveredByBackup],
		counts[setup.SkippedAfterFailure], counts[setup.FailedOptional]+counts[setup.FailedRequired])
	if r.State == setup.Aborted {
		_, _ = fmt.Fprintf(w, "%s at %q; %s\n", failColor.Sprint("setup aborted"), r.AbortedAt, summary)
		return
	}
	_, _ = fmt.Fprintf(w, "%s in %s; %s\n", okColor.Sprint("setup completed"), r.Duration.Round(time.Millisecond), summary)
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
