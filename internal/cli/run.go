package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/statecell/internal/harness"
	"github.com/roach88/statecell/internal/ir"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario      string               `json:"scenario"`
	Pass          bool                 `json:"pass"`
	Session       string               `json:"session,omitempty"`
	Trace         []harness.TraceEvent `json:"trace"`
	FinalState    any                  `json:"final_state"`
	FinalHash     string               `json:"final_hash"`
	Notifications int                  `json:"notifications"`
	Errors        []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a single scenario against a fresh store and print the dispatch
trace and final state.

With --db every committed action is appended to a journal session, which
can later be inspected with trace and verified with replay. Running again
with the same --session resumes the session's seq numbering.

Example:
  statecell run ./scenarios/todo_flow.yaml
  statecell run ./scenarios/todo_flow.yaml --db ./statecell.db --session demo`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journal session ID (default: scenario session or a new UUIDv7)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions)

	scenario, err := LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Session != "" {
		scenario.Session = opts.Session
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runOpts := []harness.RunOption{harness.WithLogger(logger), harness.WithContext(ctx)}
	if opts.Database != "" {
		logger.Info("opening journal", "path", opts.Database)
		j, err := openJournal(opts.Database)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(j))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	out := RunResult{
		Scenario:      scenario.Name,
		Pass:          result.Pass,
		Session:       result.Session,
		Trace:         result.Trace,
		FinalState:    result.FinalState,
		FinalHash:     result.FinalHash,
		Notifications: result.Notifications,
		Errors:        result.Errors,
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: out, Session: out.Session}
		if !out.Pass {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_TEST_FAILED", Message: "scenario failed"}
		}
		if err := writeJSON(cmd.OutOrStdout(), response); err != nil {
			return err
		}
	} else if err := outputRunText(cmd.OutOrStdout(), out, opts.Verbose); err != nil {
		return err
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

// outputRunText prints the trace, final state and any failures.
func outputRunText(w io.Writer, out RunResult, verbose bool) error {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	if out.Session != "" {
		fmt.Fprintf(w, "Session: %s\n", out.Session)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Trace ===")
	for _, ev := range out.Trace {
		line := fmt.Sprintf("  [%d] %s %s -> %s", ev.Seq, ev.Type, formatArgs(ev.Payload), ev.Outcome)
		if ev.Error != "" {
			line += " (" + ev.Error + ")"
		}
		fmt.Fprintln(w, line)
		if verbose && ev.StateHash != "" {
			fmt.Fprintf(w, "       State: %s\n", truncateID(ev.StateHash))
		}
	}
	fmt.Fprintln(w)

	state, err := ir.MarshalCanonical(out.FinalState)
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	fmt.Fprintln(w, "=== Final State ===")
	fmt.Fprintf(w, "  %s\n", state)
	fmt.Fprintf(w, "  hash: %s\n", out.FinalHash)
	fmt.Fprintf(w, "  notifications: %d\n", out.Notifications)

	if out.Pass {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "✓ Scenario passed")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "✗ Scenario failed")
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}
