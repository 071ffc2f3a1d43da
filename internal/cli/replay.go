package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/statecell/internal/replay"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []replay.Report `json:"sessions"`
	TotalSessions    int             `json:"total_sessions"`
	AllDeterministic bool            `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay journaled sessions against their reducers and verify determinism.

Each session's actions are folded from its preloaded state twice. Every
step's state hash must match the hash recorded in the journal and the
two folds must agree.

Exit codes:
  0 - All sessions replay deterministically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, unknown reducer, etc.)

Examples:
  statecell replay --db ./statecell.db
  statecell replay --db ./statecell.db --session demo
  statecell replay --db ./statecell.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	var ids []string
	if opts.Session != "" {
		ids = []string{opts.Session}
	} else {
		sessions, err := j.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	result := ReplayResult{
		Sessions:         make([]replay.Report, 0, len(ids)),
		TotalSessions:    len(ids),
		AllDeterministic: true,
	}

	if len(ids) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found in database.")
		return nil
	}

	for _, id := range ids {
		report, err := replay.VerifySession(ctx, j, id)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}
		result.Sessions = append(result.Sessions, report)
		if !report.OK() {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd.OutOrStdout(), result)
	}
	return outputReplayText(cmd.OutOrStdout(), result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(w io.Writer, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := writeJSON(w, response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult, verbose bool) error {
	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, report := range result.Sessions {
		status := "✓"
		if !report.OK() {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, report.Session)
		fmt.Fprintf(w, "  Steps: %d\n", report.Steps)
		if verbose {
			fmt.Fprintf(w, "  Final Hash: %s\n", report.FinalHash)
		}
		for _, m := range report.Mismatches {
			fmt.Fprintf(w, "  Mismatch at seq %d (%s): %s want %s got %s\n",
				m.Seq, m.Type, m.Reason, truncateID(m.Want), truncateID(m.Got))
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
