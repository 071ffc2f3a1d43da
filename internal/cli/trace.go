package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Type     string // optional - filter to one action type
}

// TraceEntry is one journaled action in the trace timeline.
type TraceEntry struct {
	Seq       int64          `json:"seq"`
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	StateHash string         `json:"state_hash"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session       string       `json:"session"`
	Reducer       string       `json:"reducer"`
	EngineVersion string       `json:"engine_version"`
	IRVersion     string       `json:"ir_version"`
	Timeline      []TraceEntry `json:"timeline"`
	Stats         TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int            `json:"total_entries"`
	ByType       map[string]int `json:"by_type"`
	LastSeq      int64          `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the action journal of a session",
		Long: `Show the journaled actions of one session in seq order.

The output includes:
- Timeline: every committed action with its payload and resulting state hash
- Stats: entry counts per action type

Examples:
  statecell trace --db ./statecell.db --session 0190a1b2-...
  statecell trace --db ./statecell.db --session demo --type ADD_TODO
  statecell trace --db ./statecell.db --session demo --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter to one action type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	sess, err := j.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	entries, err := j.ReadEntries(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	result := TraceResult{
		Session:       sess.ID,
		Reducer:       sess.Reducer,
		EngineVersion: sess.EngineVersion,
		IRVersion:     sess.IRVersion,
		Timeline:      buildTimeline(entries, opts.Type),
		Stats:         TraceStats{ByType: map[string]int{}},
	}
	for _, e := range entries {
		result.Stats.ByType[e.Action.Type]++
		result.Stats.LastSeq = e.Seq
	}
	result.Stats.TotalEntries = len(entries)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result, Session: sess.ID})
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// buildTimeline converts journal entries to trace entries, keeping only
// typeFilter when it is set.
func buildTimeline(entries []journal.Entry, typeFilter string) []TraceEntry {
	timeline := make([]TraceEntry, 0, len(entries))
	for _, e := range entries {
		if typeFilter != "" && e.Action.Type != typeFilter {
			continue
		}
		entry := TraceEntry{
			Seq:       e.Seq,
			ID:        e.ID,
			Type:      e.Action.Type,
			StateHash: e.StateHash,
		}
		if e.Action.Payload != nil {
			entry.Payload, _ = ir.FromIRValue(e.Action.Payload).(map[string]any)
		}
		timeline = append(timeline, entry)
	}
	return timeline
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	fmt.Fprintf(w, "Reducer: %s (engine %s, ir %s)\n", result.Reducer, result.EngineVersion, result.IRVersion)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, entry := range result.Timeline {
		formatTimelineEntry(w, entry, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Last Seq:      %d\n", result.Stats.LastSeq)
	types := make([]string, 0, len(result.Stats.ByType))
	for t := range result.Stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-14s %d\n", t+":", result.Stats.ByType[t])
	}
	return nil
}

// formatTimelineEntry formats a single timeline entry for text output.
func formatTimelineEntry(w io.Writer, entry TraceEntry, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s %s\n", entry.Seq, entry.Type, formatArgs(entry.Payload))
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(entry.ID))
		fmt.Fprintf(w, "       State: %s\n", truncateID(entry.StateHash))
	}
}

// formatArgs formats a payload for display with sorted keys.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:16] + "..."
}

// openJournal opens the journal at path, mapping failures to a command error.
func openJournal(path string) (*journal.Journal, error) {
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return j, nil
}
