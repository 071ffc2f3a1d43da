package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
	"github.com/roach88/statecell/internal/middleware"
	"github.com/roach88/statecell/internal/reducers"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Database string
	Session  string
	Reducer  string
	Payload  string
}

// DispatchResult is the outcome of one journaled dispatch.
type DispatchResult struct {
	Session   string `json:"session"`
	Type      string `json:"type"`
	Seq       int64  `json:"seq"`
	StateHash string `json:"state_hash"`
	State     any    `json:"state"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <action-type>",
		Short: "Dispatch one action into a journaled session",
		Long: `Dispatch one action into a journaled session.

The session's state is rebuilt by folding its journal, the action is
dispatched through a recording store, and the committed entry is appended
with the next seq. A session that does not exist yet is created with
--reducer.

Example:
  statecell dispatch INCREMENT --db ./statecell.db --session demo --reducer counter
  statecell dispatch ADD_TODO --db ./statecell.db --session todos --payload '{"text":"write docs"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchAction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to dispatch into (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Reducer, "reducer", "app", "reducer for a new session")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "action payload as a JSON object")

	return cmd
}

func dispatchAction(opts *DispatchOptions, actionType string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(opts.RootOptions)

	action, err := parseAction(actionType, opts.Payload)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid action", err)
	}

	j, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	sess, err := loadOrCreateSession(ctx, j, opts, cmd.Flags().Changed("reducer"))
	if err != nil {
		return err
	}
	out := newOutputFormatter(opts.RootOptions, cmd)
	out.Session = sess.ID

	reducer, err := reducers.Lookup(sess.Reducer, engine.WithCombineLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "unknown session reducer", err)
	}

	entries, err := j.ReadEntries(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}
	var last int64
	if len(entries) > 0 {
		last = entries[len(entries)-1].Seq
	}
	rec := middleware.NewRecorder(ctx, j, sess.ID,
		middleware.WithRecorderHistory(entries),
		middleware.WithRecorderLogger(logger),
	)

	storeOpts := []engine.Option[any]{
		engine.WithLogger[any](logger),
		engine.WithEnhancer(engine.ComposeEnhancers(
			engine.ApplyMiddleware(middleware.Logger[any](logger)),
			middleware.Record[any](rec),
		)),
	}
	if sess.Preloaded != nil {
		storeOpts = append(storeOpts, engine.WithPreloadedState(sess.Preloaded))
	}
	st, err := engine.CreateStore(reducer, storeOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to rebuild session state", err)
	}

	if _, err := st.Dispatch(action); err != nil {
		return outputDispatchError(out, err)
	}

	result := DispatchResult{
		Session: sess.ID,
		Type:    action.Type,
		Seq:     last + 1,
		State:   st.GetState(),
	}
	if result.StateHash, err = ir.StateHash(result.State); err != nil {
		return WrapExitError(ExitCommandError, "failed to hash state", err)
	}

	if out.JSON() {
		return out.Success(result)
	}
	return outputDispatchText(out.Writer, result)
}

// parseAction builds an action from its type and a JSON object payload.
func parseAction(actionType, payload string) (ir.Action, error) {
	action := ir.Action{Type: actionType}
	if payload == "" {
		return action, nil
	}

	v, err := ir.UnmarshalIRValue([]byte(payload))
	if err != nil {
		return ir.Action{}, fmt.Errorf("payload: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return ir.Action{}, fmt.Errorf("payload: must be a JSON object, got %T", v)
	}
	if len(obj) > 0 {
		action.Payload = obj
	}
	return action, nil
}

// loadOrCreateSession reads the session, creating it when missing. An
// explicit --reducer that disagrees with an existing session is an error.
func loadOrCreateSession(ctx context.Context, j *journal.Journal, opts *DispatchOptions, reducerSet bool) (journal.Session, error) {
	sess, err := j.ReadSession(ctx, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := reducers.Lookup(opts.Reducer); err != nil {
			return journal.Session{}, WrapExitError(ExitCommandError, "invalid reducer", err)
		}
		sess = journal.NewSession(opts.Session, opts.Reducer, nil)
		if err := j.CreateSession(ctx, sess); err != nil {
			return journal.Session{}, WrapExitError(ExitCommandError, "failed to create session", err)
		}
		return sess, nil
	}
	if err != nil {
		return journal.Session{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}

	if reducerSet && opts.Reducer != sess.Reducer {
		return journal.Session{}, NewExitError(ExitCommandError,
			fmt.Sprintf("session %s uses reducer %q, not %q", sess.ID, sess.Reducer, opts.Reducer))
	}
	return sess, nil
}

func outputDispatchError(out *OutputFormatter, err error) error {
	code, headline := ErrCodeDispatch, "Dispatch rejected"
	if errors.Is(err, middleware.ErrSeqTaken) {
		code, headline = ErrCodeDatabase, "Dispatch committed but not recorded"
	}
	if out.JSON() {
		if encErr := out.Error(code, err.Error()); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(out.Writer, "✗ %s: %v\n", headline, err)
	}
	return WrapExitError(ExitFailure, strings.ToLower(headline), err)
}

func outputDispatchText(w io.Writer, result DispatchResult) error {
	state, err := ir.MarshalCanonical(result.State)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	fmt.Fprintf(w, "✓ %s recorded at seq %d in session %s\n", result.Type, result.Seq, result.Session)
	fmt.Fprintf(w, "  state: %s\n", state)
	fmt.Fprintf(w, "  hash:  %s\n", result.StateHash)
	return nil
}
