package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
)

var (
	// ErrSeqTaken reports that another writer already recorded an entry at
	// the seq an action was assigned. The action is committed but not journaled.
	ErrSeqTaken = errors.New("seq already recorded")

	// ErrHistoryDiverged reports that re-applying a session's entries did
	// not reproduce a journaled state hash.
	ErrHistoryDiverged = errors.New("state diverges from journal")
)

// Appender is the journal surface Record writes to.
type Appender interface {
	Append(ctx context.Context, e journal.Entry) (inserted bool, err error)
}

// Recorder appends committed actions to one journal session.
type Recorder struct {
	ctx     context.Context
	journal Appender
	session string
	clock   *journal.Clock
	logger  *slog.Logger
	history []journal.Entry
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderClock resumes seq numbering from clock, e.g.
// journal.NewClockAt(lastSeq) when continuing a session.
// Default: journal.NewClock().
func WithRecorderClock(clock *journal.Clock) RecorderOption {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// WithRecorderLogger sets the logger for journal writes.
// Default: slog.Default().
func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithRecorderHistory continues a session from its journaled entries.
// Record re-applies them to the store it wraps before returning it, checking
// every state hash, and numbering resumes after the last one.
// Takes precedence over WithRecorderClock.
func WithRecorderHistory(entries []journal.Entry) RecorderOption {
	return func(r *Recorder) {
		r.history = entries
	}
}

// NewRecorder creates a recorder for session. ctx bounds every journal write.
func NewRecorder(ctx context.Context, j Appender, session string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		ctx:     ctx,
		journal: j,
		session: session,
		clock:   journal.NewClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if n := len(r.history); n > 0 {
		r.clock = journal.NewClockAt(r.history[n-1].Seq)
	}
	return r
}

// Session returns the session ID entries are written to.
func (r *Recorder) Session() string {
	return r.session
}

// Record journals every action the store commits, in commit order, with the
// hash of the state that action produced. The bootstrap action is not
// journaled; replay dispatches it itself.
//
// Entries are written from a listener registered ahead of all others, so a
// nested dispatch from a later listener is journaled after the action that
// triggered it. A failed journal write does not undo the commit; the
// dispatch returns the write error.
//
// A recorded store must not be dispatched to from several goroutines at once.
func Record[S any](r *Recorder) engine.Enhancer[S] {
	return func(next engine.Creator[S]) engine.Creator[S] {
		return func(reducer engine.Reducer[S], preloaded *S) (engine.Store[S], error) {
			underlying, err := next(reducer, preloaded)
			if err != nil {
				return nil, err
			}
			if err := restore(r, underlying); err != nil {
				return nil, err
			}
			rs := &recordingStore[S]{Store: underlying, rec: r}
			underlying.Subscribe(rs.onCommit)
			return rs, nil
		}
	}
}

// restore re-applies the recorder's history to st. It runs before the
// recording listener is registered, so nothing is appended.
func restore[S any](r *Recorder, st engine.Store[S]) error {
	for _, e := range r.history {
		if _, err := st.Dispatch(e.Action); err != nil {
			return fmt.Errorf("restore session %s at seq %d: %w", r.session, e.Seq, err)
		}
		hash, err := ir.StateHash(st.GetState())
		if err != nil {
			return fmt.Errorf("restore session %s at seq %d: %w", r.session, e.Seq, err)
		}
		if hash != e.StateHash {
			return fmt.Errorf("restore session %s at seq %d: %w", r.session, e.Seq, ErrHistoryDiverged)
		}
	}
	if len(r.history) > 0 {
		r.logger.Debug("session restored", "session", r.session, "entries", len(r.history))
	}
	return nil
}

// frame tracks one in-flight dispatch.
type frame struct {
	action   ir.Action
	recorded bool
	err      error
}

type recordingStore[S any] struct {
	engine.Store[S]
	rec    *Recorder
	frames []*frame
}

func (s *recordingStore[S]) Dispatch(action ir.Action) (any, error) {
	f := &frame{action: action}
	s.frames = append(s.frames, f)
	defer func() { s.frames = s.frames[:len(s.frames)-1] }()
	result, err := s.Store.Dispatch(action)

	if err != nil {
		return result, err
	}
	if f.err != nil {
		return result, f.err
	}
	return result, nil
}

// onCommit runs right after the innermost in-flight action is committed.
func (s *recordingStore[S]) onCommit() {
	if len(s.frames) == 0 {
		return
	}
	f := s.frames[len(s.frames)-1]
	if f.recorded {
		return
	}
	f.recorded = true
	f.err = s.rec.append(f.action, s.Store.GetState())
}

func (r *Recorder) append(action ir.Action, state any) error {
	hash, err := ir.StateHash(state)
	if err != nil {
		return fmt.Errorf("record %s: %w", action.Type, err)
	}

	seq := r.clock.Next()
	entry, err := journal.NewEntry(r.session, seq, action, hash)
	if err != nil {
		return fmt.Errorf("record %s: %w", action.Type, err)
	}

	inserted, err := r.journal.Append(r.ctx, entry)
	if err != nil {
		r.logger.Error("journal append failed", "session", r.session, "seq", seq, "type", action.Type, "error", err)
		return fmt.Errorf("record %s: %w", action.Type, err)
	}
	if !inserted {
		r.logger.Error("journal seq conflict", "session", r.session, "seq", seq, "type", action.Type)
		return fmt.Errorf("record %s at seq %d: %w", action.Type, seq, ErrSeqTaken)
	}

	r.logger.Debug("action recorded", "session", r.session, "seq", seq, "type", action.Type)
	return nil
}
