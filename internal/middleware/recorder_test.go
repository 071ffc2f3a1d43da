package middleware

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
	"github.com/roach88/statecell/internal/reducers"
)

func openJournal(t *testing.T, session string) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	require.NoError(t, j.CreateSession(context.Background(), journal.NewSession(session, "counter", nil)))
	return j
}

func newRecordedCounter(t *testing.T, rec *Recorder, mws ...engine.Middleware[int64]) engine.Store[int64] {
	t.Helper()
	s, err := engine.CreateStore(reducers.Counter, engine.WithEnhancer(engine.ComposeEnhancers(
		engine.ApplyMiddleware(mws...),
		Record[int64](rec),
	)))
	require.NoError(t, err)
	return s
}

func entryTypes(entries []journal.Entry) []string {
	types := make([]string, len(entries))
	for i, e := range entries {
		types[i] = e.Action.Type
	}
	return types
}

func TestRecord_AppendsCommittedActions(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")
	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"))

	for _, a := range []ir.Action{reducers.Increment(), reducers.Increment(5), reducers.Decrement()} {
		_, err := s.Dispatch(a)
		require.NoError(t, err)
	}

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	wantStates := []int64{1, 6, 5}
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, ir.MustStateHash(wantStates[i]), e.StateHash)
	}
	assert.Equal(t, reducers.Increment(5), entries[1].Action)
}

func TestRecord_SkipsRejectedAndMalformed(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	rec := NewRecorder(ctx, j, "s-1")
	s, err := engine.CreateStore(reducers.Visibility, engine.WithEnhancer(Record[string](rec)))
	require.NoError(t, err)

	_, err = s.Dispatch(reducers.SetVisibility("nope"))
	require.Error(t, err)
	_, err = s.Dispatch(ir.Action{})
	require.Error(t, err)
	_, err = s.Dispatch(reducers.SetVisibility(reducers.ShowActive))
	require.NoError(t, err)

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Seq, "no seq is spent on failed dispatches")
}

func TestRecord_NestedDispatchInCommitOrder(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")
	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"))

	fired := false
	s.Subscribe(func() {
		if !fired {
			fired = true
			_, err := s.Dispatch(reducers.Decrement(10))
			require.NoError(t, err)
		}
	})

	_, err := s.Dispatch(reducers.Increment())
	require.NoError(t, err)
	assert.Equal(t, int64(-9), s.GetState())

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{reducers.TypeIncrement, reducers.TypeDecrement}, entryTypes(entries))
	assert.Equal(t, ir.MustStateHash(int64(1)), entries[0].StateHash)
	assert.Equal(t, ir.MustStateHash(int64(-9)), entries[1].StateHash)
}

func TestRecord_JournalsMiddlewareDispatches(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	// DOUBLE expands into two increments through the full chain.
	double := func(api engine.MiddlewareAPI[int64]) func(engine.Dispatch) engine.Dispatch {
		return func(next engine.Dispatch) engine.Dispatch {
			return func(a ir.Action) (any, error) {
				if a.Type != "DOUBLE" {
					return next(a)
				}
				for i := 0; i < 2; i++ {
					if _, err := api.Dispatch(reducers.Increment()); err != nil {
						return nil, err
					}
				}
				return a, nil
			}
		}
	}

	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"), double)
	_, err := s.Dispatch(ir.NewAction("DOUBLE"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.GetState())

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{reducers.TypeIncrement, reducers.TypeIncrement}, entryTypes(entries))
}

func TestRecord_ResumesClock(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"))
	_, err := s.Dispatch(reducers.Increment())
	require.NoError(t, err)

	last, err := j.LastSeq(ctx, "s-1")
	require.NoError(t, err)

	s = newRecordedCounter(t, NewRecorder(ctx, j, "s-1", WithRecorderClock(journal.NewClockAt(last))))
	_, err = s.Dispatch(reducers.Increment())
	require.NoError(t, err)

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[1].Seq)
}

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, journal.Entry) (bool, error) {
	return false, f.err
}

func TestRecord_WriteFailureReturnedAfterCommit(t *testing.T) {
	boom := errors.New("disk full")
	rec := NewRecorder(context.Background(), failingAppender{err: boom}, "s-1")
	assert.Equal(t, "s-1", rec.Session())

	s := newRecordedCounter(t, rec)
	_, err := s.Dispatch(reducers.Increment())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), s.GetState(), "the commit is not undone")
}

func TestRecord_SeqConflictReported(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	taken, err := journal.NewEntry("s-1", 1, reducers.Decrement(), ir.MustStateHash(int64(-1)))
	require.NoError(t, err)
	_, err = j.Append(ctx, taken)
	require.NoError(t, err)

	// A recorder that has not seen seq 1 collides with it.
	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"))
	_, err = s.Dispatch(reducers.Increment())
	require.ErrorIs(t, err, ErrSeqTaken)
	assert.Equal(t, int64(1), s.GetState(), "the commit is not undone")

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, reducers.TypeDecrement, entries[0].Action.Type)
}

func TestRecord_HistoryRestoresStateAndSeq(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	s := newRecordedCounter(t, NewRecorder(ctx, j, "s-1"))
	for _, a := range []ir.Action{reducers.Increment(), reducers.Increment(5)} {
		_, err := s.Dispatch(a)
		require.NoError(t, err)
	}

	history, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)

	s = newRecordedCounter(t, NewRecorder(ctx, j, "s-1", WithRecorderHistory(history)))
	assert.Equal(t, int64(6), s.GetState())

	_, err = s.Dispatch(reducers.Decrement())
	require.NoError(t, err)

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 3, "restoring appends nothing")
	assert.Equal(t, int64(3), entries[2].Seq)
	assert.Equal(t, ir.MustStateHash(int64(5)), entries[2].StateHash)
}

func TestRecord_HistoryDiverged(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	bad, err := journal.NewEntry("s-1", 1, reducers.Increment(), ir.MustStateHash(int64(42)))
	require.NoError(t, err)

	_, err = engine.CreateStore(reducers.Counter, engine.WithEnhancer(
		Record[int64](NewRecorder(ctx, j, "s-1", WithRecorderHistory([]journal.Entry{bad})))))
	require.ErrorIs(t, err, ErrHistoryDiverged)
}

func TestRecord_ReducerPanicReleasesFrame(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	reducer := engine.Reducer[int64](func(state int64, a ir.Action) int64 {
		if a.Type == "BOOM" {
			panic("boom")
		}
		return reducers.Counter(state, a)
	})
	s, err := engine.CreateStore(reducer, engine.WithEnhancer(Record[int64](NewRecorder(ctx, j, "s-1"))))
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() { _, _ = s.Dispatch(ir.NewAction("BOOM")) })

	rs, ok := s.(*recordingStore[int64])
	require.True(t, ok)
	assert.Empty(t, rs.frames)

	_, err = s.Dispatch(reducers.Increment())
	require.NoError(t, err)
	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{reducers.TypeIncrement}, entryTypes(entries))
}

func TestRecord_HistoryAppliesInitOnce(t *testing.T) {
	ctx := context.Background()
	j := openJournal(t, "s-1")

	// Bootstrap is not the identity here, so a second @@init would show.
	reducer := engine.Reducer[int64](func(state int64, a ir.Action) int64 {
		if a.Type == ir.ActionTypeInit {
			return state + 100
		}
		return reducers.Counter(state, a)
	})
	newStore := func(opts ...RecorderOption) engine.Store[int64] {
		s, err := engine.CreateStore(reducer, engine.WithEnhancer(Record[int64](NewRecorder(ctx, j, "s-1", opts...))))
		require.NoError(t, err)
		return s
	}

	s := newStore()
	_, err := s.Dispatch(reducers.Increment())
	require.NoError(t, err)

	history, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)

	s = newStore(WithRecorderHistory(history))
	assert.Equal(t, int64(101), s.GetState())
}
