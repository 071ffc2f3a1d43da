package journal

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/ir"
)

func TestReadEntries_OrderedBySeq(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.CreateSession(ctx, NewSession("s-1", "counter", nil)))

	// Append out of order; reads must come back by seq.
	for _, seq := range []int64{3, 1, 2} {
		_, err := j.Append(ctx, mustEntry(t, "s-1", seq, "INCREMENT", "h"))
		require.NoError(t, err)
	}

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestReadEntries_RoundTripsPayload(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.CreateSession(ctx, NewSession("s-1", "app", nil)))

	action := ir.NewAction("ADD_TODO",
		ir.O("text", ir.IRString("caf\u00e9")),
		ir.O("tags", ir.IRArray{ir.IRString("a"), ir.IRInt(2)}),
	)
	e, err := NewEntry("s-1", 1, action, ir.MustStateHash(map[string]any{"n": int64(1)}))
	require.NoError(t, err)
	_, err = j.Append(ctx, e)
	require.NoError(t, err)

	bare, err := NewEntry("s-1", 2, ir.NewAction("CLEAR"), "h")
	require.NoError(t, err)
	_, err = j.Append(ctx, bare)
	require.NoError(t, err)

	entries, err := j.ReadEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, e, entries[0])
	assert.Equal(t, bare, entries[1])
	assert.Nil(t, entries[1].Action.Payload)
}

func TestReadEntries_EmptySession(t *testing.T) {
	j := createTestJournal(t)
	entries, err := j.ReadEntries(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestReadEntries_SessionsIsolated(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.CreateSession(ctx, NewSession("a", "counter", nil)))
	require.NoError(t, j.CreateSession(ctx, NewSession("b", "counter", nil)))

	_, err := j.Append(ctx, mustEntry(t, "a", 1, "INCREMENT", "h"))
	require.NoError(t, err)
	_, err = j.Append(ctx, mustEntry(t, "b", 1, "DECREMENT", "h"))
	require.NoError(t, err)

	entries, err := j.ReadEntries(ctx, "b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DECREMENT", entries[0].Action.Type)
}

func TestReadSession_NotFound(t *testing.T) {
	j := createTestJournal(t)
	_, err := j.ReadSession(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReadSession_PreloadedShapes(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	preloaded := map[string]any{
		"counter":    int64(3),
		"visibility": "all",
		"todos": []any{
			map[string]any{"id": int64(1), "text": "milk", "completed": false},
		},
	}
	require.NoError(t, j.CreateSession(ctx, NewSession("s-1", "app", preloaded)))
	require.NoError(t, j.CreateSession(ctx, NewSession("s-2", "counter", nil)))

	got, err := j.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, preloaded, got.Preloaded)
	assert.Equal(t, ir.EngineVersion, got.EngineVersion)
	assert.Equal(t, ir.IRVersion, got.IRVersion)

	got, err = j.ReadSession(ctx, "s-2")
	require.NoError(t, err)
	assert.Nil(t, got.Preloaded)
}

func TestListSessions_CreationOrder(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	sessions, err := j.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, j.CreateSession(ctx, NewSession(id, "counter", nil)))
	}

	sessions, err = j.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "zeta", sessions[0].ID)
	assert.Equal(t, "alpha", sessions[1].ID)
	assert.Equal(t, "mid", sessions[2].ID)
}

func TestLastSeq(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.CreateSession(ctx, NewSession("s-1", "counter", nil)))

	seq, err := j.LastSeq(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	for _, s := range []int64{1, 2, 7} {
		_, err := j.Append(ctx, mustEntry(t, "s-1", s, "INCREMENT", "h"))
		require.NoError(t, err)
	}

	seq, err = j.LastSeq(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}
