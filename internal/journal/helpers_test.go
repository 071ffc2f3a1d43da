package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestJournal opens a fresh journal in a temp dir.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

// mustEntry builds an entry or fails the test.
func mustEntry(t *testing.T, session string, seq int64, typ string, hash string) Entry {
	t.Helper()
	e, err := NewEntry(session, seq, actionOf(typ), hash)
	require.NoError(t, err)
	return e
}
