package journal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, j.Close())
	}

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	for _, table := range []string{"sessions", "entries"} {
		var name string
		err := j.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, j.verifyPragma(tt.name, tt.expected))
		})
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	j := createTestJournal(t)

	var version int
	require.NoError(t, j.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var name string
	err := j.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_entries_type'",
	).Scan(&name)
	assert.NoError(t, err)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	var j Journal
	assert.NoError(t, j.Close())
}
