package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
	"github.com/roach88/statecell/internal/reducers"
)

// harnessScenarios holds the scenario fixtures shared with the harness tests.
var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// seedCounterSession journals n INCREMENT actions against the counter reducer.
func seedCounterSession(t *testing.T, dbPath, id string, n int) {
	t.Helper()
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	require.NoError(t, j.CreateSession(ctx, journal.NewSession(id, "counter", nil)))
	for i := 1; i <= n; i++ {
		e, err := journal.NewEntry(id, int64(i), reducers.Increment(), ir.MustStateHash(int64(i)))
		require.NoError(t, err)
		_, err = j.Append(ctx, e)
		require.NoError(t, err)
	}
}

const passingScenario = `name: passing
description: "two increments"
reducer: counter
steps:
  - dispatch: { type: INCREMENT }
  - dispatch: { type: INCREMENT }
assertions:
  - type: state_equals
    value: 2
`

const failingScenario = `name: failing
description: "asserts the wrong count"
reducer: counter
steps:
  - dispatch: { type: INCREMENT }
assertions:
  - type: state_equals
    value: 99
`
