package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter_basic")
	assert.Contains(t, out, "✓ todo_flow")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "passing.yaml", passingScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "passing.yaml", passingScenario)
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "pass*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "failing.yaml", failingScenario)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["failed"])
	scenarios := data["scenarios"].([]any)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "failing", scenarios[0].(map[string]any)["name"])
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeFile(t, dir, "passing.yaml", passingScenario)
	cmdOpts := &RootOptions{Format: "text"}

	out, err := execute(t, NewTestCommand(cmdOpts), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing (golden updated)")

	goldenPath := goldenFilePath(scenarioPath)
	assert.Equal(t, filepath.Join(dir, "golden", "passing.golden"), goldenPath)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"passing"`)

	_, err = execute(t, NewTestCommand(cmdOpts), dir)
	require.NoError(t, err, "fresh golden must match")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"stale"}`), 0o644))
	out, err = execute(t, NewTestCommand(cmdOpts), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingPath(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
