package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_CounterBasic(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "counter_basic"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestTraceSnapshot_Canonical(t *testing.T) {
	snapshot := NewTraceSnapshot("tiny", &Result{
		Trace: []TraceEvent{
			{Seq: 1, Type: "X", Outcome: OutcomeDropped},
		},
		FinalState:    map[string]any{"b": int64(1), "a": "z"},
		FinalHash:     "h",
		Notifications: 0,
		Session:       "s",
	})

	data, err := snapshot.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"final_hash":"h","final_state":{"a":"z","b":1},"notifications":0,"scenario_name":"tiny","session":"s","trace":[{"outcome":"dropped","seq":1,"type":"X"}]}`,
		string(data))
}
