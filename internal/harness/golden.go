package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statecell/internal/ir"
)

// TraceSnapshot captures a scenario execution for golden comparison.
// It is serialized as canonical JSON so snapshots are byte-stable.
type TraceSnapshot struct {
	ScenarioName  string       `json:"scenario_name"`
	Session       string       `json:"session,omitempty"`
	Trace         []TraceEvent `json:"trace"`
	FinalState    any          `json:"final_state"`
	FinalHash     string       `json:"final_hash"`
	Notifications int          `json:"notifications"`
}

// NewTraceSnapshot builds the snapshot of a result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName:  name,
		Session:       result.Session,
		Trace:         result.Trace,
		FinalState:    result.FinalState,
		FinalHash:     result.FinalHash,
		Notifications: result.Notifications,
	}
}

// toCanonicalMap converts the snapshot into plain values, since
// ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"type":    event.Type,
			"outcome": event.Outcome,
		}
		if event.Payload != nil {
			eventMap["payload"] = event.Payload
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		if event.StateHash != "" {
			eventMap["state_hash"] = event.StateHash
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"final_state":   s.FinalState,
		"final_hash":    s.FinalHash,
		"notifications": int64(s.Notifications),
	}
	if s.Session != "" {
		result["session"] = s.Session
	}
	return result
}

// MarshalCanonical returns the snapshot's canonical JSON.
func (s *TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further checks, or an error if
// the scenario could not be executed. A snapshot mismatch fails t.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against the golden
// file for name.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(name, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
