package harness

// Trace event outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// TraceEvent records one dispatched step.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`

	// Outcome is "ok" when the action was committed, "error" when dispatch
	// failed and "dropped" when middleware swallowed it.
	Outcome string `json:"outcome"`

	// Error is the error kind for failed dispatches.
	Error string `json:"error,omitempty"`

	// StateHash is the state hash right after a committed action.
	StateHash string `json:"state_hash,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// FinalState is the store state after the last step.
	FinalState any `json:"final_state"`

	// FinalHash is ir.StateHash of FinalState.
	FinalHash string `json:"final_hash"`

	// Notifications counts listener calls across the run.
	Notifications int `json:"notifications"`

	// Session is the journal session the run was recorded to, if any.
	Session string `json:"session,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
