// Package harness runs conformance scenarios against statecell stores.
//
// A scenario names a root reducer, an optional preloaded state, schema and
// middleware, a list of dispatches and assertions over the resulting trace
// and final state.
//
// # Scenario Format
//
//	name: todo_flow
//	description: "Adding and toggling todos"
//	reducer: app
//	preloaded_state: { counter: 0, todos: [], visibility: all }
//	schema: app.cue
//	middleware: [logger, metrics]
//	steps:
//	  - dispatch: { type: ADD_TODO, payload: { text: milk } }
//	  - dispatch: { type: TOGGLE_TODO, payload: { id: 1 } }
//	  - dispatch: { type: "" }
//	    expect_error: malformed_action
//	assertions:
//	  - type: trace_order
//	    actions: [ADD_TODO, TOGGLE_TODO]
//	  - type: state_equals
//	    path: todos.0.completed
//	    value: true
//	  - type: notify_count
//	    count: 2
//
// # Assertion Types
//
//   - trace_contains: a committed action has the given type and payload subset
//   - trace_order: committed action types appear in the given order
//   - trace_count: an action type was committed exactly N times
//   - state_equals: the value at a gjson path of the final state equals a value
//   - notify_count: listeners were notified exactly N times
//
// # Deterministic Testing
//
// Trace seqs come from testutil.DeterministicClock and every state is
// identified by its canonical hash, so identical scenarios produce
// byte-identical snapshots for golden comparison. Journaled runs use the
// scenario's fixed session ID when one is given.
package harness
