package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/statecell/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", event.Seq, event.Outcome, event.Type, event.Payload)
		}
	}

	return buf.String()
}

// assertTraceContains checks if a committed action of the given type has a
// payload containing every expected field (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := normalizePayload(assertion.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains: payload: %w", err)
	}

	for _, event := range trace {
		if event.Outcome == OutcomeOK && event.Type == assertion.Action && matchPayload(event.Payload, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %v", assertion.Action, assertion.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that committed actions appear in the given order.
// Actions don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Actions) && event.Outcome == OutcomeOK && event.Type == assertion.Actions[next] {
			next++
		}
	}

	if next < len(assertion.Actions) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
			Actual:   fmt.Sprintf("%s not found after %v", assertion.Actions[next], assertion.Actions[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the action was committed exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Outcome == OutcomeOK && event.Type == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStateEquals compares the value at a gjson path in the final state
// with the expected value. Both sides are compared as canonical JSON, so
// key order and integer widths do not matter.
func assertStateEquals(state any, assertion Assertion) error {
	stateJSON, err := ir.MarshalCanonical(state)
	if err != nil {
		return fmt.Errorf("state_equals: %w", err)
	}

	expected, err := ir.MarshalCanonical(assertion.Value)
	if err != nil {
		return fmt.Errorf("state_equals: value: %w", err)
	}

	path := assertion.Path
	if path == "" {
		path = "@this"
	}

	res := gjson.GetBytes(stateJSON, path)
	if !res.Exists() {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s = %s", path, expected),
			Actual:   fmt.Sprintf("%s not found in %s", path, stateJSON),
		}
	}

	actualValue, err := ir.UnmarshalIRValue([]byte(res.Raw))
	if err != nil {
		return fmt.Errorf("state_equals: %s: %w", path, err)
	}
	actual, err := ir.MarshalCanonical(actualValue)
	if err != nil {
		return fmt.Errorf("state_equals: %s: %w", path, err)
	}

	if string(actual) != string(expected) {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s = %s", path, expected),
			Actual:   fmt.Sprintf("%s = %s", path, actual),
		}
	}
	return nil
}

func assertNotifyCount(notifications int, assertion Assertion) error {
	if notifications != assertion.Count {
		return &AssertionError{
			Type:     AssertNotifyCount,
			Expected: fmt.Sprintf("%d notifications", assertion.Count),
			Actual:   fmt.Sprintf("%d notifications", notifications),
		}
	}
	return nil
}

func normalizePayload(payload map[string]any) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	v, err := ir.Normalize(payload)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

// matchPayload checks if actual contains all expected fields (subset match).
// Extra keys in actual are ignored.
func matchPayload(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, exists := actual[key]
		if !exists || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertStateEquals:
			err = assertStateEquals(result.FinalState, assertion)
		case AssertNotifyCount:
			err = assertNotifyCount(result.Notifications, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
