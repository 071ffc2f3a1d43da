package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statecell/internal/reducers"
)

// Scenario defines a conformance test scenario: a root reducer, an optional
// starting state, a list of dispatches and assertions over the resulting
// trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Reducer is a name registered with reducers.Lookup ("counter", "app").
	Reducer string `yaml:"reducer"`

	// PreloadedState is the initial state. When absent the reducer supplies
	// its defaults on bootstrap.
	PreloadedState any `yaml:"preloaded_state,omitempty"`

	// Schema is an optional path to a CUE file every state must satisfy.
	// Relative paths resolve against the scenario file's directory.
	Schema string `yaml:"schema,omitempty"`

	// StrictShape rejects combined-reducer dispatches whose state is missing keys.
	StrictShape bool `yaml:"strict_shape,omitempty"`

	// Middleware lists built-in middleware in chain order ("logger", "metrics").
	Middleware []string `yaml:"middleware,omitempty"`

	// AllowTypes, when set, drops every dispatch whose type is not listed.
	AllowTypes []string `yaml:"allow_types,omitempty"`

	// Session is an optional fixed journal session ID for deterministic runs.
	Session string `yaml:"session,omitempty"`

	// Steps are dispatched in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step dispatches one action.
type Step struct {
	Dispatch ActionSpec `yaml:"dispatch"`

	// ExpectError names the error kind the dispatch must fail with:
	// malformed_action, unexpected_state_shape, schema_violation or rejected.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// ActionSpec is an action as written in YAML.
type ActionSpec struct {
	Type    string         `yaml:"type"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action type appears with a matching payload subset
	// - "trace_order": action types appear in order
	// - "trace_count": an action type appears exactly Count times
	// - "state_equals": the value at Path in the final state equals Value
	// - "notify_count": listeners were notified exactly Count times
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is the expected payload subset (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number (trace_count, notify_count).
	Count int `yaml:"count,omitempty"`

	// Path is a gjson path into the final state; empty means the whole state
	// (state_equals).
	Path string `yaml:"path,omitempty"`

	// Value is the expected value at Path (state_equals).
	Value any `yaml:"value"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertStateEquals   = "state_equals"
	AssertNotifyCount   = "notify_count"
)

// Error kinds for Step.ExpectError.
const (
	ErrKindMalformedAction      = "malformed_action"
	ErrKindUnexpectedStateShape = "unexpected_state_shape"
	ErrKindSchemaViolation      = "schema_violation"
	ErrKindRejected             = "rejected"
)

var errorKinds = []string{
	ErrKindMalformedAction,
	ErrKindUnexpectedStateShape,
	ErrKindSchemaViolation,
	ErrKindRejected,
}

var middlewareNames = []string{"logger", "metrics"}

// LoadScenario reads and parses a scenario YAML file. A relative schema
// path is resolved against the file's directory.
//
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving a relative schema path against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field checking. It does
// not resolve paths or validate; LoadScenario does both.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and valid.
func (s *Scenario) Validate() error {
	return validateScenario(s)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Reducer == "" {
		return fmt.Errorf("reducer is required")
	}
	if _, err := reducers.Lookup(s.Reducer); err != nil {
		return err
	}

	if s.Schema != "" {
		if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
			return fmt.Errorf("schema file not found: %s", s.Schema)
		}
	}

	for i, name := range s.Middleware {
		if !slices.Contains(middlewareNames, name) {
			return fmt.Errorf("middleware[%d]: unknown middleware %q", i, name)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if step.ExpectError == "" && step.Dispatch.Type == "" {
			return fmt.Errorf("steps[%d]: dispatch.type is required", i)
		}
		if step.ExpectError != "" && !slices.Contains(errorKinds, step.ExpectError) {
			return fmt.Errorf("steps[%d]: unknown expect_error %q", i, step.ExpectError)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertStateEquals:
		// A nil Value asserts null.
	case AssertNotifyCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
