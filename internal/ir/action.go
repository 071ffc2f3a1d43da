package ir

import (
	"encoding/json"
	"fmt"
)

// ActionTypeInit is the reserved bootstrap action type. Every store
// dispatches it once on construction so reducers can establish defaults.
const ActionTypeInit = "@@init"

// Action describes an intended state change.
//
// Type is the discriminator and must be non-empty. Payload carries
// arbitrary plain data; it never holds functions or channels, so actions
// can be logged, journaled and replayed.
type Action struct {
	Type    string   `json:"type"`
	Payload IRObject `json:"payload,omitempty"`
}

// NewAction builds an action from a type and optional pairs.
func NewAction(actionType string, pairs ...IRPair) Action {
	a := Action{Type: actionType}
	if len(pairs) > 0 {
		a.Payload = Obj(pairs...)
	}
	return a
}

// IsInit reports whether a is the bootstrap action.
func (a Action) IsInit() bool {
	return a.Type == ActionTypeInit
}

// String returns the action type, for log lines.
func (a Action) String() string {
	return a.Type
}

// MarshalCanonical returns the action's canonical JSON form.
func (a Action) MarshalCanonical() ([]byte, error) {
	obj := IRObject{"type": IRString(a.Type)}
	if len(a.Payload) > 0 {
		obj["payload"] = a.Payload
	}
	return MarshalCanonical(obj)
}

// ParseAction decodes an action from JSON, rejecting floats.
func ParseAction(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("parse action: %w", err)
	}
	return a, nil
}
