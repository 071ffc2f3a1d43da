package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure raised by the store engine.
//
// Engine errors include:
//   - Malformed action: dispatched action has no type
//   - Invalid action creators: BindActionCreators given neither a creator nor a set
//   - Unexpected state shape: combined state is missing configured keys
//   - Dispatch during construction: middleware dispatched before the chain was built
//
// Error carries structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ActionType is the type of the action being processed, when known.
	ActionType string

	// Keys lists state keys involved (shape errors).
	Keys []string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeMalformedAction indicates a dispatched action lacks a type.
	ErrCodeMalformedAction ErrorCode = "MALFORMED_ACTION"

	// ErrCodeInvalidActionCreators indicates BindActionCreators got an empty variant.
	ErrCodeInvalidActionCreators ErrorCode = "INVALID_ACTION_CREATORS"

	// ErrCodeUnexpectedStateShape indicates combined state does not match its reducers.
	ErrCodeUnexpectedStateShape ErrorCode = "UNEXPECTED_STATE_SHAPE"

	// ErrCodeDispatchDuringConstruction indicates a middleware dispatched while
	// ApplyMiddleware was still composing the chain.
	ErrCodeDispatchDuringConstruction ErrorCode = "DISPATCH_DURING_CONSTRUCTION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.ActionType != "" {
		fmt.Fprintf(&b, " (action=%s)", e.ActionType)
	}
	if len(e.Keys) > 0 {
		fmt.Fprintf(&b, " (keys=%s)", strings.Join(e.Keys, ","))
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsMalformedAction reports whether err is a malformed action error.
func IsMalformedAction(err error) bool {
	return hasCode(err, ErrCodeMalformedAction)
}

// IsInvalidActionCreators reports whether err is an invalid action creators error.
func IsInvalidActionCreators(err error) bool {
	return hasCode(err, ErrCodeInvalidActionCreators)
}

// IsUnexpectedStateShape reports whether err is a state shape error.
func IsUnexpectedStateShape(err error) bool {
	return hasCode(err, ErrCodeUnexpectedStateShape)
}

// IsDispatchDuringConstruction reports whether err came from dispatching
// inside a middleware factory.
func IsDispatchDuringConstruction(err error) bool {
	return hasCode(err, ErrCodeDispatchDuringConstruction)
}

// NewMalformedActionError creates an Error for an action without a type.
func NewMalformedActionError() *Error {
	return &Error{
		Code:    ErrCodeMalformedAction,
		Message: "actions must have a non-empty type",
	}
}

// NewInvalidActionCreatorsError creates an Error for an empty creator variant.
func NewInvalidActionCreatorsError(detail string) *Error {
	return &Error{
		Code:    ErrCodeInvalidActionCreators,
		Message: "expected a single action creator or a set of action creators: " + detail,
	}
}

// NewUnexpectedStateShapeError creates an Error for combined state missing keys.
func NewUnexpectedStateShapeError(actionType string, missing []string) *Error {
	return &Error{
		Code:       ErrCodeUnexpectedStateShape,
		Message:    "state is missing keys handled by reducers",
		ActionType: actionType,
		Keys:       missing,
	}
}

// rejection carries an error out of a reducer. Base dispatch recovers it and
// returns the error; any other panic propagates untouched.
type rejection struct {
	err error
}

// Reject aborts the running reducer with err. The dispatch that invoked the
// reducer returns err, the previous state is kept, and no listener fires.
//
// Reject must only be called from inside a reducer.
func Reject(err error) {
	if err == nil {
		err = errors.New("reducer rejected transition")
	}
	panic(rejection{err: err})
}
