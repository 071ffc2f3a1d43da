package journal

import (
	"fmt"

	"github.com/roach88/statecell/internal/ir"
)

// Session groups the entries recorded against one store.
type Session struct {
	ID      string
	Reducer string

	// Preloaded is the state the store was created with, or nil when the
	// reducer supplied its own default. Values decode as plain Go values
	// (int64, string, bool, []any, map[string]any).
	Preloaded any

	EngineVersion string
	IRVersion     string
}

// NewSession builds a session stamped with the current engine and IR versions.
func NewSession(id, reducer string, preloaded any) Session {
	return Session{
		ID:            id,
		Reducer:       reducer,
		Preloaded:     preloaded,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// Entry is one committed action.
type Entry struct {
	// ID is content-addressed: ir.ActionID(SessionID, Seq, Action).
	ID        string
	SessionID string
	Seq       int64
	Action    ir.Action

	// StateHash is ir.StateHash of the state right after Action was reduced.
	StateHash string
}

// NewEntry builds an entry and computes its ID.
func NewEntry(sessionID string, seq int64, action ir.Action, stateHash string) (Entry, error) {
	id, err := ir.ActionID(sessionID, seq, action)
	if err != nil {
		return Entry{}, fmt.Errorf("new entry: %w", err)
	}
	return Entry{
		ID:        id,
		SessionID: sessionID,
		Seq:       seq,
		Action:    action,
		StateHash: stateHash,
	}, nil
}
