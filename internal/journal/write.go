package journal

import (
	"context"
	"fmt"
)

// CreateSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recreating an existing
// session is silently ignored.
func (j *Journal) CreateSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("create session: empty id")
	}

	preloaded, err := marshalState(sess.Preloaded)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, reducer, preloaded_state, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Reducer,
		preloaded,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Append inserts an entry into its session.
//
// Uses ON CONFLICT DO NOTHING so writing the same entry twice is a no-op.
// This covers both a duplicate ID and a second entry at an occupied
// (session_id, seq) position. inserted reports whether a row was written.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (j *Journal) Append(ctx context.Context, e Entry) (inserted bool, err error) {
	if e.Action.Type == "" {
		return false, fmt.Errorf("append entry: empty action type")
	}

	payload, err := marshalPayload(e.Action.Payload)
	if err != nil {
		return false, fmt.Errorf("append entry: %w", err)
	}

	result, err := j.db.ExecContext(ctx, `
		INSERT INTO entries
		(id, session_id, seq, type, payload, state_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.ID,
		e.SessionID,
		e.Seq,
		e.Action.Type,
		payload,
		e.StateHash,
	)
	if err != nil {
		return false, fmt.Errorf("append entry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append entry: rows affected: %w", err)
	}
	return n > 0, nil
}
