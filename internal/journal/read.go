package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadSession retrieves a single session by ID.
// Returns an error wrapping sql.ErrNoRows if not found.
func (j *Journal) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	var preloaded sql.NullString

	err := j.db.QueryRowContext(ctx, `
		SELECT id, reducer, preloaded_state, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Reducer, &preloaded, &sess.EngineVersion, &sess.IRVersion)
	if err != nil {
		return Session{}, fmt.Errorf("read session %q: %w", id, err)
	}

	sess.Preloaded, err = unmarshalState(preloaded)
	if err != nil {
		return Session{}, fmt.Errorf("read session %q: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns all sessions in creation order.
// Returns an empty slice (not nil) if the journal has no sessions.
func (j *Journal) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, reducer, preloaded_state, engine_version, ir_version
		FROM sessions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		var preloaded sql.NullString
		if err := rows.Scan(&sess.ID, &sess.Reducer, &preloaded, &sess.EngineVersion, &sess.IRVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.Preloaded, err = unmarshalState(preloaded); err != nil {
			return nil, fmt.Errorf("session %q: %w", sess.ID, err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEntries returns every entry of a session.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the session has no entries.
func (j *Journal) ReadEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, seq, type, payload, state_hash
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest seq recorded for a session, or 0 if none.
// Used to resume a session's clock.
func (j *Journal) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := j.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM entries WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var payloadJSON string

	if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.Action.Type, &payloadJSON, &e.StateHash); err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return Entry{}, err
	}
	e.Action.Payload = payload

	return e, nil
}
