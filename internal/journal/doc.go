// Package journal provides SQLite-backed storage for dispatched actions.
//
// A journal is an append-only log grouped into sessions. Each session names
// the root reducer it was recorded against and the preloaded state it
// started from; each entry holds one committed action together with the
// canonical hash of the state it produced.
//
// # Ordering
//
//   - Entries are ordered by seq, a per-session logical clock, never by
//     wall time.
//   - Every read uses ORDER BY seq ASC, id ASC COLLATE BINARY so replays
//     see identical results.
//   - UNIQUE(session_id, seq) plus ON CONFLICT DO NOTHING makes appends
//     idempotent.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Payloads and preloaded states are stored as RFC 8785 canonical JSON, and
// entry IDs are content-addressed via ir.ActionID.
package journal
