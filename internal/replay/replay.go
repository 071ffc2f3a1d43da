package replay

import (
	"context"
	"fmt"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
	"github.com/roach88/statecell/internal/reducers"
)

// Fold creates a store from reducer and preloaded, dispatches every entry's
// action in order and returns the final state together with the state hash
// after each entry.
//
// Entries must already be in seq order, as journal.ReadEntries returns them.
func Fold[S any](reducer engine.Reducer[S], preloaded *S, entries []journal.Entry) (S, []string, error) {
	var zero S

	opts := []engine.Option[S]{}
	if preloaded != nil {
		opts = append(opts, engine.WithPreloadedState(*preloaded))
	}
	store, err := engine.CreateStore(reducer, opts...)
	if err != nil {
		return zero, nil, fmt.Errorf("fold: %w", err)
	}

	hashes := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, err := store.Dispatch(e.Action); err != nil {
			return zero, nil, fmt.Errorf("fold: seq %d (%s): %w", e.Seq, e.Action.Type, err)
		}
		h, err := ir.StateHash(store.GetState())
		if err != nil {
			return zero, nil, fmt.Errorf("fold: seq %d (%s): %w", e.Seq, e.Action.Type, err)
		}
		hashes = append(hashes, h)
	}
	return store.GetState(), hashes, nil
}

// Mismatch describes one step whose replayed state differs.
type Mismatch struct {
	Seq    int64  `json:"seq"`
	Type   string `json:"type"`
	Want   string `json:"want"`
	Got    string `json:"got"`
	Reason string `json:"reason"`
}

// Mismatch reasons.
const (
	ReasonJournal        = "journal"
	ReasonNondeterminism = "nondeterminism"
)

// Report is the outcome of Verify.
type Report struct {
	Session       string     `json:"session,omitempty"`
	Steps         int        `json:"steps"`
	Deterministic bool       `json:"deterministic"`
	FinalHash     string     `json:"final_hash"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether both folds agreed and matched the journal.
func (r Report) OK() bool {
	return r.Deterministic && len(r.Mismatches) == 0
}

// Verify folds entries twice. Steps where the two folds disagree are
// reported as nondeterminism; steps where the fold disagrees with the
// journaled hash are reported as journal mismatches.
func Verify[S any](reducer engine.Reducer[S], preloaded *S, entries []journal.Entry) (Report, error) {
	final, first, err := Fold(reducer, preloaded, entries)
	if err != nil {
		return Report{}, err
	}
	_, second, err := Fold(reducer, preloaded, entries)
	if err != nil {
		return Report{}, err
	}

	report := Report{Steps: len(entries), Deterministic: true}
	if report.FinalHash, err = ir.StateHash(final); err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}

	for i, e := range entries {
		if first[i] != second[i] {
			report.Deterministic = false
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: e.Seq, Type: e.Action.Type, Want: first[i], Got: second[i], Reason: ReasonNondeterminism,
			})
			continue
		}
		if e.StateHash != first[i] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				Seq: e.Seq, Type: e.Action.Type, Want: e.StateHash, Got: first[i], Reason: ReasonJournal,
			})
		}
	}
	return report, nil
}

// Source is the journal surface VerifySession reads from.
type Source interface {
	ReadSession(ctx context.Context, id string) (journal.Session, error)
	ReadEntries(ctx context.Context, sessionID string) ([]journal.Entry, error)
}

// VerifySession verifies a journaled session against the reducer it was
// recorded with, resolved through reducers.Lookup.
func VerifySession(ctx context.Context, src Source, sessionID string) (Report, error) {
	sess, err := src.ReadSession(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("verify session: %w", err)
	}

	reducer, err := reducers.Lookup(sess.Reducer)
	if err != nil {
		return Report{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}

	entries, err := src.ReadEntries(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}

	var preloaded *any
	if sess.Preloaded != nil {
		preloaded = &sess.Preloaded
	}

	report, err := Verify(reducer, preloaded, entries)
	if err != nil {
		return Report{}, fmt.Errorf("verify session %s: %w", sessionID, err)
	}
	report.Session = sessionID
	return report, nil
}
