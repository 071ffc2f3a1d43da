// Package replay rebuilds store state from journaled actions and checks
// that reducers are deterministic.
//
// A store's state after N dispatches is a pure function of its reducer,
// its preloaded state and the N actions. Fold reproduces that state; Verify
// folds twice and compares every intermediate state hash against the other
// fold and against the hash recorded in the journal.
package replay
