package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/statecell/internal/ir"
)

// CombineOption configures CombineReducers.
type CombineOption func(*combineConfig)

type combineConfig struct {
	strict bool
	logger *slog.Logger
}

// WithStrictShape turns shape warnings into rejected transitions: a
// non-empty state missing a configured key fails the dispatch with
// ErrCodeUnexpectedStateShape. The bootstrap action is never rejected.
func WithStrictShape() CombineOption {
	return func(c *combineConfig) {
		c.strict = true
	}
}

// WithCombineLogger sets the logger for shape warnings.
// Default: slog.Default().
func WithCombineLogger(logger *slog.Logger) CombineOption {
	return func(c *combineConfig) {
		c.logger = logger
	}
}

// CombineReducers builds one reducer over a map-shaped state from named
// sub-reducers. Each key's reducer sees state[key] (nil when missing) and
// its result is stored under the same key in a new map. The result has
// exactly the configured keys.
//
// A nil state is treated as empty, so every sub-reducer supplies its default.
// Sub-reducers run in sorted key order.
func CombineReducers(reducers map[string]Reducer[any], opts ...CombineOption) Reducer[map[string]any] {
	cfg := combineConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	keys := make([]string, 0, len(reducers))
	final := make(map[string]Reducer[any], len(reducers))
	for k, r := range reducers {
		if r == nil {
			cfg.logger.Warn("no reducer provided for key", "key", k)
			continue
		}
		keys = append(keys, k)
		final[k] = r
	}
	slices.Sort(keys)

	if len(keys) == 0 {
		cfg.logger.Warn("combined reducer has no valid reducers; state will always be empty")
	}

	return func(state map[string]any, action ir.Action) map[string]any {
		if len(state) > 0 && !action.IsInit() {
			checkShape(cfg, keys, final, state, action)
		}

		next := make(map[string]any, len(keys))
		for _, k := range keys {
			next[k] = final[k](state[k], action)
		}
		return next
	}
}

// checkShape reports keys the reducers expect but state lacks, and keys
// state carries that no reducer owns (those are dropped from the result).
func checkShape(cfg combineConfig, keys []string, reducers map[string]Reducer[any], state map[string]any, action ir.Action) {
	var missing []string
	for _, k := range keys {
		if _, ok := state[k]; !ok {
			missing = append(missing, k)
		}
	}

	var unexpected []string
	for k := range state {
		if _, ok := reducers[k]; !ok {
			unexpected = append(unexpected, k)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		cfg.logger.Warn("unexpected keys in state will be ignored",
			"type", action.Type,
			"keys", unexpected,
		)
	}

	if len(missing) == 0 {
		return
	}
	if cfg.strict {
		Reject(NewUnexpectedStateShapeError(action.Type, missing))
	}
	cfg.logger.Warn("state is missing keys handled by reducers",
		"type", action.Type,
		"keys", missing,
	)
}

// Lift adapts a typed sub-reducer for CombineReducers. A nil sub-state is
// passed as the zero value of T. A sub-state of another type rejects the
// transition with ErrCodeUnexpectedStateShape.
func Lift[T any](r Reducer[T]) Reducer[any] {
	return func(state any, action ir.Action) any {
		var typed T
		if state != nil {
			v, ok := state.(T)
			if !ok {
				Reject(&Error{
					Code:       ErrCodeUnexpectedStateShape,
					Message:    fmt.Sprintf("sub-state has type %T, want %T", state, typed),
					ActionType: action.Type,
				})
			}
			typed = v
		}
		return r(typed, action)
	}
}
