package middleware

import (
	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// Filter passes only actions for which allow returns true. Dropped actions
// never reach the reducer; their dispatch returns (nil, nil).
func Filter[S any](allow func(ir.Action) bool) engine.Middleware[S] {
	return func(engine.MiddlewareAPI[S]) func(engine.Dispatch) engine.Dispatch {
		return func(next engine.Dispatch) engine.Dispatch {
			return func(action ir.Action) (any, error) {
				if !allow(action) {
					return nil, nil
				}
				return next(action)
			}
		}
	}
}

// AllowTypes is a Filter predicate admitting only the listed action types.
func AllowTypes(types ...string) func(ir.Action) bool {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(a ir.Action) bool {
		_, ok := set[a.Type]
		return ok
	}
}
