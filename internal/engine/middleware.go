package engine

import (
	"github.com/roach88/statecell/internal/ir"
)

// ApplyMiddleware returns an enhancer that replaces the store's dispatch
// with a composed pipeline. Middleware listed as [A, B, C] run A -> B -> C ->
// base dispatch for every outward call; GetState and Subscribe pass through.
//
// Each middleware receives an API whose Dispatch runs the full chain, so a
// middleware can re-dispatch through every layer, including ones before it.
// Dispatching from inside a middleware factory (before the chain exists)
// returns ErrCodeDispatchDuringConstruction.
func ApplyMiddleware[S any](middlewares ...Middleware[S]) Enhancer[S] {
	mws := make([]Middleware[S], len(middlewares))
	copy(mws, middlewares)

	return func(next Creator[S]) Creator[S] {
		return func(reducer Reducer[S], preloaded *S) (Store[S], error) {
			underlying, err := next(reducer, preloaded)
			if err != nil {
				return nil, err
			}

			api := &middlewareAPI[S]{store: underlying}
			api.dispatch = func(action ir.Action) (any, error) {
				return nil, &Error{
					Code:       ErrCodeDispatchDuringConstruction,
					Message:    "dispatching while constructing middleware is not allowed",
					ActionType: action.Type,
				}
			}

			chain := make([]func(Dispatch) Dispatch, len(mws))
			for i, mw := range mws {
				chain[i] = mw(api)
			}

			// Populated once; treated as immutable afterwards.
			api.dispatch = Compose(chain...)(underlying.Dispatch)

			return &middlewareStore[S]{Store: underlying, dispatch: api.dispatch}, nil
		}
	}
}

// middlewareAPI is the capability object. dispatch is a forward reference to
// the final composed dispatch.
type middlewareAPI[S any] struct {
	store    Store[S]
	dispatch Dispatch
}

func (a *middlewareAPI[S]) GetState() S {
	return a.store.GetState()
}

func (a *middlewareAPI[S]) Dispatch(action ir.Action) (any, error) {
	return a.dispatch(action)
}

// middlewareStore forwards GetState and Subscribe to the underlying store
// and routes Dispatch through the chain.
type middlewareStore[S any] struct {
	Store[S]
	dispatch Dispatch
}

func (s *middlewareStore[S]) Dispatch(action ir.Action) (any, error) {
	return s.dispatch(action)
}
