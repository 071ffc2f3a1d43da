package engine

import "github.com/roach88/statecell/internal/ir"

// Reducer is a pure state transition. It is called exactly once per dispatch
// with the previous state and the dispatched action, and must return the
// state unchanged for actions it does not handle.
//
// The zero value of S plays the role of "no state yet": reducers supply
// their default when they see it.
type Reducer[S any] func(state S, action ir.Action) S

// Listener is notified after every successful dispatch. It receives no
// arguments; call Store.GetState to observe the new state.
type Listener func()

// Dispatch sends an action through a store or middleware chain. The base
// store returns the action itself; middleware may return something else.
type Dispatch func(action ir.Action) (any, error)

// Store owns one state value, one listener registry, and the reducer that
// governs transitions.
type Store[S any] interface {
	// GetState returns the current state.
	GetState() S

	// Dispatch is the only way to change state.
	Dispatch(action ir.Action) (any, error)

	// Subscribe registers a listener and returns a function that removes
	// exactly this registration. Calling it more than once is a no-op.
	Subscribe(listener Listener) (unsubscribe func())
}

// Creator builds a store from a reducer and an optional preloaded state.
// A nil preloaded pointer means "not provided".
type Creator[S any] func(reducer Reducer[S], preloaded *S) (Store[S], error)

// Enhancer wraps store construction. It receives the next creator and
// returns a creator that may call it, wrap its result, or replace it.
type Enhancer[S any] func(next Creator[S]) Creator[S]

// MiddlewareAPI is the capability handed to each middleware: read access
// to state and a Dispatch that runs through the whole composed chain.
type MiddlewareAPI[S any] interface {
	GetState() S
	Dispatch(action ir.Action) (any, error)
}

// Middleware intercepts dispatch. Given the API it returns a function that
// wraps the next dispatch in the chain.
type Middleware[S any] func(api MiddlewareAPI[S]) func(next Dispatch) Dispatch
