// Package engine implements the statecell store: a single state cell changed
// only by dispatching actions through a pure reducer.
//
// ARCHITECTURE:
//
// Store:
// CreateStore builds a store around a reducer and immediately dispatches the
// bootstrap action (ir.ActionTypeInit) so reducers can set their defaults.
// Dispatch runs the reducer with the previous state, commits the result and
// notifies listeners. It returns the action it was given.
//
// Listener Snapshots:
// The listeners notified by a dispatch are exactly those registered before it
// began. Subscribing or unsubscribing from inside a listener only affects the
// next dispatch. A listener may dispatch again; the nested dispatch finishes
// (reduce, commit, notify its own snapshot) before the outer one continues.
//
// Enhancers and Middleware:
// An Enhancer wraps store construction. ApplyMiddleware is the built-in
// enhancer: it composes middleware right to left around the base dispatch,
// so [A, B, C] run A -> B -> C -> base. Middleware see a Dispatch that
// re-enters the whole chain, bound once composition completes.
//
// Reducer Composition:
// CombineReducers fans a map-shaped state out to named sub-reducers and
// collects their results under the same keys. Lift adapts typed sub-reducers.
//
// Errors:
// Dispatch fails synchronously with ErrCodeMalformedAction for an action
// without a type. Reducers abort with Reject, which Dispatch returns as an
// error; any other reducer panic propagates unchanged. Either way the
// previous state is kept and no listener runs. Middleware errors propagate
// to the caller. Nothing is retried.
//
// The engine never suspends: Dispatch, GetState and Subscribe complete
// synchronously. Asynchronous behavior belongs in middleware.
package engine
