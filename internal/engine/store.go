package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/statecell/internal/ir"
)

// Option configures CreateStore.
type Option[S any] func(*options[S])

type options[S any] struct {
	preloaded *S
	enhancer  Enhancer[S]
	snapshot  func(S) S
	logger    *slog.Logger
}

// WithPreloadedState seeds the store with state instead of the reducer default.
// The reducer still receives the bootstrap action with this state.
func WithPreloadedState[S any](state S) Option[S] {
	return func(o *options[S]) {
		o.preloaded = &state
	}
}

// WithEnhancer delegates store construction to e.
// Use ComposeEnhancers to install several.
func WithEnhancer[S any](e Enhancer[S]) Option[S] {
	return func(o *options[S]) {
		o.enhancer = e
	}
}

// WithSnapshot makes GetState return fn(state) instead of the stored value.
// Use ir.CloneMap (or any deep copy) when callers may mutate what they read.
func WithSnapshot[S any](fn func(S) S) Option[S] {
	return func(o *options[S]) {
		o.snapshot = fn
	}
}

// WithLogger sets the logger used for engine diagnostics.
// Default: slog.Default().
func WithLogger[S any](logger *slog.Logger) Option[S] {
	return func(o *options[S]) {
		o.logger = logger
	}
}

// CreateStore builds a store governed by reducer.
//
// With an enhancer, construction is delegated entirely: the enhancer receives
// the plain creator and decides how to call it. Without one, the store is
// built directly and the bootstrap action (ir.ActionTypeInit) is dispatched
// once so every reducer can establish its initial state.
func CreateStore[S any](reducer Reducer[S], opts ...Option[S]) (Store[S], error) {
	o := options[S]{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if reducer == nil {
		return nil, fmt.Errorf("create store: reducer is nil")
	}

	base := func(r Reducer[S], preloaded *S) (Store[S], error) {
		s, err := newStore(r, preloaded, o.snapshot, o.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	if o.enhancer != nil {
		return o.enhancer(base)(reducer, o.preloaded)
	}
	return base(reducer, o.preloaded)
}

// store is the base container.
//
// Thread-safety model:
//   - GetState(), Subscribe() and unsubscribe: safe from any goroutine
//   - Dispatch(): reentrant on one goroutine (listeners and middleware may
//     dispatch), but not meant to race with itself from several goroutines
//
// The mutex guards the state value and the registry only. It is never held
// while the reducer or a listener runs, so reentrant calls cannot deadlock.
type store[S any] struct {
	mu        sync.RWMutex
	state     S
	reducer   Reducer[S]
	listeners *registry
	snapshot  func(S) S
	logger    *slog.Logger
}

func newStore[S any](reducer Reducer[S], preloaded *S, snapshot func(S) S, logger *slog.Logger) (*store[S], error) {
	if reducer == nil {
		return nil, fmt.Errorf("create store: reducer is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &store[S]{
		reducer:   reducer,
		listeners: newRegistry(),
		snapshot:  snapshot,
		logger:    logger,
	}
	if preloaded != nil {
		s.state = *preloaded
	}

	if _, err := s.Dispatch(ir.Action{Type: ir.ActionTypeInit}); err != nil {
		return nil, fmt.Errorf("create store: bootstrap: %w", err)
	}
	return s, nil
}

// GetState returns the current state, passed through the snapshot func when set.
func (s *store[S]) GetState() S {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()

	if s.snapshot != nil {
		return s.snapshot(state)
	}
	return state
}

// Dispatch runs the reducer with the current state and action, commits the
// result, then notifies the listeners registered before this call began.
//
// Returns the action unchanged. A malformed action or a rejected transition
// returns an error and leaves state and listeners untouched. Reducer panics
// other than Reject propagate to the caller.
func (s *store[S]) Dispatch(action ir.Action) (any, error) {
	if action.Type == "" {
		return nil, NewMalformedActionError()
	}

	// Subscriptions made from here on belong to the next dispatch.
	snapshot := s.listeners.snapshot()

	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()

	next, err := s.reduce(current, action)
	if err != nil {
		s.logger.Debug("transition rejected", "type", action.Type, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	for _, l := range snapshot {
		l()
	}
	return action, nil
}

// reduce calls the reducer, turning a Reject into an error return.
func (s *store[S]) reduce(current S, action ir.Action) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			rej, ok := r.(rejection)
			if !ok {
				panic(r)
			}
			err = rej.err
		}
	}()
	return s.reducer(current, action), nil
}

// Subscribe registers listener. The returned function is idempotent.
func (s *store[S]) Subscribe(listener Listener) func() {
	if listener == nil {
		s.logger.Warn("ignoring nil listener")
		return func() {}
	}
	id := s.listeners.add(listener)
	var once sync.Once
	return func() {
		once.Do(func() { s.listeners.remove(id) })
	}
}
