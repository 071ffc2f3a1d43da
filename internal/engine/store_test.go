package engine

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/ir"
)

var (
	inc   = ir.Action{Type: "INC"}
	dec   = ir.Action{Type: "DEC"}
	reset = ir.Action{Type: "RESET"}
)

// counter defaults to 10 so tests can tell "default applied" from zero.
func counter(state int, a ir.Action) int {
	if state == 0 && a.IsInit() {
		return 10
	}
	switch a.Type {
	case "INC":
		return state + 1
	case "DEC":
		return state - 1
	case "RESET":
		return 10
	}
	return state
}

func newCounterStore(t *testing.T, opts ...Option[int]) Store[int] {
	t.Helper()
	s, err := CreateStore(counter, opts...)
	require.NoError(t, err)
	return s
}

func TestCreateStore_BootstrapState(t *testing.T) {
	s := newCounterStore(t)

	var zero int
	assert.Equal(t, counter(zero, ir.Action{Type: ir.ActionTypeInit}), s.GetState())
}

func TestCreateStore_BootstrapSeesInitAction(t *testing.T) {
	var seen []ir.Action
	_, err := CreateStore(func(state int, a ir.Action) int {
		seen = append(seen, a)
		return state
	})
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, ir.ActionTypeInit, seen[0].Type)
}

func TestCreateStore_PreloadedState(t *testing.T) {
	s := newCounterStore(t, WithPreloadedState(42))
	assert.Equal(t, 42, s.GetState())

	_, err := s.Dispatch(inc)
	require.NoError(t, err)
	assert.Equal(t, 43, s.GetState())
}

func TestCreateStore_NilReducer(t *testing.T) {
	_, err := CreateStore[int](nil)
	require.Error(t, err)
}

func TestDispatch_UsesPreviousState(t *testing.T) {
	var prev []int
	s, err := CreateStore(func(state int, a ir.Action) int {
		prev = append(prev, state)
		if a.Type == "INC" {
			return state + 1
		}
		return state
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.Dispatch(inc)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 0, 1, 2}, prev, "init, then each dispatch sees the last result")
}

func TestDispatch_ReturnsSameAction(t *testing.T) {
	s := newCounterStore(t)
	a := ir.NewAction("INC", ir.O("by", ir.IRInt(1)))

	got, err := s.Dispatch(a)
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestDispatch_MalformedAction(t *testing.T) {
	s := newCounterStore(t)
	notified := 0
	s.Subscribe(func() { notified++ })

	_, err := s.Dispatch(ir.Action{})

	require.Error(t, err)
	assert.True(t, IsMalformedAction(err))
	assert.Equal(t, 10, s.GetState(), "state unchanged")
	assert.Zero(t, notified, "no listener for a failed dispatch")
}

func TestDispatch_RejectKeepsStateAndSkipsListeners(t *testing.T) {
	boom := errors.New("boom")
	s, err := CreateStore(func(state int, a ir.Action) int {
		if a.Type == "FAIL" {
			Reject(boom)
		}
		return state + 1
	})
	require.NoError(t, err)

	notified := 0
	s.Subscribe(func() { notified++ })

	_, err = s.Dispatch(ir.Action{Type: "FAIL"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.GetState())
	assert.Zero(t, notified)

	_, err = s.Dispatch(inc)
	require.NoError(t, err)
	assert.Equal(t, 2, s.GetState())
	assert.Equal(t, 1, notified)
}

func TestDispatch_RejectNilError(t *testing.T) {
	s, err := CreateStore(func(state int, a ir.Action) int {
		if a.Type == "FAIL" {
			Reject(nil)
		}
		return state
	})
	require.NoError(t, err)

	_, err = s.Dispatch(ir.Action{Type: "FAIL"})
	require.Error(t, err)
}

func TestDispatch_ReducerPanicPropagates(t *testing.T) {
	s, err := CreateStore(func(state int, a ir.Action) int {
		if a.Type == "PANIC" {
			panic("reducer bug")
		}
		return state + 1
	})
	require.NoError(t, err)

	notified := 0
	s.Subscribe(func() { notified++ })

	assert.PanicsWithValue(t, "reducer bug", func() {
		_, _ = s.Dispatch(ir.Action{Type: "PANIC"})
	})
	assert.Equal(t, 1, s.GetState(), "no partial commit")
	assert.Zero(t, notified)
}

func TestCreateStore_BootstrapRejectFails(t *testing.T) {
	_, err := CreateStore(func(state int, a ir.Action) int {
		Reject(errors.New("bad default"))
		return state
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bootstrap")
}

func TestReplayDeterminism(t *testing.T) {
	actions := []ir.Action{inc, inc, dec, inc, reset, inc, dec, dec}

	s := newCounterStore(t)
	for _, a := range actions {
		_, err := s.Dispatch(a)
		require.NoError(t, err)
	}

	var zero int
	expected := counter(zero, ir.Action{Type: ir.ActionTypeInit})
	for _, a := range actions {
		expected = counter(expected, a)
	}
	assert.Equal(t, expected, s.GetState())
}

func TestSubscribe_NotifiedInOrder(t *testing.T) {
	s := newCounterStore(t)
	var calls []string
	s.Subscribe(func() { calls = append(calls, "a") })
	s.Subscribe(func() { calls = append(calls, "b") })
	s.Subscribe(func() { calls = append(calls, "c") })

	_, err := s.Dispatch(inc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestSubscribe_ListenerReadsNewState(t *testing.T) {
	s := newCounterStore(t)
	var seen []int
	s.Subscribe(func() { seen = append(seen, s.GetState()) })

	_, _ = s.Dispatch(inc)
	_, _ = s.Dispatch(inc)
	assert.Equal(t, []int{11, 12}, seen)
}

func TestSubscribe_UnsubscribeIsIdempotent(t *testing.T) {
	s := newCounterStore(t)
	aCalls, bCalls := 0, 0
	unsubA := s.Subscribe(func() { aCalls++ })
	s.Subscribe(func() { bCalls++ })

	unsubA()
	unsubA()
	unsubA()

	_, _ = s.Dispatch(inc)
	assert.Zero(t, aCalls)
	assert.Equal(t, 1, bCalls, "other registrations are unaffected")
}

func TestSubscribe_SameListenerTwice(t *testing.T) {
	s := newCounterStore(t)
	calls := 0
	l := func() { calls++ }
	unsub1 := s.Subscribe(l)
	s.Subscribe(l)

	_, _ = s.Dispatch(inc)
	assert.Equal(t, 2, calls)

	unsub1()
	_, _ = s.Dispatch(inc)
	assert.Equal(t, 3, calls, "only the first registration was removed")
}

func TestSubscribe_NilListener(t *testing.T) {
	s := newCounterStore(t)
	unsub := s.Subscribe(nil)
	assert.NotPanics(t, func() {
		unsub()
		_, _ = s.Dispatch(inc)
	})
}

func TestSnapshot_UnsubscribeSelfDuringDispatch(t *testing.T) {
	s := newCounterStore(t)
	calls := 0
	var unsub func()
	unsub = s.Subscribe(func() {
		calls++
		unsub()
	})

	_, _ = s.Dispatch(inc)
	assert.Equal(t, 1, calls, "called exactly once for the dispatch in progress")

	_, _ = s.Dispatch(inc)
	_, _ = s.Dispatch(inc)
	assert.Equal(t, 1, calls, "never again afterwards")
}

func TestSnapshot_UnsubscribeOtherDuringDispatch(t *testing.T) {
	s := newCounterStore(t)
	var calls []string
	var unsubB func()
	s.Subscribe(func() {
		calls = append(calls, "a")
		unsubB()
	})
	unsubB = s.Subscribe(func() { calls = append(calls, "b") })

	_, _ = s.Dispatch(inc)
	assert.Equal(t, []string{"a", "b"}, calls, "b was in the snapshot")

	_, _ = s.Dispatch(inc)
	assert.Equal(t, []string{"a", "b", "a"}, calls)
}

func TestSnapshot_SubscribeDuringDispatch(t *testing.T) {
	s := newCounterStore(t)
	lateCalls := 0
	subscribed := false
	s.Subscribe(func() {
		if !subscribed {
			subscribed = true
			s.Subscribe(func() { lateCalls++ })
		}
	})

	_, _ = s.Dispatch(inc)
	assert.Zero(t, lateCalls, "not called during the dispatch that registered it")

	_, _ = s.Dispatch(inc)
	assert.Equal(t, 1, lateCalls, "called from the next dispatch on")
}

func TestNestedDispatchCompletesBeforeOuterContinues(t *testing.T) {
	s := newCounterStore(t)
	var log []string

	s.Subscribe(func() {
		state := s.GetState()
		log = append(log, "first:"+strconv.Itoa(state))
		if state == 11 {
			_, err := s.Dispatch(inc)
			require.NoError(t, err)
		}
	})
	s.Subscribe(func() {
		log = append(log, "second:"+strconv.Itoa(s.GetState()))
	})

	_, err := s.Dispatch(inc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"first:11",  // outer dispatch, first listener
		"first:12",  // nested dispatch runs its own snapshot fully
		"second:12", //
		"second:12", // outer dispatch resumes with remaining listeners
	}, log)
	assert.Equal(t, 12, s.GetState())
}

func TestNestedDispatchSeesSubscriptionsFromOuterListeners(t *testing.T) {
	s := newCounterStore(t)
	lateCalls := 0
	dispatched := false

	s.Subscribe(func() {
		if dispatched {
			return
		}
		dispatched = true
		s.Subscribe(func() { lateCalls++ })
		_, _ = s.Dispatch(inc) // a new dispatch, so a new snapshot
	})

	_, _ = s.Dispatch(inc)
	assert.Equal(t, 1, lateCalls)
}

func TestGetState_Snapshot(t *testing.T) {
	s, err := CreateStore(
		func(state map[string]any, a ir.Action) map[string]any {
			if state == nil {
				return map[string]any{"items": []any{}}
			}
			if a.Type == "ADD" {
				items := append([]any{}, state["items"].([]any)...)
				return map[string]any{"items": append(items, "x")}
			}
			return state
		},
		WithSnapshot(ir.CloneMap),
	)
	require.NoError(t, err)

	read := s.GetState()
	read["items"] = []any{"mutated"}

	assert.Equal(t, []any{}, s.GetState()["items"], "callers cannot reach the stored value")
}

func TestGetState_ConcurrentReaders(t *testing.T) {
	s := newCounterStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.GetState()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		_, _ = s.Dispatch(inc)
	}
	wg.Wait()

	assert.Equal(t, 110, s.GetState())
}

func TestCreateStore_EnhancerReceivesReducerAndPreloaded(t *testing.T) {
	var gotPreloaded *int
	var enhanced Store[int]
	enhancer := func(next Creator[int]) Creator[int] {
		return func(r Reducer[int], preloaded *int) (Store[int], error) {
			gotPreloaded = preloaded
			st, err := next(r, preloaded)
			enhanced = st
			return st, err
		}
	}

	s := newCounterStore(t, WithPreloadedState(5), WithEnhancer[int](enhancer))

	require.NotNil(t, gotPreloaded)
	assert.Equal(t, 5, *gotPreloaded)
	assert.Same(t, enhanced, s)
}

func TestCreateStore_EnhancerMayReplaceConstruction(t *testing.T) {
	fake := &fixedStore{state: 99}
	enhancer := func(next Creator[int]) Creator[int] {
		return func(Reducer[int], *int) (Store[int], error) {
			return fake, nil
		}
	}

	s := newCounterStore(t, WithEnhancer[int](enhancer))
	assert.Equal(t, 99, s.GetState(), "base container was never built")
}

func TestCreateStore_EnhancerError(t *testing.T) {
	enhancer := func(next Creator[int]) Creator[int] {
		return func(Reducer[int], *int) (Store[int], error) {
			return nil, errors.New("no store for you")
		}
	}
	_, err := CreateStore(counter, WithEnhancer[int](enhancer))
	require.EqualError(t, err, "no store for you")
}

// fixedStore is a Store that ignores dispatch.
type fixedStore struct {
	state int
}

func (f *fixedStore) GetState() int                     { return f.state }
func (f *fixedStore) Dispatch(a ir.Action) (any, error) { return a, nil }
func (f *fixedStore) Subscribe(Listener) func()         { return func() {} }
