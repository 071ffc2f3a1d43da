package reducers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

func todo(id int64, text string, completed bool) map[string]any {
	return map[string]any{"id": id, "text": text, "completed": completed}
}

func TestTodos_Init(t *testing.T) {
	assert.Equal(t, []any{}, Todos(nil, ir.Action{Type: ir.ActionTypeInit}))
}

func TestTodos_AddAssignsIncreasingIDs(t *testing.T) {
	state := Todos(nil, AddTodo("milk"))
	state = Todos(state, AddTodo("eggs"))

	assert.Equal(t, []any{todo(1, "milk", false), todo(2, "eggs", false)}, state)
}

func TestTodos_AddAfterGap(t *testing.T) {
	state := []any{todo(4, "a", false), todo(2, "b", true)}
	state = Todos(state, AddTodo("c"))
	assert.Equal(t, int64(5), state[2].(map[string]any)["id"])
}

func TestTodos_ToggleDoesNotMutate(t *testing.T) {
	before := []any{todo(1, "milk", false), todo(2, "eggs", false)}
	after := Todos(before, ToggleTodo(2))

	assert.Equal(t, []any{todo(1, "milk", false), todo(2, "eggs", true)}, after)
	assert.Equal(t, false, before[1].(map[string]any)["completed"], "previous state must be untouched")

	again := Todos(after, ToggleTodo(2))
	assert.Equal(t, false, again[1].(map[string]any)["completed"])
}

func TestTodos_Remove(t *testing.T) {
	before := []any{todo(1, "milk", false), todo(2, "eggs", false)}
	after := Todos(before, RemoveTodo(1))

	assert.Equal(t, []any{todo(2, "eggs", false)}, after)
	assert.Len(t, before, 2)
}

func TestTodos_UnknownActionKeepsIdentity(t *testing.T) {
	state := []any{todo(1, "milk", false)}
	assert.Equal(t, state, Todos(state, ir.NewAction("NOPE")))
}

func TestTodos_RejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name   string
		action ir.Action
	}{
		{"add without text", ir.NewAction(TypeAddTodo)},
		{"toggle without id", ir.NewAction(TypeToggleTodo)},
		{"remove with string id", ir.NewAction(TypeRemoveTodo, ir.O("id", ir.IRString("1")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := engine.CreateStore(Todos)
			require.NoError(t, err)
			_, err = s.Dispatch(AddTodo("milk"))
			require.NoError(t, err)

			_, err = s.Dispatch(tt.action)
			require.Error(t, err)
			assert.Len(t, s.GetState(), 1, "rejected transition must not commit")
		})
	}
}
