package reducers

import (
	"errors"
	"fmt"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// Todo action types.
const (
	TypeAddTodo    = "ADD_TODO"
	TypeToggleTodo = "TOGGLE_TODO"
	TypeRemoveTodo = "REMOVE_TODO"
)

// Todos maintains a list of {id, text, completed} items.
//
// The list is never mutated in place: every handled action returns a new
// slice, and toggled items are copied. ADD_TODO with empty text and
// TOGGLE_TODO/REMOVE_TODO without an integer id reject the transition.
func Todos(state []any, action ir.Action) []any {
	switch action.Type {
	case TypeAddTodo:
		text := action.Payload.String("text")
		if text == "" {
			engine.Reject(errors.New("ADD_TODO: payload.text is required"))
		}
		next := make([]any, len(state), len(state)+1)
		copy(next, state)
		return append(next, map[string]any{
			"id":        nextTodoID(state),
			"text":      text,
			"completed": false,
		})

	case TypeToggleTodo:
		id := requireID(action)
		next := make([]any, len(state))
		for i, item := range state {
			todo, ok := item.(map[string]any)
			if !ok || todoID(todo) != id {
				next[i] = item
				continue
			}
			toggled := ir.CloneMap(todo)
			done, _ := todo["completed"].(bool)
			toggled["completed"] = !done
			next[i] = toggled
		}
		return next

	case TypeRemoveTodo:
		id := requireID(action)
		next := make([]any, 0, len(state))
		for _, item := range state {
			if todo, ok := item.(map[string]any); ok && todoID(todo) == id {
				continue
			}
			next = append(next, item)
		}
		return next

	default:
		if state == nil {
			return []any{}
		}
		return state
	}
}

func requireID(action ir.Action) int64 {
	id, ok := action.Payload.Int("id")
	if !ok {
		engine.Reject(fmt.Errorf("%s: payload.id is required", action.Type))
	}
	return id
}

func todoID(todo map[string]any) int64 {
	id, _ := todo["id"].(int64)
	return id
}

func nextTodoID(state []any) int64 {
	var highest int64
	for _, item := range state {
		if todo, ok := item.(map[string]any); ok {
			highest = max(highest, todoID(todo))
		}
	}
	return highest + 1
}

// AddTodo builds an ADD_TODO action.
func AddTodo(text string) ir.Action {
	return ir.NewAction(TypeAddTodo, ir.O("text", ir.IRString(text)))
}

// ToggleTodo builds a TOGGLE_TODO action.
func ToggleTodo(id int64) ir.Action {
	return ir.NewAction(TypeToggleTodo, ir.O("id", ir.IRInt(id)))
}

// RemoveTodo builds a REMOVE_TODO action.
func RemoveTodo(id int64) ir.Action {
	return ir.NewAction(TypeRemoveTodo, ir.O("id", ir.IRInt(id)))
}
