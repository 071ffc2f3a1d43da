package reducers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// App combines the todo application's slices under "counter", "todos" and
// "visibility".
func App(opts ...engine.CombineOption) engine.Reducer[map[string]any] {
	return engine.CombineReducers(map[string]engine.Reducer[any]{
		"counter":    engine.Lift[int64](Counter),
		"todos":      engine.Lift[[]any](Todos),
		"visibility": engine.Lift[string](Visibility),
	}, opts...)
}

var registry = map[string]func(opts ...engine.CombineOption) engine.Reducer[any]{
	"counter": func(...engine.CombineOption) engine.Reducer[any] {
		return engine.Lift[int64](Counter)
	},
	"app": func(opts ...engine.CombineOption) engine.Reducer[any] {
		return engine.Lift(App(opts...))
	},
}

// Names returns the registered root reducer names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the root reducer registered under name. Combine options
// apply to combined reducers and are ignored otherwise.
func Lookup(name string, opts ...engine.CombineOption) (engine.Reducer[any], error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown reducer %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return build(opts...), nil
}

// CounterCreators returns the counter's action creators, ready for
// engine.BindActionCreators. "increment" and "decrement" accept an optional
// int or int64 step.
func CounterCreators() engine.ActionCreators {
	return engine.Set(map[string]engine.ActionCreator{
		"increment": func(args ...any) ir.Action { return Increment(steps(args)...) },
		"decrement": func(args ...any) ir.Action { return Decrement(steps(args)...) },
		"reset":     func(...any) ir.Action { return Reset() },
	})
}

func steps(args []any) []int64 {
	if len(args) == 0 {
		return nil
	}
	switch n := args[0].(type) {
	case int:
		return []int64{int64(n)}
	case int64:
		return []int64{n}
	default:
		return nil
	}
}
