package reducers

import (
	"fmt"
	"slices"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// TypeSetVisibility selects which todos a view shows.
const TypeSetVisibility = "SET_VISIBILITY"

// Visibility filters.
const (
	ShowAll       = "all"
	ShowActive    = "active"
	ShowCompleted = "completed"
)

var filters = []string{ShowAll, ShowActive, ShowCompleted}

// Visibility holds the current filter, defaulting to ShowAll. An unknown
// filter rejects the transition.
func Visibility(state string, action ir.Action) string {
	if action.Type == TypeSetVisibility {
		filter := action.Payload.String("filter")
		if !slices.Contains(filters, filter) {
			engine.Reject(fmt.Errorf("SET_VISIBILITY: unknown filter %q", filter))
		}
		return filter
	}
	if state == "" {
		return ShowAll
	}
	return state
}

// SetVisibility builds a SET_VISIBILITY action.
func SetVisibility(filter string) ir.Action {
	return ir.NewAction(TypeSetVisibility, ir.O("filter", ir.IRString(filter)))
}
