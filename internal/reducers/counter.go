package reducers

import (
	"github.com/roach88/statecell/internal/ir"
)

// Counter action types.
const (
	TypeIncrement = "INCREMENT"
	TypeDecrement = "DECREMENT"
	TypeReset     = "RESET"
)

// Counter adds or subtracts payload "by" (default 1). RESET returns to
// payload "to" (default 0). Unknown actions leave the count unchanged.
func Counter(state int64, action ir.Action) int64 {
	switch action.Type {
	case TypeIncrement:
		return state + step(action)
	case TypeDecrement:
		return state - step(action)
	case TypeReset:
		to, _ := action.Payload.Int("to")
		return to
	default:
		return state
	}
}

func step(action ir.Action) int64 {
	if by, ok := action.Payload.Int("by"); ok {
		return by
	}
	return 1
}

// Increment builds an INCREMENT action. With no argument the step is 1.
func Increment(by ...int64) ir.Action {
	if len(by) == 0 {
		return ir.NewAction(TypeIncrement)
	}
	return ir.NewAction(TypeIncrement, ir.O("by", ir.IRInt(by[0])))
}

// Decrement builds a DECREMENT action. With no argument the step is 1.
func Decrement(by ...int64) ir.Action {
	if len(by) == 0 {
		return ir.NewAction(TypeDecrement)
	}
	return ir.NewAction(TypeDecrement, ir.O("by", ir.IRInt(by[0])))
}

// Reset builds a RESET action back to zero.
func Reset() ir.Action {
	return ir.NewAction(TypeReset)
}
