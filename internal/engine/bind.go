package engine

import (
	"github.com/roach88/statecell/internal/ir"
)

// ActionCreator builds an action from arbitrary arguments.
type ActionCreator func(args ...any) ir.Action

// BoundActionCreator builds an action and dispatches it in one call.
type BoundActionCreator func(args ...any) (any, error)

type creatorsKind int

const (
	creatorsNone creatorsKind = iota
	creatorsSingle
	creatorsSet
)

// ActionCreators is either one creator or a named set of creators.
// Build it with Single or Set; the zero value is invalid.
type ActionCreators struct {
	kind   creatorsKind
	single ActionCreator
	set    map[string]ActionCreator
}

// Single wraps one action creator.
func Single(c ActionCreator) ActionCreators {
	return ActionCreators{kind: creatorsSingle, single: c}
}

// Set wraps a named set of action creators.
func Set(creators map[string]ActionCreator) ActionCreators {
	return ActionCreators{kind: creatorsSet, set: creators}
}

// Bound is the result of BindActionCreators. Func is set for a Single
// variant, Set for a set variant.
type Bound struct {
	Func BoundActionCreator
	Set  map[string]BoundActionCreator
}

// BindActionCreators curries dispatch into creators so calling the bound
// function creates the action and dispatches it.
//
// For a set, nil entries are dropped. An empty variant or a nil single
// creator returns ErrCodeInvalidActionCreators.
func BindActionCreators(creators ActionCreators, dispatch Dispatch) (Bound, error) {
	if dispatch == nil {
		return Bound{}, NewInvalidActionCreatorsError("dispatch is nil")
	}

	switch creators.kind {
	case creatorsSingle:
		if creators.single == nil {
			return Bound{}, NewInvalidActionCreatorsError("single creator is nil")
		}
		return Bound{Func: bindActionCreator(creators.single, dispatch)}, nil

	case creatorsSet:
		if creators.set == nil {
			return Bound{}, NewInvalidActionCreatorsError("creator set is nil")
		}
		bound := make(map[string]BoundActionCreator, len(creators.set))
		for name, c := range creators.set {
			if c == nil {
				continue
			}
			bound[name] = bindActionCreator(c, dispatch)
		}
		return Bound{Set: bound}, nil

	default:
		return Bound{}, NewInvalidActionCreatorsError("got an empty value")
	}
}

func bindActionCreator(c ActionCreator, dispatch Dispatch) BoundActionCreator {
	return func(args ...any) (any, error) {
		return dispatch(c(args...))
	}
}
