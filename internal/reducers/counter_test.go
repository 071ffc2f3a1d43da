package reducers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

func TestCounter(t *testing.T) {
	tests := []struct {
		name   string
		state  int64
		action ir.Action
		want   int64
	}{
		{"init keeps zero", 0, ir.Action{Type: ir.ActionTypeInit}, 0},
		{"increment default", 1, Increment(), 2},
		{"increment by", 1, Increment(5), 6},
		{"decrement default", 1, Decrement(), 0},
		{"decrement by", 1, Decrement(3), -2},
		{"reset", 9, Reset(), 0},
		{"reset to", 9, ir.NewAction(TypeReset, ir.O("to", ir.IRInt(4))), 4},
		{"unknown", 7, ir.NewAction("NOPE"), 7},
		{"non-int step ignored", 1, ir.NewAction(TypeIncrement, ir.O("by", ir.IRString("2"))), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Counter(tt.state, tt.action))
		})
	}
}

func TestCounter_BoundCreators(t *testing.T) {
	s, err := engine.CreateStore(Counter)
	require.NoError(t, err)

	bound, err := engine.BindActionCreators(CounterCreators(), s.Dispatch)
	require.NoError(t, err)

	_, err = bound.Set["increment"]()
	require.NoError(t, err)
	_, err = bound.Set["increment"](10)
	require.NoError(t, err)
	_, err = bound.Set["decrement"](int64(4))
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.GetState())

	_, err = bound.Set["reset"]()
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.GetState())
}
