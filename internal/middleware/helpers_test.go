package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/reducers"
)

// newCounter builds a counter store with the given middleware applied.
func newCounter(t *testing.T, mws ...engine.Middleware[int64]) engine.Store[int64] {
	t.Helper()
	s, err := engine.CreateStore(reducers.Counter,
		engine.WithEnhancer(engine.ApplyMiddleware(mws...)))
	require.NoError(t, err)
	return s
}
