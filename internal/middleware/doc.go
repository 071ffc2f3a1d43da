// Package middleware provides ready-made middleware and enhancers for
// engine stores.
//
// Middleware (wrap dispatch):
//   - Logger: structured slog lines around each dispatch
//   - Instrument: Prometheus counters and latency histograms
//   - Filter: drops actions that fail a predicate
//
// Enhancers (wrap construction):
//   - Record: appends every committed action to a journal session
//   - SchemaGuard: validates every next state against a CUE schema
//
// Record should be the innermost enhancer so that actions dispatched by
// other middleware are journaled too:
//
//	enhancer := engine.ComposeEnhancers(
//		engine.ApplyMiddleware(middleware.Logger[any](logger)),
//		middleware.SchemaGuard[any](schema),
//		middleware.Record[any](recorder),
//	)
package middleware
