package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
	"github.com/roach88/statecell/internal/journal"
	"github.com/roach88/statecell/internal/middleware"
	"github.com/roach88/statecell/internal/reducers"
	"github.com/roach88/statecell/internal/testutil"
)

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	ctx        context.Context
	journal    *journal.Journal
	sessions   journal.SessionGenerator
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithJournal records every committed action of the run to j in a new session.
func WithJournal(j *journal.Journal) RunOption {
	return func(c *runConfig) {
		c.journal = j
	}
}

// WithSessionGenerator sets how session IDs are generated when the scenario
// does not fix one. Default: journal.UUIDv7Generator.
func WithSessionGenerator(g journal.SessionGenerator) RunOption {
	return func(c *runConfig) {
		c.sessions = g
	}
}

// WithLogger sets the logger used by the store and the "logger" middleware.
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithRegisterer sets where the "metrics" middleware registers its
// collectors. Default: a fresh registry per run.
func WithRegisterer(reg prometheus.Registerer) RunOption {
	return func(c *runConfig) {
		c.registerer = reg
	}
}

// WithContext bounds journal writes. Default: context.Background().
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		c.ctx = ctx
	}
}

// Harness executes one scenario against a fresh store.
type Harness struct {
	scenario *Scenario
	store    engine.Store[any]
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
	notified int
}

// Run executes a scenario and returns the result.
//
// Each run builds a fresh store from the scenario's reducer, preloaded
// state, middleware and schema. Trace seqs come from a deterministic clock,
// so repeated runs produce identical traces.
//
// When the journal session already holds entries, the run resumes it: the
// store starts from the session's preloaded state with every journaled
// action re-applied, so assertions see the accumulated state.
//
// Execution flow:
// 1. Resolve the reducer and build the store (journal session if configured)
// 2. Dispatch every step, checking expected errors
// 3. Evaluate assertions against trace and final state
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		ctx:      context.Background(),
		sessions: journal.UUIDv7Generator{},
		logger:   testutil.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := NewResult()
	h := &Harness{
		scenario: scenario,
		clock:    testutil.NewDeterministicClock(),
		logger:   cfg.logger,
	}

	st, err := h.buildStore(cfg, result)
	if err != nil {
		return nil, err
	}
	h.store = st
	st.Subscribe(func() { h.notified++ })

	for i, step := range scenario.Steps {
		if err := h.executeStep(i, step, result); err != nil {
			return nil, err
		}
	}

	result.Notifications = h.notified
	result.FinalState = st.GetState()
	if result.FinalHash, err = ir.StateHash(result.FinalState); err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) buildStore(cfg runConfig, result *Result) (engine.Store[any], error) {
	s := h.scenario

	var combineOpts []engine.CombineOption
	combineOpts = append(combineOpts, engine.WithCombineLogger(cfg.logger))
	if s.StrictShape {
		combineOpts = append(combineOpts, engine.WithStrictShape())
	}
	reducer, err := reducers.Lookup(s.Reducer, combineOpts...)
	if err != nil {
		return nil, err
	}

	var preloaded any
	if s.PreloadedState != nil {
		if preloaded, err = ir.Normalize(s.PreloadedState); err != nil {
			return nil, fmt.Errorf("preloaded_state: %w", err)
		}
	}

	var mws []engine.Middleware[any]
	for _, name := range s.Middleware {
		switch name {
		case "logger":
			mws = append(mws, middleware.Logger[any](cfg.logger))
		case "metrics":
			reg := cfg.registerer
			if reg == nil {
				reg = prometheus.NewRegistry()
			}
			mws = append(mws, middleware.Instrument[any](middleware.NewMetrics(reg)))
		default:
			return nil, fmt.Errorf("unknown middleware %q", name)
		}
	}
	if len(s.AllowTypes) > 0 {
		mws = append(mws, middleware.Filter[any](middleware.AllowTypes(s.AllowTypes...)))
	}

	enhancers := []engine.Enhancer[any]{engine.ApplyMiddleware(mws...)}

	if s.Schema != "" {
		schema, err := middleware.LoadSchema(s.Schema)
		if err != nil {
			return nil, err
		}
		enhancers = append(enhancers, middleware.SchemaGuard[any](schema))
	}

	if cfg.journal != nil {
		rec, stored, err := h.openSession(cfg, preloaded)
		if err != nil {
			return nil, err
		}
		// A resumed session starts from its own preloaded state; the
		// recorder re-applies its entries on top.
		preloaded = stored
		result.Session = rec.Session()
		enhancers = append(enhancers, middleware.Record[any](rec))
	}

	storeOpts := []engine.Option[any]{
		engine.WithEnhancer(engine.ComposeEnhancers(enhancers...)),
		engine.WithLogger[any](cfg.logger),
	}
	if preloaded != nil {
		storeOpts = append(storeOpts, engine.WithPreloadedState(preloaded))
	}

	st, err := engine.CreateStore(reducer, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return st, nil
}

// openSession creates or resumes the journal session for this run and
// returns its recorder along with the session's stored preloaded state.
// Resuming a session recorded with a different reducer is an error.
func (h *Harness) openSession(cfg runConfig, preloaded any) (*middleware.Recorder, any, error) {
	id := h.scenario.Session
	if id == "" {
		id = cfg.sessions.Generate()
	}

	if err := cfg.journal.CreateSession(cfg.ctx, journal.NewSession(id, h.scenario.Reducer, preloaded)); err != nil {
		return nil, nil, err
	}
	sess, err := cfg.journal.ReadSession(cfg.ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", id, err)
	}
	if sess.Reducer != h.scenario.Reducer {
		return nil, nil, fmt.Errorf("session %s uses reducer %q, not %q", id, sess.Reducer, h.scenario.Reducer)
	}
	entries, err := cfg.journal.ReadEntries(cfg.ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", id, err)
	}
	if len(entries) > 0 {
		h.logger.Debug("resuming session", "session", id, "entries", len(entries))
	}

	rec := middleware.NewRecorder(cfg.ctx, cfg.journal, id,
		middleware.WithRecorderHistory(entries),
		middleware.WithRecorderLogger(cfg.logger),
	)
	return rec, sess.Preloaded, nil
}

// executeStep dispatches one step and records its trace event.
func (h *Harness) executeStep(i int, step Step, result *Result) error {
	payload, err := ir.ToObject(step.Dispatch.Payload)
	if err != nil {
		return fmt.Errorf("steps[%d]: payload: %w", i, err)
	}
	action := ir.Action{Type: step.Dispatch.Type, Payload: payload}
	if len(action.Payload) == 0 {
		action.Payload = nil
	}

	dispatched, dispatchErr := h.store.Dispatch(action)

	event := TraceEvent{
		Seq:  h.clock.Next(),
		Type: action.Type,
	}
	if action.Payload != nil {
		event.Payload, _ = ir.FromIRValue(action.Payload).(map[string]any)
	}

	switch {
	case dispatchErr != nil:
		event.Outcome = OutcomeError
		event.Error = classifyError(dispatchErr)
		h.logger.Debug("step failed", "step", i, "type", action.Type, "error", dispatchErr)
	case dispatched == nil:
		event.Outcome = OutcomeDropped
	default:
		event.Outcome = OutcomeOK
		if event.StateHash, err = ir.StateHash(h.store.GetState()); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	result.AddTrace(event)

	switch {
	case step.ExpectError == "" && event.Outcome == OutcomeError:
		result.AddError(fmt.Sprintf("steps[%d] (%s): unexpected error: %v", i, action.Type, dispatchErr))
	case step.ExpectError != "" && event.Outcome != OutcomeError:
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected %s error, dispatch succeeded", i, action.Type, step.ExpectError))
	case step.ExpectError != "" && step.ExpectError != event.Error:
		result.AddError(fmt.Sprintf("steps[%d] (%s): expected %s error, got %s: %v", i, action.Type, step.ExpectError, event.Error, dispatchErr))
	}
	return nil
}

// classifyError maps a dispatch error to its Step.ExpectError kind.
func classifyError(err error) string {
	switch {
	case engine.IsMalformedAction(err):
		return ErrKindMalformedAction
	case engine.IsUnexpectedStateShape(err):
		return ErrKindUnexpectedStateShape
	case middleware.IsSchemaViolation(err):
		return ErrKindSchemaViolation
	default:
		return ErrKindRejected
	}
}
