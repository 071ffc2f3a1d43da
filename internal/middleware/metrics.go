package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

var defaultBuckets = []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1}

// Metrics holds the dispatch collectors. Create one per registry with
// NewMetrics and attach it to stores with Instrument.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
}

// NewMetrics creates the dispatch collectors and registers them with reg.
// Panics if they are already registered, like prometheus.MustRegister.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statecell_dispatch_total",
			Help: "Total number of dispatched actions by outcome",
		}, []string{"type", "outcome"}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statecell_dispatch_duration_seconds",
			Help:    "Dispatch time in seconds, including listeners",
			Buckets: defaultBuckets,
		}, []string{"type"}),
	}

	reg.MustRegister(m.dispatchTotal, m.dispatchDuration)
	return m
}

// Instrument counts every dispatch that passes through it and observes its
// duration. Outcome is "ok" or "error".
func Instrument[S any](m *Metrics) engine.Middleware[S] {
	return func(engine.MiddlewareAPI[S]) func(engine.Dispatch) engine.Dispatch {
		return func(next engine.Dispatch) engine.Dispatch {
			return func(action ir.Action) (any, error) {
				start := time.Now()
				result, err := next(action)
				m.dispatchDuration.WithLabelValues(action.Type).Observe(time.Since(start).Seconds())
				m.dispatchTotal.WithLabelValues(action.Type, outcome(err)).Inc()
				return result, err
			}
		}
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
