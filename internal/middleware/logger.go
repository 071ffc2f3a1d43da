package middleware

import (
	"log/slog"
	"time"

	"github.com/roach88/statecell/internal/engine"
	"github.com/roach88/statecell/internal/ir"
)

// Logger logs each action before it reaches the next dispatch and the
// outcome afterwards. Failed dispatches log at Warn with the error.
func Logger[S any](logger *slog.Logger) engine.Middleware[S] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(engine.MiddlewareAPI[S]) func(engine.Dispatch) engine.Dispatch {
		return func(next engine.Dispatch) engine.Dispatch {
			return func(action ir.Action) (any, error) {
				logger.Debug("dispatching action", "type", action.Type)

				start := time.Now()
				result, err := next(action)
				elapsed := time.Since(start)

				if err != nil {
					logger.Warn("dispatch failed",
						"type", action.Type,
						"duration", elapsed,
						"error", err,
					)
					return result, err
				}

				logger.Info("action dispatched",
					"type", action.Type,
					"duration", elapsed,
				)
				return result, nil
			}
		}
	}
}
