// pkg/render/guard.go
package render

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sony/gobreaker"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// GuardedSink passes frames to a sink through a circuit breaker. Failed
// frames are logged and dropped instead of ending the run; after too many
// consecutive failures the breaker opens and frames are dropped without
// calling the sink until the breaker's timeout lets a trial frame through.
type GuardedSink struct {
	sink    engine.Sink
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger

	presented atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

var _ engine.Sink = (*GuardedSink)(nil)

// NewGuardedSink wraps sink with a breaker configured from env.
func NewGuardedSink(sink engine.Sink, env *config.EnvironmentConfig, logger *logging.Logger) *GuardedSink {
	if logger == nil {
		logger = logging.NewLogger()
	}
	logger = logger.With("component", "sink")

	settings := gobreaker.Settings{
		Name:        "render-sink",
		MaxRequests: env.SinkBreakerMaxRequests,
		Interval:    env.SinkBreakerInterval,
		Timeout:     env.SinkBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= env.SinkBreakerMaxConsecutiveFails
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &GuardedSink{
		sink:    sink,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Present implements engine.Sink. It always returns nil.
func (g *GuardedSink) Present(tick uint64, bodies []physics.Body) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, g.sink.Present(tick, bodies)
	})
	switch {
	case err == nil:
		g.presented.Add(1)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.dropped.Add(1)
	default:
		g.failed.Add(1)
		g.logger.Warn(context.Background(), "Frame dropped",
			"tick", tick,
			"error", err,
			"state", g.breaker.State().String(),
		)
	}
	return nil
}

// State returns the breaker state.
func (g *GuardedSink) State() gobreaker.State {
	return g.breaker.State()
}

// SinkStats counts frames by outcome.
type SinkStats struct {
	Presented uint64 `json:"presented"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	State     string `json:"state"`
}

// Stats returns the frame counters.
func (g *GuardedSink) Stats() SinkStats {
	return SinkStats{
		Presented: g.presented.Load(),
		Failed:    g.failed.Load(),
		Dropped:   g.dropped.Load(),
		State:     g.State().String(),
	}
}

// Check fails while the breaker is open, for use as a health check.
func (g *GuardedSink) Check(ctx context.Context) error {
	if state := g.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("render sink circuit breaker is %s", state)
	}
	return nil
}
