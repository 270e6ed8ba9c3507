// pkg/render/guard_test.go
package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

func breakerEnv() *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		SinkBreakerMaxRequests:         1,
		SinkBreakerInterval:            time.Minute,
		SinkBreakerTimeout:             50 * time.Millisecond,
		SinkBreakerMaxConsecutiveFails: 3,
	}
}

// flakySink fails while failing is set.
type flakySink struct {
	failing atomic.Bool
	calls   atomic.Int64
}

func (f *flakySink) Present(uint64, []physics.Body) error {
	f.calls.Add(1)
	if f.failing.Load() {
		return errors.New("display unavailable")
	}
	return nil
}

func TestGuardedSink_Present_PassesFramesThrough(t *testing.T) {
	inner := &flakySink{}
	g := NewGuardedSink(inner, breakerEnv(), logging.Discard())

	for tick := uint64(1); tick <= 10; tick++ {
		if err := g.Present(tick, nil); err != nil {
			t.Fatalf("Present() error: %v", err)
		}
	}

	stats := g.Stats()
	if stats.Presented != 10 || stats.Failed != 0 || stats.Dropped != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if g.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v, expected closed", g.State())
	}
}

func TestGuardedSink_Present_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySink{}
	inner.failing.Store(true)
	g := NewGuardedSink(inner, breakerEnv(), logging.Discard())

	for tick := uint64(1); tick <= 8; tick++ {
		if err := g.Present(tick, nil); err != nil {
			t.Fatalf("Present() error = %v, failures must not end the run", err)
		}
	}

	stats := g.Stats()
	if stats.Failed != 3 || stats.Dropped != 5 {
		t.Errorf("stats = %+v, expected 3 failed and 5 dropped", stats)
	}
	if inner.calls.Load() != 3 {
		t.Errorf("sink called %d times, expected 3", inner.calls.Load())
	}
	if g.State() != gobreaker.StateOpen {
		t.Errorf("State() = %v, expected open", g.State())
	}
	if err := g.Check(context.Background()); err == nil {
		t.Error("Check() should fail while the breaker is open")
	}

	// After the timeout a trial frame closes the breaker again.
	inner.failing.Store(false)
	time.Sleep(80 * time.Millisecond)
	g.Present(9, nil)

	if g.State() != gobreaker.StateClosed {
		t.Errorf("State() = %v after a successful trial, expected closed", g.State())
	}
	if err := g.Check(context.Background()); err != nil {
		t.Errorf("Check() error = %v after recovery", err)
	}
}

func TestGuardedSink_KeepsRunAlive(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Population.Count = 10
	cfg.Run.MaxTicks = 20
	cfg.Run.TicksPerSecond = 0
	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	inner := &flakySink{}
	inner.failing.Store(true)
	if err := sim.Run(context.Background(), NewGuardedSink(inner, breakerEnv(), logging.Discard())); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sim.Tick() != 20 {
		t.Errorf("Tick() = %d, expected 20", sim.Tick())
	}
}
