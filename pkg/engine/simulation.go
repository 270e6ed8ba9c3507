// pkg/engine/simulation.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/event"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// ErrAlreadyRunning is returned by Start and Run while a run is in progress.
var ErrAlreadyRunning = errors.New("simulation already running")

// Reasons reported in SimulationStopped events.
const (
	StopReasonMaxTicks  = "max_ticks"
	StopReasonStopped   = "stopped"
	StopReasonCanceled  = "canceled"
	StopReasonSinkError = "sink_error"
)

// Sink receives the bodies after every tick. The slice is only valid for
// the duration of the call.
type Sink interface {
	Present(tick uint64, bodies []physics.Body) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tick uint64, bodies []physics.Body) error

// Present calls f.
func (f SinkFunc) Present(tick uint64, bodies []physics.Body) error {
	return f(tick, bodies)
}

// Option customizes a Simulation.
type Option func(*Simulation)

// WithRand sets the random source used to create the population.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) { s.rng = rng }
}

// WithBodies uses a copy of bodies instead of a random population.
func WithBodies(bodies []physics.Body) Option {
	return func(s *Simulation) { s.bodies = append([]physics.Body{}, bodies...) }
}

// WithBroadPhase uses bp instead of the configured strategy.
func WithBroadPhase(bp broadphase.BroadPhase) Option {
	return func(s *Simulation) { s.bp = bp }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithEventBus publishes events on bus instead of a private bus.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Simulation) { s.bus = bus }
}

// WithClock sets the time source of the rate meter.
func WithClock(clock Clock) Option {
	return func(s *Simulation) { s.clock = clock }
}

// Simulation owns a population of bodies and advances it one tick at a time.
//
// Ticks run on a single goroutine. The lock only lets other goroutines
// (health checks, window renderers) read consistent snapshots between ticks.
type Simulation struct {
	mu      sync.RWMutex
	bodies  []physics.Body
	arena   physics.Arena
	bp      broadphase.BroadPhase
	stepper stepper
	tick    uint64
	stats   StepStats

	seed         uint64
	rng          *rand.Rand
	maxTicks     uint64
	tickInterval time.Duration

	running       atomic.Bool
	looping       atomic.Bool
	stopRequested atomic.Bool
	lastRejected  int
	collided      []broadphase.Pair

	logger *logging.Logger
	bus    *event.Bus
	clock  Clock
	rate   *RateMeter
}

// NewSimulation validates cfg and builds the arena, the broad phase and the
// population. A nil cfg selects config.DefaultConfig. Without WithRand the
// population is drawn from a PCG source seeded with cfg.Population.Seed, or
// a random seed when that is unset.
func NewSimulation(cfg *config.SimulationConfig, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, logging.WrapError(err, "invalid simulation config")
	}

	arena, err := physics.NewArena(cfg.Arena.Width, cfg.Arena.Height)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		arena:    arena,
		maxTicks: uint64(cfg.Run.MaxTicks),
		clock:    SystemClock{},
		rate:     NewRateMeter(DefaultRateWindow),
	}
	if cfg.Run.TicksPerSecond > 0 {
		s.tickInterval = time.Duration(float64(time.Second) / cfg.Run.TicksPerSecond)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}
	s.logger = s.logger.With("component", "engine")
	if s.bus == nil {
		s.bus = event.NewEventBus()
	}

	if s.bp == nil {
		if s.bp, err = broadphase.New(cfg.BroadPhase.Options()); err != nil {
			return nil, err
		}
	}

	if s.bodies == nil {
		if s.rng == nil {
			s.seed = rand.Uint64()
			if cfg.Population.Seed != nil {
				s.seed = *cfg.Population.Seed
			}
			s.rng = rand.New(rand.NewPCG(s.seed, s.seed))
		}
		s.bodies, err = CreatePopulation(
			cfg.Population.Count,
			arena,
			Range{Min: cfg.Population.MinRadius, Max: cfg.Population.MaxRadius},
			Range{Min: cfg.Population.MinSpeed, Max: cfg.Population.MaxSpeed},
			s.rng,
		)
		if err != nil {
			return nil, logging.WrapError(err, "failed to create population")
		}
	}
	for i := range s.bodies {
		if r := s.bodies[i].Radius; !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: body %d has radius %v", ErrInvalidRadius, i, r)
		}
	}

	return s, nil
}

// Step advances the simulation by one tick and publishes TickCompleted,
// plus one BodiesCollided per resolved pair when anyone listens for them.
// Step must not be called concurrently with itself or Run.
func (s *Simulation) Step() StepStats {
	var onResolved func(broadphase.Pair)
	s.collided = s.collided[:0]
	if s.bus.HasSubscribers(event.BodiesCollided) {
		onResolved = func(p broadphase.Pair) { s.collided = append(s.collided, p) }
	}

	s.mu.Lock()
	stats := s.stepper.step(s.bodies, s.arena, s.bp, onResolved)
	s.tick++
	s.stats = stats
	tick := s.tick
	s.mu.Unlock()

	s.rate.Tick(s.clock.Now())
	s.checkBroadPhase(tick)

	for _, p := range s.collided {
		s.bus.Publish(event.NewCollisionEvent(s, tick, s.bodies[p.A].ID, s.bodies[p.B].ID))
	}
	s.bus.Publish(event.NewTickEvent(s, tick, stats.Candidates, stats.Distinct, stats.Resolved))
	return stats
}

// checkBroadPhase warns when the legacy quadtree starts or stops dropping bodies.
func (s *Simulation) checkBroadPhase(tick uint64) {
	qt, ok := s.bp.(*broadphase.QuadtreeBroadPhase)
	if !ok || qt.Rejected() == s.lastRejected {
		return
	}
	s.lastRejected = qt.Rejected()
	s.logger.Warn(context.Background(), "Bodies outside quadtree root",
		"tick", tick,
		"rejected", s.lastRejected,
	)
}

// Start marks the simulation running and publishes SimulationStarted. It is
// used directly by renderers that drive Step from their own loop.
func (s *Simulation) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.logger.Info(ctx, "Simulation started",
		"bodies", s.Len(),
		"strategy", s.bp.Name(),
		"seed", s.seed,
		"max_ticks", s.maxTicks,
		"tick_interval", s.tickInterval,
	)
	s.bus.Publish(event.NewSimulationEvent(event.SimulationStarted, s, s.Tick(), s.Len(), s.bp.Name(), ""))
	return nil
}

// Stop ends the current run. A Run loop stops at the next tick boundary;
// a run begun with Start ends immediately.
func (s *Simulation) Stop() {
	if s.looping.Load() {
		s.stopRequested.Store(true)
		return
	}
	s.finish(context.Background(), StopReasonStopped)
}

func (s *Simulation) finish(ctx context.Context, reason string) {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.stopRequested.Store(false)
	s.logger.Info(ctx, "Simulation stopped",
		"tick", s.Tick(),
		"reason", reason,
		"rate", s.rate.Rate(),
	)
	s.bus.Publish(event.NewSimulationEvent(event.SimulationStopped, s, s.Tick(), s.Len(), s.bp.Name(), reason))
}

// Run ticks until the configured tick limit is reached, Stop is called or
// ctx is done, handing the bodies to sink after every tick. A nil sink
// discards frames. With a tick rate configured, ticks are paced by a
// ticker; otherwise they run back to back.
//
// Run returns nil when the tick limit or Stop ended it, ctx.Err() when the
// context did, and the wrapped sink error when presenting a frame failed.
func (s *Simulation) Run(ctx context.Context, sink Sink) (err error) {
	if logging.GetRunID(ctx) == "" {
		ctx = logging.WithRunID(ctx, "")
	}
	if !s.looping.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.looping.Store(false)
	s.stopRequested.Store(false)
	if err := s.Start(ctx); err != nil {
		return err
	}

	reason := StopReasonStopped
	defer func() { s.finish(ctx, reason) }()

	var pace <-chan time.Time
	if s.tickInterval > 0 {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		pace = ticker.C
	}

	startTick := s.Tick()
	for {
		if s.maxTicks > 0 && s.Tick()-startTick >= s.maxTicks {
			reason = StopReasonMaxTicks
			return nil
		}
		if s.stopRequested.Load() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			reason = StopReasonCanceled
			return err
		}

		s.Step()
		if sink != nil {
			if err := s.present(sink); err != nil {
				reason = StopReasonSinkError
				s.logger.Error(ctx, "Render sink failed", err, "tick", s.Tick())
				return fmt.Errorf("present tick %d: %w", s.Tick(), err)
			}
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				reason = StopReasonCanceled
				return ctx.Err()
			case <-pace:
			}
		}
	}
}

func (s *Simulation) present(sink Sink) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sink.Present(s.tick, s.bodies)
}

// View calls fn with the current tick and bodies under the read lock. fn
// must not retain or modify the slice.
func (s *Simulation) View(fn func(tick uint64, bodies []physics.Body)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.tick, s.bodies)
}

// Snapshot returns a copy of the bodies.
func (s *Simulation) Snapshot() []physics.Body {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]physics.Body(nil), s.bodies...)
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Stats returns the pair counts of the last tick.
func (s *Simulation) Stats() StepStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Len returns the population size.
func (s *Simulation) Len() int {
	return len(s.bodies)
}

// Running reports whether a run is in progress.
func (s *Simulation) Running() bool {
	return s.running.Load()
}

// Arena returns the arena.
func (s *Simulation) Arena() physics.Arena {
	return s.arena
}

// BroadPhase returns the strategy in use.
func (s *Simulation) BroadPhase() broadphase.BroadPhase {
	return s.bp
}

// EventBus returns the bus events are published on.
func (s *Simulation) EventBus() *event.Bus {
	return s.bus
}

// Seed returns the seed the population was drawn with, or 0 when the
// random source or bodies were supplied by an option.
func (s *Simulation) Seed() uint64 {
	return s.seed
}

// Rate returns the measured ticks per second.
func (s *Simulation) Rate() float64 {
	return s.rate.Rate()
}
