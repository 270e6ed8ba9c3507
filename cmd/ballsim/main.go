// cmd/ballsim/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/health"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/record"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render"
	ebitenrender "github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render/ebiten"
	engorender "github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render/engo"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/resource"
)

const (
	maxWindowWidth  = 1920
	maxWindowHeight = 1080

	// healthRequestsPerMinute limits each client of the health server.
	healthRequestsPerMinute = 120
)

func main() {
	logger := logging.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx = logging.WithRunID(ctx, "")

	err := run(ctx, os.Args[1:], os.Stdout, logger)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error(ctx, "ballsim failed", err)
		os.Exit(1)
	}
}

// options are the command line settings. Flags left unset keep the value
// from the config file and environment.
type options struct {
	configPath    string
	createDefault bool
	renderer      string
	strategy      string
	bodies        int
	ticks         int
	seed          uint64
	record        string
	grid          bool
	plain         bool
	set           map[string]bool
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("ballsim", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "ballsim.yaml", "Path to configuration file (.yaml, .yml or .json)")
	fs.BoolVar(&opts.createDefault, "default", false, "Create default configuration file and exit")
	fs.StringVar(&opts.renderer, "renderer", "", "Output: terminal, null, engo or ebiten")
	fs.StringVar(&opts.strategy, "strategy", "", "Broad phase: brute, sweep or quadtree")
	fs.IntVar(&opts.bodies, "bodies", 0, "Number of bodies")
	fs.IntVar(&opts.ticks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	fs.Uint64Var(&opts.seed, "seed", 0, "Population seed")
	fs.StringVar(&opts.record, "record", "", "Record every frame to this file")
	fs.BoolVar(&opts.grid, "grid", false, "Show the broad phase grid")
	fs.BoolVar(&opts.plain, "plain", false, "Do not clear the terminal between frames")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// apply overwrites cfg with the flags that were given.
func (o *options) apply(cfg *config.SimulationConfig) {
	if o.set["renderer"] {
		cfg.Render.Renderer = o.renderer
	}
	if o.set["strategy"] {
		cfg.BroadPhase.Strategy = o.strategy
	}
	if o.set["bodies"] {
		cfg.Population.Count = o.bodies
	}
	if o.set["ticks"] {
		cfg.Run.MaxTicks = o.ticks
	}
	if o.set["seed"] {
		seed := o.seed
		cfg.Population.Seed = &seed
	}
	if o.set["record"] {
		cfg.Run.RecordPath = o.record
	}
	if o.set["grid"] {
		cfg.Render.ShowGrid = o.grid
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, then applies environment and flag overrides and validates.
func loadConfig(ctx context.Context, opts *options, logger *logging.Logger) (*config.SimulationConfig, error) {
	var cfg *config.SimulationConfig
	if _, err := os.Stat(opts.configPath); errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", opts.configPath,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}

	config.ApplyEnvironmentOverrides(cfg)
	opts.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *logging.Logger) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	if opts.createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), opts.configPath); err != nil {
			return err
		}
		logger.Info(ctx, "Created default configuration file", "config_path", opts.configPath)
		return nil
	}

	cfg, err := loadConfig(ctx, opts, logger)
	if err != nil {
		return err
	}
	env, err := config.LoadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	manager := resource.NewManager(env, logger)
	if err := manager.Start(); err != nil {
		return err
	}

	var (
		guard     *render.GuardedSink
		closeSink = func() error { return nil }
	)
	runErr := func() error {
		switch cfg.Render.Renderer {
		case config.RendererEngo, config.RendererEbiten:
			if err := startHealthServer(ctx, env, sim, manager, nil, cfg, logger); err != nil {
				return err
			}
			if cfg.Run.RecordPath != "" {
				logger.Warn(ctx, "Recording is not supported with a window renderer", "renderer", cfg.Render.Renderer)
			}
			return runWindow(ctx, sim, cfg)
		}

		var sink engine.Sink
		sink, guard, closeSink, err = buildSink(cfg, env, stdout, opts.plain, sim, logger)
		if err != nil {
			return err
		}
		if err := startHealthServer(ctx, env, sim, manager, guard, cfg, logger); err != nil {
			return err
		}
		return runHeadless(ctx, sim, sink, manager)
	}()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), env.ShutdownTimeout)
	defer cancel()
	shutdownErr := errors.Join(manager.Shutdown(shutdownCtx), closeSink())

	if guard != nil {
		stats := guard.Stats()
		logger.Info(ctx, "Render sink summary",
			"presented", stats.Presented,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}
	return errors.Join(runErr, manager.Err(), shutdownErr)
}

// runHeadless runs the simulation loop on a tracked goroutine until it
// finishes or ctx is done. A failed run is reported by manager.Err.
func runHeadless(ctx context.Context, sim *engine.Simulation, sink engine.Sink, manager *resource.Manager) error {
	done := make(chan struct{})
	err := manager.Go(ctx, "simulation", func(ctx context.Context) error {
		defer close(done)
		return sim.Run(ctx, sink)
	})
	if err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		sim.Stop()
		<-done
	}
	return nil
}

// runWindow runs a window renderer on the calling goroutine.
func runWindow(ctx context.Context, sim *engine.Simulation, cfg *config.SimulationConfig) error {
	width, height := windowSize(sim.Arena())
	maxTicks := uint64(max(cfg.Run.MaxTicks, 0))

	if cfg.Render.Renderer == config.RendererEbiten {
		return ebitenrender.Run(ctx, sim, ebitenrender.Options{
			Title:    cfg.Render.Title,
			Width:    width,
			Height:   height,
			MaxTicks: maxTicks,
			ShowGrid: cfg.Render.ShowGrid,
		})
	}
	return engorender.Run(ctx, sim, engorender.Options{
		Title:        cfg.Render.Title,
		Width:        width,
		Height:       height,
		MaxTicks:     maxTicks,
		GridCellSize: cfg.BroadPhase.CellSize,
		ShowGrid:     cfg.Render.ShowGrid,
		MinRadius:    cfg.Population.MinRadius,
		MaxRadius:    cfg.Population.MaxRadius,
	})
}

// windowSize scales arena down to fit the largest window, keeping its
// aspect ratio.
func windowSize(arena physics.Arena) (int, int) {
	scale := math.Min(1, math.Min(maxWindowWidth/arena.Width, maxWindowHeight/arena.Height))
	return max(1, int(arena.Width*scale)), max(1, int(arena.Height*scale))
}

// teeSink presents every frame to each sink in order and stops at the first
// error.
type teeSink []engine.Sink

func (t teeSink) Present(tick uint64, bodies []physics.Body) error {
	for _, s := range t {
		if err := s.Present(tick, bodies); err != nil {
			return err
		}
	}
	return nil
}

// buildSink creates the display sink behind a circuit breaker and, when
// configured, a recorder whose failures end the run. The returned close
// function flushes the recording.
func buildSink(cfg *config.SimulationConfig, env *config.EnvironmentConfig, stdout io.Writer, plain bool, sim *engine.Simulation, logger *logging.Logger) (engine.Sink, *render.GuardedSink, func() error, error) {
	var renderer render.Renderer
	switch cfg.Render.Renderer {
	case config.RendererNull:
		renderer = render.NewNullRenderer(logger)
	case config.RendererTerminal:
		var topts []render.TerminalOption
		if cfg.Render.ShowGrid {
			topts = append(topts, render.WithGrid(cfg.BroadPhase.CellSize))
		}
		if plain || plainOutput(stdout) {
			topts = append(topts, render.WithoutANSI())
		}
		renderer = render.NewTerminalRenderer(stdout, cfg.Render.Columns, cfg.Render.Rows, sim.Arena(), topts...)
	default:
		return nil, nil, nil, fmt.Errorf("unknown renderer %q", cfg.Render.Renderer)
	}

	guard := render.NewGuardedSink(render.NewFrameSink(renderer, render.SimulationStatus(sim)), env, logger)
	if cfg.Run.RecordPath == "" {
		return guard, guard, func() error { return nil }, nil
	}

	rec, err := record.Create(cfg.Run.RecordPath, record.HeaderFor(sim))
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info(context.Background(), "Recording frames", "path", cfg.Run.RecordPath)
	return teeSink{rec, guard}, guard, rec.Close, nil
}

// plainOutput reports whether out is not a terminal.
func plainOutput(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	info, err := f.Stat()
	return err != nil || info.Mode()&os.ModeCharDevice == 0
}

// startHealthServer serves /health, /ready and /status on env.HealthAddr
// under the resource manager. It does nothing when no address is set.
func startHealthServer(ctx context.Context, env *config.EnvironmentConfig, sim *engine.Simulation, manager *resource.Manager, guard *render.GuardedSink, cfg *config.SimulationConfig, logger *logging.Logger) error {
	if env.HealthAddr == "" {
		return nil
	}

	checker := health.NewHealthChecker()
	checker.AddCheck(health.NewSimulationHealthCheck(sim.Running))
	checker.AddCheck(health.NewStateHealthCheck(sim, 2*cfg.Population.MaxRadius))
	checker.AddCheck(resource.NewHealthCheck(manager))
	if guard != nil {
		checker.AddCheck(health.NewCheckFunc("sink", guard.Check))
	}

	status := func() any {
		st := map[string]any{
			"tick":      sim.Tick(),
			"bodies":    sim.Len(),
			"strategy":  sim.BroadPhase().Name(),
			"seed":      sim.Seed(),
			"rate":      sim.Rate(),
			"running":   sim.Running(),
			"stats":     sim.Stats(),
			"resources": manager.Stats(),
		}
		if guard != nil {
			st["sink"] = guard.Stats()
		}
		return st
	}

	return manager.Go(ctx, "health", func(ctx context.Context) error {
		limiter := health.NewRateLimiter(healthRequestsPerMinute, time.Minute)
		defer limiter.Close()
		handler := health.RateLimit(checker.Handler(status), limiter)
		return health.Serve(ctx, env.HealthAddr, handler, env.ShutdownTimeout, logger)
	})
}
