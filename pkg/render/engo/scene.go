// pkg/render/engo/scene.go
package engo

import (
	"context"
	"fmt"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render"
)

// Options configures the window.
type Options struct {
	Title  string
	Width  int
	Height int
	// MaxTicks closes the window after this many ticks; 0 runs until closed.
	MaxTicks uint64
	// GridCellSize is the spacing of the grid overlay; 0 disables it.
	GridCellSize float64
	ShowGrid     bool
	MinRadius    float64
	MaxRadius    float64
	Logger       *logging.Logger
}

// SimulationSystem steps the simulation once per frame and hands every
// frame to a sink. It closes the window when the context is done, the tick
// limit is reached or the sink fails.
type SimulationSystem struct {
	ctx       context.Context
	sim       *engine.Simulation
	sink      engine.Sink
	startTick uint64
	maxTicks  uint64
	exit      func()

	paused   bool
	stepOnce bool
	quit     bool
	done     bool
	err      error
}

// NewSimulationSystem creates the system. maxTicks counts from the
// simulation's current tick.
func NewSimulationSystem(ctx context.Context, sim *engine.Simulation, sink engine.Sink, maxTicks uint64) *SimulationSystem {
	return &SimulationSystem{
		ctx:       ctx,
		sim:       sim,
		sink:      sink,
		startTick: sim.Tick(),
		maxTicks:  maxTicks,
		exit:      engo.Exit,
	}
}

// Update advances one tick unless paused, then presents the bodies.
func (s *SimulationSystem) Update(dt float32) {
	if s.done {
		return
	}
	if s.quit || s.ctx.Err() != nil || (s.maxTicks > 0 && s.sim.Tick()-s.startTick >= s.maxTicks) {
		s.done = true
		s.exit()
		return
	}

	if !s.paused || s.stepOnce {
		s.stepOnce = false
		s.sim.Step()
	}
	s.sim.View(func(tick uint64, bodies []physics.Body) {
		if err := s.sink.Present(tick, bodies); err != nil {
			s.err = fmt.Errorf("present tick %d: %w", tick, err)
			s.quit = true
		}
	})
}

// Remove satisfies the ecs.System interface
func (s *SimulationSystem) Remove(basic ecs.BasicEntity) {}

// TogglePause pauses or resumes ticking.
func (s *SimulationSystem) TogglePause() { s.paused = !s.paused }

// Paused reports whether ticking is paused.
func (s *SimulationSystem) Paused() bool { return s.paused }

// RequestStep advances one tick on the next frame while paused.
func (s *SimulationSystem) RequestStep() { s.stepOnce = true }

// Quit closes the window on the next frame.
func (s *SimulationSystem) Quit() { s.quit = true }

// Err returns the sink error that closed the window, if any.
func (s *SimulationSystem) Err() error { return s.err }

// Scene is the engo scene showing one simulation.
type Scene struct {
	ctx    context.Context
	sim    *engine.Simulation
	opts   Options
	logger *logging.Logger

	system *SimulationSystem
}

// NewScene creates a scene for sim.
func NewScene(ctx context.Context, sim *engine.Simulation, opts Options) *Scene {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Scene{ctx: ctx, sim: sim, opts: opts, logger: logger.With("component", "engo")}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "BallsimScene"
}

// Preload is called before the scene starts (required by Engo)
func (scene *Scene) Preload() {}

// Setup builds the world: render system, grid, bodies, HUD and input.
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(backgroundColor)

	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	registerButtons()

	viewport := NewViewport(scene.sim.Arena(), float64(engo.GameWidth()), float64(engo.GameHeight()))

	hud := NewHUDSystem()
	if font, err := loadFont(16); err != nil {
		scene.logger.Warn(scene.ctx, "HUD disabled", "error", err)
	} else {
		hud.attach(renderSystem, font)
	}

	grid := newGridOverlay(scene.sim.Arena(), scene.opts.GridCellSize, viewport, renderSystem)
	grid.SetVisible(scene.opts.ShowGrid)

	renderer := NewRenderer(renderSystem, viewport, NewPalette(scene.opts.MinRadius, scene.opts.MaxRadius), hud)
	sink := render.NewFrameSink(renderer, render.SimulationStatus(scene.sim))
	scene.system = NewSimulationSystem(scene.ctx, scene.sim, sink, scene.opts.MaxTicks)

	world.AddSystem(scene.system)
	world.AddSystem(NewInputSystem(scene.system, grid, viewport, hud))
	world.AddSystem(hud)
}

// Err returns the error that closed the window, if any.
func (scene *Scene) Err() error {
	if scene.system == nil {
		return nil
	}
	return scene.system.Err()
}

// Run opens a window and runs the simulation in it until the window is
// closed, ctx is done or the tick limit is reached. It must be called from
// the main goroutine.
func Run(ctx context.Context, sim *engine.Simulation, opts Options) error {
	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()

	scene := NewScene(ctx, sim, opts)
	engo.Run(engo.RunOptions{
		Title:          opts.Title,
		Width:          opts.Width,
		Height:         opts.Height,
		StandardInputs: false,
		FPSLimit:       60,
	}, scene)
	return scene.Err()
}
