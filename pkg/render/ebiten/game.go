// pkg/render/ebiten/game.go
package ebiten

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
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
	// GridCellSize is the spacing of the grid overlay. 0 takes the cell
	// size of a sweep broad phase and otherwise disables the grid. With a
	// sweep broad phase the overlay also shades the occupied cells.
	GridCellSize float64
	ShowGrid     bool
}

// Input reports keys pressed since the last frame.
type Input interface {
	JustPressed(key ebiten.Key) bool
}

type keyboard struct{}

func (keyboard) JustPressed(key ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(key)
}

// Game is the ebiten.Game stepping the simulation once per frame. Space
// pauses, N steps once while paused, G toggles the grid and Escape or Q
// quits.
type Game struct {
	ctx      context.Context
	sim      *engine.Simulation
	renderer *Renderer
	sink     engine.Sink
	input    Input

	startTick uint64
	maxTicks  uint64
	gridCell  float64
	grid      *broadphase.UniformGrid
	showGrid  bool

	paused   bool
	stepOnce bool
	err      error
}

var _ ebiten.Game = (*Game)(nil)

// NewGame creates a game drawing sim into a window of opts.Width x
// opts.Height.
func NewGame(ctx context.Context, sim *engine.Simulation, opts Options) *Game {
	cell := opts.GridCellSize
	var grid *broadphase.UniformGrid
	if sweep, ok := sim.BroadPhase().(*broadphase.SweepAndPrune); ok {
		grid = sweep.Grid()
		if cell == 0 {
			cell = grid.CellSize()
		}
	}
	r := NewRenderer(sim.Arena(), opts.Width, opts.Height)
	return &Game{
		ctx:       ctx,
		sim:       sim,
		renderer:  r,
		sink:      render.NewFrameSink(r, render.SimulationStatus(sim)),
		input:     keyboard{},
		startTick: sim.Tick(),
		maxTicks:  opts.MaxTicks,
		gridCell:  cell,
		grid:      grid,
		showGrid:  opts.ShowGrid,
	}
}

// Update implements ebiten.Game. It returns ebiten.Termination when the
// window should close.
func (g *Game) Update() error {
	if g.input.JustPressed(ebiten.KeyEscape) || g.input.JustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if g.maxTicks > 0 && g.sim.Tick()-g.startTick >= g.maxTicks {
		return ebiten.Termination
	}

	if g.input.JustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
		g.renderer.paused = g.paused
	}
	if g.input.JustPressed(ebiten.KeyN) {
		g.stepOnce = true
	}
	if g.input.JustPressed(ebiten.KeyG) {
		g.showGrid = !g.showGrid
	}

	if !g.paused || g.stepOnce {
		g.stepOnce = false
		g.sim.Step()
	}

	var err error
	g.sim.View(func(tick uint64, bodies []physics.Body) {
		if perr := g.sink.Present(tick, bodies); perr != nil {
			err = fmt.Errorf("present tick %d: %w", tick, perr)
		}
	})
	if err != nil {
		g.err = err
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	r := g.renderer

	if g.showGrid {
		for _, c := range g.occupiedCells() {
			vector.DrawFilledRect(screen, c.X, c.Y, c.W, c.H, cellColor, false)
		}
		w := float32(r.arena.Width * r.scale)
		h := float32(r.arena.Height * r.scale)
		for _, x := range r.gridLines(r.arena.Width, g.gridCell) {
			vector.StrokeLine(screen, x, 0, x, h, 1, gridColor, false)
		}
		for _, y := range r.gridLines(r.arena.Height, g.gridCell) {
			vector.StrokeLine(screen, 0, y, w, y, 1, gridColor, false)
		}
	}

	for _, c := range r.frame {
		vector.DrawFilledCircle(screen, c.X, c.Y, c.R, bodyColor, true)
	}

	ebitenutil.DebugPrint(screen, r.Text())
}

// occupiedCells returns the screen rectangles of the broad phase grid
// cells holding bodies as of the last tick.
func (g *Game) occupiedCells() []rect {
	if g.grid == nil {
		return nil
	}
	var cells []rect
	g.grid.Each(func(c broadphase.Cell, _ []int) {
		cells = append(cells, g.renderer.cellRect(c, g.grid.CellSize()))
	})
	return cells
}

// Layout implements ebiten.Game.
func (g *Game) Layout(_, _ int) (int, int) {
	return g.renderer.width, g.renderer.height
}

// Err returns the sink error that closed the window, if any.
func (g *Game) Err() error {
	return g.err
}

// Run opens a window and runs the simulation in it until the window is
// closed, ctx is done or the tick limit is reached. It must be called from
// the main goroutine.
func Run(ctx context.Context, sim *engine.Simulation, opts Options) error {
	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()

	game := NewGame(ctx, sim, opts)
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowTitle(opts.Title)
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("ebiten: %w", err)
	}
	return game.Err()
}
