// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Button names registered with engo.Input.
const (
	buttonPause = "pause"
	buttonStep  = "step"
	buttonGrid  = "grid"
	buttonQuit  = "quit"
	buttonReset = "resetZoom"
)

// registerButtons binds the keyboard controls.
func registerButtons() {
	engo.Input.RegisterButton(buttonPause, engo.KeySpace)
	engo.Input.RegisterButton(buttonStep, engo.KeyN)
	engo.Input.RegisterButton(buttonGrid, engo.KeyG)
	engo.Input.RegisterButton(buttonQuit, engo.KeyEscape, engo.KeyQ)
	engo.Input.RegisterButton(buttonReset, engo.KeyR)
}

// gridLine is one grid line drawn as a thin rectangle.
type gridLine struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent

	vertical bool
	at       float64
}

// GridOverlay draws the broad phase cell boundaries.
type GridOverlay struct {
	arena   physics.Arena
	lines   []*gridLine
	visible bool
}

// gridLines returns the interior multiples of cell below size.
func gridLines(size, cell float64) []float64 {
	if cell <= 0 {
		return nil
	}
	var at []float64
	for x := cell; x < size; x += cell {
		at = append(at, x)
	}
	return at
}

// newGridOverlay creates hidden grid lines every cell units. system may be
// nil.
func newGridOverlay(arena physics.Arena, cell float64, viewport *Viewport, system *common.RenderSystem) *GridOverlay {
	g := &GridOverlay{arena: arena}
	add := func(vertical bool, at float64) {
		line := &gridLine{BasicEntity: ecs.NewBasic(), vertical: vertical, at: at}
		line.RenderComponent = common.RenderComponent{Drawable: common.Rectangle{}, Color: gridColor, Hidden: true}
		g.lines = append(g.lines, line)
		if system != nil {
			system.Add(&line.BasicEntity, &line.RenderComponent, &line.SpaceComponent)
		}
	}
	for _, x := range gridLines(arena.Width, cell) {
		add(true, x)
	}
	for _, y := range gridLines(arena.Height, cell) {
		add(false, y)
	}
	g.Layout(viewport)
	return g
}

// Layout positions the lines for viewport.
func (g *GridOverlay) Layout(viewport *Viewport) {
	for _, line := range g.lines {
		if line.vertical {
			line.SpaceComponent.Position = viewport.WorldToScreen(physics.Vector2D{X: line.at})
			line.SpaceComponent.Width = 1
			line.SpaceComponent.Height = float32(g.arena.Height * viewport.Scale())
		} else {
			line.SpaceComponent.Position = viewport.WorldToScreen(physics.Vector2D{Y: line.at})
			line.SpaceComponent.Width = float32(g.arena.Width * viewport.Scale())
			line.SpaceComponent.Height = 1
		}
	}
}

// SetVisible shows or hides the grid.
func (g *GridOverlay) SetVisible(visible bool) {
	g.visible = visible
	for _, line := range g.lines {
		line.RenderComponent.Hidden = !visible
	}
}

// Toggle flips the grid visibility.
func (g *GridOverlay) Toggle() {
	g.SetVisible(!g.visible)
}

// InputSystem maps keys to simulation and view controls: Space pauses,
// N steps once while paused, G toggles the grid, the mouse wheel zooms,
// R resets the zoom and Escape or Q quits.
type InputSystem struct {
	sim      *SimulationSystem
	grid     *GridOverlay
	viewport *Viewport
	hud      *HUDSystem
}

// NewInputSystem creates the input system.
func NewInputSystem(sim *SimulationSystem, grid *GridOverlay, viewport *Viewport, hud *HUDSystem) *InputSystem {
	return &InputSystem{sim: sim, grid: grid, viewport: viewport, hud: hud}
}

// Update processes the buttons pressed this frame.
func (is *InputSystem) Update(dt float32) {
	if engo.Input.Button(buttonQuit).JustPressed() {
		is.sim.Quit()
		return
	}
	if engo.Input.Button(buttonPause).JustPressed() {
		is.sim.TogglePause()
		is.hud.SetPaused(is.sim.Paused())
	}
	if engo.Input.Button(buttonStep).JustPressed() {
		is.sim.RequestStep()
	}
	if engo.Input.Button(buttonGrid).JustPressed() {
		is.grid.Toggle()
	}

	zoom := is.viewport.Zoom()
	if scroll := engo.Input.Mouse.ScrollY; scroll != 0 {
		is.viewport.SetZoom(zoom * (1 + float64(scroll)*0.1))
	}
	if engo.Input.Button(buttonReset).JustPressed() {
		is.viewport.SetZoom(1)
	}
	if is.viewport.Zoom() != zoom {
		is.grid.Layout(is.viewport)
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}
