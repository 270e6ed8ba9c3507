// pkg/render/engo/renderer.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render"
)

// bodyEntity is the drawable of one body.
type bodyEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// Renderer implements render.Renderer with one circle entity per body.
// Entities are kept across frames and updated in place; bodies missing from
// a frame lose their entity at Present.
type Renderer struct {
	system   *common.RenderSystem
	viewport *Viewport
	palette  Palette
	hud      *HUDSystem

	bodies map[int]*bodyEntity
	seen   map[int]bool
}

var _ render.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer adding its entities to system. hud may be
// nil.
func NewRenderer(system *common.RenderSystem, viewport *Viewport, palette Palette, hud *HUDSystem) *Renderer {
	return &Renderer{
		system:   system,
		viewport: viewport,
		palette:  palette,
		hud:      hud,
		bodies:   make(map[int]*bodyEntity),
		seen:     make(map[int]bool),
	}
}

// Clear implements render.Renderer.
func (r *Renderer) Clear() {
	clear(r.seen)
}

// RenderBody implements render.Renderer.
func (r *Renderer) RenderBody(b *physics.Body) {
	e, ok := r.bodies[b.ID]
	if !ok {
		e = &bodyEntity{BasicEntity: ecs.NewBasic()}
		e.RenderComponent = common.RenderComponent{Drawable: common.Circle{}}
		r.bodies[b.ID] = e
		if r.system != nil {
			r.system.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
		}
	}
	r.seen[b.ID] = true

	size := float32(2 * b.Radius * r.viewport.Scale())
	e.SpaceComponent.Position = r.viewport.WorldToScreen(physics.Vector2D{
		X: b.Position.X - b.Radius,
		Y: b.Position.Y - b.Radius,
	})
	e.SpaceComponent.Width = size
	e.SpaceComponent.Height = size
	e.RenderComponent.Color = r.palette.Color(b.Radius)
}

// Present implements render.Renderer. Drawing itself happens in engo's
// render system after the frame's systems have run.
func (r *Renderer) Present(status render.Status) error {
	for id, e := range r.bodies {
		if r.seen[id] {
			continue
		}
		if r.system != nil {
			r.system.Remove(e.BasicEntity)
		}
		delete(r.bodies, id)
	}
	if r.hud != nil {
		r.hud.SetStatus(status)
	}
	return nil
}

// Len returns the number of body entities.
func (r *Renderer) Len() int {
	return len(r.bodies)
}
