// pkg/render/engo/camera.go
package engo

import (
	"math"

	"github.com/EngoEngine/engo"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Viewport maps arena coordinates to window pixels. The arena is scaled to
// fit the window and centered; zoom scales around the arena center.
type Viewport struct {
	arena   physics.Arena
	width   float64
	height  float64
	fit     float64
	zoom    float64
	minZoom float64
	maxZoom float64
}

// NewViewport fits arena into a width x height window.
func NewViewport(arena physics.Arena, width, height float64) *Viewport {
	return &Viewport{
		arena:   arena,
		width:   width,
		height:  height,
		fit:     math.Min(width/arena.Width, height/arena.Height),
		zoom:    1,
		minZoom: 0.25,
		maxZoom: 8,
	}
}

// Scale returns window pixels per arena unit.
func (v *Viewport) Scale() float64 {
	return v.fit * v.zoom
}

// WorldToScreen converts arena coordinates to window coordinates.
func (v *Viewport) WorldToScreen(p physics.Vector2D) engo.Point {
	s := v.Scale()
	return engo.Point{
		X: float32((p.X-v.arena.Width/2)*s + v.width/2),
		Y: float32((p.Y-v.arena.Height/2)*s + v.height/2),
	}
}

// ScreenToWorld converts window coordinates to arena coordinates.
func (v *Viewport) ScreenToWorld(p engo.Point) physics.Vector2D {
	s := v.Scale()
	return physics.Vector2D{
		X: (float64(p.X)-v.width/2)/s + v.arena.Width/2,
		Y: (float64(p.Y)-v.height/2)/s + v.arena.Height/2,
	}
}

// SetZoom sets the zoom level, clamped to the zoom limits.
func (v *Viewport) SetZoom(zoom float64) {
	v.zoom = math.Max(v.minZoom, math.Min(v.maxZoom, zoom))
}

// Zoom returns the zoom level.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}
