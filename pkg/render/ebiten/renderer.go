// pkg/render/ebiten/renderer.go
package ebiten

import (
	"fmt"
	"image/color"
	"math"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/render"
)

var (
	backgroundColor = color.RGBA{0, 0, 0, 255}
	gridColor       = color.RGBA{50, 50, 50, 255}
	bodyColor       = color.RGBA{255, 255, 255, 255}
	cellColor       = color.RGBA{25, 25, 40, 255}
)

// circle is one body in screen coordinates.
type circle struct {
	X, Y, R float32
}

// rect is an axis-aligned rectangle in screen coordinates.
type rect struct {
	X, Y, W, H float32
}

// Renderer implements render.Renderer by recording the frame for the next
// Draw. The arena is scaled to fit the screen with its origin in the top
// left corner.
type Renderer struct {
	arena  physics.Arena
	width  int
	height int
	scale  float64

	frame  []circle
	status render.Status
	paused bool
}

var _ render.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer for a width x height screen.
func NewRenderer(arena physics.Arena, width, height int) *Renderer {
	return &Renderer{
		arena:  arena,
		width:  width,
		height: height,
		scale:  math.Min(float64(width)/arena.Width, float64(height)/arena.Height),
	}
}

// Scale returns screen pixels per arena unit.
func (r *Renderer) Scale() float64 {
	return r.scale
}

// Clear implements render.Renderer.
func (r *Renderer) Clear() {
	r.frame = r.frame[:0]
}

// RenderBody implements render.Renderer.
func (r *Renderer) RenderBody(b *physics.Body) {
	r.frame = append(r.frame, circle{
		X: float32(b.Position.X * r.scale),
		Y: float32(b.Position.Y * r.scale),
		R: float32(b.Radius * r.scale),
	})
}

// Present implements render.Renderer.
func (r *Renderer) Present(status render.Status) error {
	r.status = status
	return nil
}

// Text returns the status line drawn in the top left corner.
func (r *Renderer) Text() string {
	s := r.status
	text := fmt.Sprintf("tick %d\nbodies %d\n%s\n%.1f ticks/s", s.Tick, s.Bodies, s.Strategy, s.Rate)
	if r.paused {
		text += "\npaused"
	}
	return text
}

// cellRect returns the screen rectangle of grid cell c with edge size.
func (r *Renderer) cellRect(c broadphase.Cell, size float64) rect {
	return rect{
		X: float32(float64(c.X) * size * r.scale),
		Y: float32(float64(c.Y) * size * r.scale),
		W: float32(size * r.scale),
		H: float32(size * r.scale),
	}
}

// gridLines returns the screen offsets of the interior grid lines along an
// arena side of length size.
func (r *Renderer) gridLines(size, cell float64) []float32 {
	if cell <= 0 {
		return nil
	}
	var at []float32
	for x := cell; x < size; x += cell {
		at = append(at, float32(x*r.scale))
	}
	return at
}
