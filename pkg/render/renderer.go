// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Status is the text shown alongside a frame.
type Status struct {
	Tick     uint64
	Bodies   int
	Rate     float64
	Strategy string
}

// Renderer draws one frame at a time: Clear, RenderBody for every body,
// then Present.
type Renderer interface {
	Clear()
	RenderBody(b *physics.Body)
	Present(status Status) error
}

// StatusFunc supplies the status of the frame for tick.
type StatusFunc func(tick uint64, bodies []physics.Body) Status

// FrameSink adapts a Renderer to engine.Sink.
type FrameSink struct {
	renderer Renderer
	status   StatusFunc
}

var _ engine.Sink = (*FrameSink)(nil)

// NewFrameSink creates a sink drawing every tick with r. A nil status
// reports only the tick and body count.
func NewFrameSink(r Renderer, status StatusFunc) *FrameSink {
	return &FrameSink{renderer: r, status: status}
}

// SimulationStatus reports the rate and strategy of sim. It does not take
// the simulation lock, so it is safe inside Present.
func SimulationStatus(sim *engine.Simulation) StatusFunc {
	strategy := sim.BroadPhase().Name()
	return func(tick uint64, bodies []physics.Body) Status {
		return Status{Tick: tick, Bodies: len(bodies), Rate: sim.Rate(), Strategy: strategy}
	}
}

// Present draws one frame.
func (s *FrameSink) Present(tick uint64, bodies []physics.Body) error {
	s.renderer.Clear()
	for i := range bodies {
		s.renderer.RenderBody(&bodies[i])
	}
	status := Status{Tick: tick, Bodies: len(bodies)}
	if s.status != nil {
		status = s.status(tick, bodies)
	}
	return s.renderer.Present(status)
}

// NullRenderer draws nothing and logs every call at debug level.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a NullRenderer. A nil logger selects
// logging.NewLogger.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger.With("component", "render")}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {}

// RenderBody implements Renderer.
func (d *NullRenderer) RenderBody(b *physics.Body) {
	if b == nil {
		d.logger.Debug(context.Background(), "RenderBody called with nil body")
	}
}

// Present implements Renderer.
func (d *NullRenderer) Present(status Status) error {
	d.logger.Debug(context.Background(), "Frame presented",
		"tick", status.Tick,
		"bodies", status.Bodies,
		"rate", status.Rate,
		"strategy", status.Strategy,
	)
	return nil
}
