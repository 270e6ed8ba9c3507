// pkg/render/terminal.go
package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

const clearScreen = "\033[H\033[2J"

// TerminalRenderer draws the arena as ASCII art scaled to a fixed number of
// columns and rows, followed by a status line.
type TerminalRenderer struct {
	out     io.Writer
	columns int
	rows    int
	arena   physics.Arena
	buffer  [][]rune
	grid    float64
	ansi    bool
}

// TerminalOption customizes a TerminalRenderer.
type TerminalOption func(*TerminalRenderer)

// WithGrid overlays grid lines every cellSize world units.
func WithGrid(cellSize float64) TerminalOption {
	return func(r *TerminalRenderer) { r.grid = cellSize }
}

// WithoutANSI stops Present from clearing the screen, for log files and tests.
func WithoutANSI() TerminalOption {
	return func(r *TerminalRenderer) { r.ansi = false }
}

// NewTerminalRenderer creates a renderer of columns x rows cells showing arena.
func NewTerminalRenderer(out io.Writer, columns, rows int, arena physics.Arena, opts ...TerminalOption) *TerminalRenderer {
	buffer := make([][]rune, rows)
	for i := range buffer {
		buffer[i] = make([]rune, columns)
	}
	r := &TerminalRenderer{
		out:     out,
		columns: columns,
		rows:    rows,
		arena:   arena,
		buffer:  buffer,
		ansi:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// worldToScreen maps a world position to a cell. ok is false off screen.
func (r *TerminalRenderer) worldToScreen(pos physics.Vector2D) (x, y int, ok bool) {
	x = int(math.Floor(pos.X / r.arena.Width * float64(r.columns)))
	y = int(math.Floor(pos.Y / r.arena.Height * float64(r.rows)))
	if x == r.columns && pos.X == r.arena.Width {
		x--
	}
	if y == r.rows && pos.Y == r.arena.Height {
		y--
	}
	return x, y, x >= 0 && x < r.columns && y >= 0 && y < r.rows
}

// Clear implements Renderer.
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = ' '
		}
	}
	if r.grid > 0 {
		r.drawGrid()
	}
}

func (r *TerminalRenderer) drawGrid() {
	for gx := r.grid; gx < r.arena.Width; gx += r.grid {
		x, _, ok := r.worldToScreen(physics.Vector2D{X: gx})
		if !ok {
			continue
		}
		for y := range r.buffer {
			r.buffer[y][x] = '|'
		}
	}
	for gy := r.grid; gy < r.arena.Height; gy += r.grid {
		_, y, ok := r.worldToScreen(physics.Vector2D{Y: gy})
		if !ok {
			continue
		}
		for x := range r.buffer[y] {
			if r.buffer[y][x] == '|' {
				r.buffer[y][x] = '+'
			} else {
				r.buffer[y][x] = '-'
			}
		}
	}
}

// RenderBody implements Renderer. Bodies whose center is off screen are
// skipped.
func (r *TerminalRenderer) RenderBody(b *physics.Body) {
	x, y, ok := r.worldToScreen(b.Position)
	if !ok {
		return
	}
	if r.buffer[y][x] == 'o' || r.buffer[y][x] == '@' {
		r.buffer[y][x] = '@'
	} else {
		r.buffer[y][x] = 'o'
	}
}

// Present implements Renderer. '@' marks a cell holding more than one body.
func (r *TerminalRenderer) Present(status Status) error {
	w := bufio.NewWriter(r.out)
	if r.ansi {
		w.WriteString(clearScreen)
	}

	border := "+" + strings.Repeat("-", r.columns) + "+\n"
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteByte('|')
		w.WriteString(string(r.buffer[y]))
		w.WriteString("|\n")
	}
	w.WriteString(border)
	fmt.Fprintf(w, "tick %d  bodies %d  %s  %.1f ticks/s\n", status.Tick, status.Bodies, status.Strategy, status.Rate)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("terminal present: %w", err)
	}
	return nil
}
