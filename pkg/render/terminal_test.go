// pkg/render/terminal_test.go
package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

func bodyAt(x, y float64) physics.Body {
	return physics.NewBody(0, physics.Vector2D{X: x, Y: y}, physics.Vector2D{}, 1)
}

func TestNewTerminalRenderer_CreatesBuffer_WithRequestedDimensions(t *testing.T) {
	tests := []struct {
		name    string
		columns int
		rows    int
	}{
		{"small renderer", 10, 5},
		{"default renderer", 120, 40},
		{"single row", 30, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTerminalRenderer(&bytes.Buffer{}, tt.columns, tt.rows, physics.Arena{Width: 100, Height: 100})

			if len(r.buffer) != tt.rows {
				t.Errorf("buffer rows = %d, expected %d", len(r.buffer), tt.rows)
			}
			for y, row := range r.buffer {
				if len(row) != tt.columns {
					t.Errorf("row %d has %d columns, expected %d", y, len(row), tt.columns)
				}
			}
			if !r.ansi {
				t.Error("ANSI clearing should be on by default")
			}
		})
	}
}

func TestWorldToScreen_ScalesArena_ToCells(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, 10, 5, physics.Arena{Width: 100, Height: 50})

	tests := []struct {
		name   string
		pos    physics.Vector2D
		wantX  int
		wantY  int
		wantOK bool
	}{
		{"origin", physics.Vector2D{X: 0, Y: 0}, 0, 0, true},
		{"center", physics.Vector2D{X: 50, Y: 25}, 5, 2, true},
		{"inside far corner", physics.Vector2D{X: 99.9, Y: 49.9}, 9, 4, true},
		{"on far walls", physics.Vector2D{X: 100, Y: 50}, 9, 4, true},
		{"left of arena", physics.Vector2D{X: -1, Y: 10}, -1, 1, false},
		{"below arena", physics.Vector2D{X: 10, Y: 60}, 1, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := r.worldToScreen(tt.pos)
			if ok != tt.wantOK {
				t.Errorf("worldToScreen(%v) ok = %v, expected %v", tt.pos, ok, tt.wantOK)
			}
			if ok && (x != tt.wantX || y != tt.wantY) {
				t.Errorf("worldToScreen(%v) = (%d, %d), expected (%d, %d)", tt.pos, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestClear_FillsBuffer_WithSpaces(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, 8, 4, physics.Arena{Width: 80, Height: 40})
	b := bodyAt(10, 10)
	r.RenderBody(&b)

	r.Clear()

	for y, row := range r.buffer {
		for x, c := range row {
			if c != ' ' {
				t.Errorf("cell (%d, %d) = %q after Clear", x, y, c)
			}
		}
	}
}

func TestPresent_DrawsBodiesAndStatus_WithoutANSI(t *testing.T) {
	var out bytes.Buffer
	r := NewTerminalRenderer(&out, 4, 2, physics.Arena{Width: 100, Height: 100}, WithoutANSI())

	r.Clear()
	for _, b := range []physics.Body{bodyAt(10, 10), bodyAt(12, 10), bodyAt(60, 60), bodyAt(500, 10)} {
		r.RenderBody(&b)
	}
	if err := r.Present(Status{Tick: 3, Bodies: 4, Rate: 60, Strategy: "brute"}); err != nil {
		t.Fatalf("Present() error: %v", err)
	}

	expected := "+----+\n" +
		"|@   |\n" +
		"|  o |\n" +
		"+----+\n" +
		"tick 3  bodies 4  brute  60.0 ticks/s\n"
	if out.String() != expected {
		t.Errorf("Present() wrote\n%s\nexpected\n%s", out.String(), expected)
	}
}

func TestPresent_ClearsScreen_WithANSI(t *testing.T) {
	var out bytes.Buffer
	r := NewTerminalRenderer(&out, 4, 2, physics.Arena{Width: 100, Height: 100})

	r.Clear()
	if err := r.Present(Status{}); err != nil {
		t.Fatalf("Present() error: %v", err)
	}
	if !strings.HasPrefix(out.String(), clearScreen) {
		t.Errorf("output %q does not start with the clear sequence", out.String())
	}
}

func TestClear_DrawsGridLines_WhenGridSet(t *testing.T) {
	r := NewTerminalRenderer(&bytes.Buffer{}, 10, 10, physics.Arena{Width: 100, Height: 100}, WithGrid(50))

	r.Clear()

	if got := r.buffer[2][5]; got != '|' {
		t.Errorf("cell (5, 2) = %q, expected a vertical grid line", got)
	}
	if got := r.buffer[5][2]; got != '-' {
		t.Errorf("cell (2, 5) = %q, expected a horizontal grid line", got)
	}
	if got := r.buffer[5][5]; got != '+' {
		t.Errorf("cell (5, 5) = %q, expected a grid intersection", got)
	}
	if got := r.buffer[0][0]; got != ' ' {
		t.Errorf("cell (0, 0) = %q, expected blank", got)
	}

	b := bodyAt(55, 55)
	r.RenderBody(&b)
	if got := r.buffer[5][5]; got != 'o' {
		t.Errorf("cell (5, 5) = %q, expected a body over the grid", got)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPresent_ReturnsError_WhenWriterFails(t *testing.T) {
	r := NewTerminalRenderer(failingWriter{}, 4, 2, physics.Arena{Width: 100, Height: 100})
	r.Clear()
	if err := r.Present(Status{}); err == nil {
		t.Error("expected an error from a failing writer")
	}
}
