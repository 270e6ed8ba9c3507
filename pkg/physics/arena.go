// pkg/physics/arena.go
package physics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArena is returned when an arena dimension is not positive.
var ErrInvalidArena = errors.New("invalid arena")

// Arena is the bounded rectangle [0, Width] x [0, Height] bodies move in.
type Arena struct {
	Width  float64
	Height float64
}

// NewArena validates the dimensions and returns the arena.
func NewArena(width, height float64) (Arena, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return Arena{}, fmt.Errorf("%w: width must be positive, got %v", ErrInvalidArena, width)
	}
	if !(height > 0) || math.IsInf(height, 0) {
		return Arena{}, fmt.Errorf("%w: height must be positive, got %v", ErrInvalidArena, height)
	}
	return Arena{Width: width, Height: height}, nil
}

// Contain clamps the body back inside the arena and forces the offending
// velocity component to point inward. A plain sign flip is not enough: a
// body that went deep past the wall could still be outside next tick.
func (a Arena) Contain(b *Body) {
	b.Position.X, b.Velocity.X = containAxis(b.Position.X, b.Velocity.X, b.Radius, a.Width)
	b.Position.Y, b.Velocity.Y = containAxis(b.Position.Y, b.Velocity.Y, b.Radius, a.Height)
}

func containAxis(pos, vel, radius, size float64) (float64, float64) {
	if pos-radius < 0 {
		return radius, math.Abs(vel)
	} else if pos+radius > size {
		return size - radius, -math.Abs(vel)
	}
	return pos, vel
}

// Holds reports whether the body's circle lies inside the arena, allowing
// tolerance of slack on every side.
func (a Arena) Holds(b *Body, tolerance float64) bool {
	return b.Position.X-b.Radius >= -tolerance &&
		b.Position.Y-b.Radius >= -tolerance &&
		b.Position.X+b.Radius <= a.Width+tolerance &&
		b.Position.Y+b.Radius <= a.Height+tolerance
}
