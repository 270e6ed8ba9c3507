// pkg/engine/population.go
package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

var (
	// ErrInvalidCount is returned for a negative population size.
	ErrInvalidCount = errors.New("invalid body count")
	// ErrInvalidRadius is returned for a non-positive or inverted radius range,
	// or one whose largest body does not fit in the arena.
	ErrInvalidRadius = errors.New("invalid radius range")
	// ErrInvalidSpeed is returned for a negative or inverted speed range.
	ErrInvalidSpeed = errors.New("invalid speed range")
)

// Range is an inclusive interval sampled uniformly.
type Range struct {
	Min, Max float64
}

// Sample draws a value from the range.
func (r Range) Sample(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

func (r Range) valid() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) &&
		!math.IsInf(r.Max, 0) && r.Min <= r.Max
}

// CreatePopulation places count bodies uniformly at random so that each lies
// fully inside the arena. Each body gets a radius drawn from radius and a
// velocity of a speed drawn from speed in a uniformly random direction.
// Bodies may overlap initially; the first ticks separate them.
func CreatePopulation(count int, arena physics.Arena, radius, speed Range, rng *rand.Rand) ([]physics.Body, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if _, err := physics.NewArena(arena.Width, arena.Height); err != nil {
		return nil, err
	}
	if !radius.valid() || radius.Min <= 0 {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidRadius, radius.Min, radius.Max)
	}
	if 2*radius.Max > math.Min(arena.Width, arena.Height) {
		return nil, fmt.Errorf("%w: radius %v does not fit in a %vx%v arena",
			ErrInvalidRadius, radius.Max, arena.Width, arena.Height)
	}
	if !speed.valid() || speed.Min < 0 {
		return nil, fmt.Errorf("%w: [%v, %v]", ErrInvalidSpeed, speed.Min, speed.Max)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	bodies := make([]physics.Body, count)
	for i := range bodies {
		r := radius.Sample(rng)
		pos := physics.Vector2D{
			X: Range{Min: r, Max: arena.Width - r}.Sample(rng),
			Y: Range{Min: r, Max: arena.Height - r}.Sample(rng),
		}
		s := speed.Sample(rng)
		vel := physics.FromAngle(rng.Float64()*2*math.Pi, s)
		bodies[i] = physics.NewBody(i, pos, vel, r)
	}
	return bodies, nil
}
