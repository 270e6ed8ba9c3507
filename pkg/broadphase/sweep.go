package broadphase

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// DefaultCellSize is the uniform-grid cell edge used when none is configured.
const DefaultCellSize = 50.0

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// UniformGrid buckets body indices by the cell their center falls in.
// It is rebuilt from scratch every tick.
type UniformGrid struct {
	cellSize float64
	cells    map[Cell][]int
}

// NewUniformGrid creates an empty grid with square cells of edge cellSize.
func NewUniformGrid(cellSize float64) (*UniformGrid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}
	return &UniformGrid{
		cellSize: cellSize,
		cells:    make(map[Cell][]int),
	}, nil
}

// CellSize returns the cell edge length.
func (g *UniformGrid) CellSize() float64 { return g.cellSize }

// CellOf returns the cell containing point p.
func (g *UniformGrid) CellOf(p physics.Vector2D) Cell {
	return Cell{
		X: int(math.Floor(p.X / g.cellSize)),
		Y: int(math.Floor(p.Y / g.cellSize)),
	}
}

// Build replaces the grid contents with the given bodies.
func (g *UniformGrid) Build(bodies []physics.Body) {
	clear(g.cells)
	for i := range bodies {
		c := g.CellOf(bodies[i].Position)
		g.cells[c] = append(g.cells[c], i)
	}
}

// Bodies returns the indices filed under cell c. The slice must not be modified.
func (g *UniformGrid) Bodies(c Cell) []int {
	return g.cells[c]
}

// Occupied returns the number of non-empty cells.
func (g *UniformGrid) Occupied() int {
	return len(g.cells)
}

// Each calls fn for every non-empty cell.
func (g *UniformGrid) Each(fn func(c Cell, bodies []int)) {
	for c, bodies := range g.cells {
		fn(c, bodies)
	}
}

// Neighbors appends to dst the indices filed in the 3x3 block of cells
// around p. When the cell size is at least the largest diameter this
// contains every body that can overlap a body centered at p.
func (g *UniformGrid) Neighbors(p physics.Vector2D, dst []int) []int {
	center := g.CellOf(p)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			dst = append(dst, g.cells[Cell{X: center.X + dx, Y: center.Y + dy}]...)
		}
	}
	return dst
}

// SortedAxis orders body indices by their leading x edge, x - radius.
type SortedAxis struct {
	order []int
}

// Build sorts the bodies. Ties keep index order so the result is deterministic.
func (s *SortedAxis) Build(bodies []physics.Body) {
	s.order = s.order[:0]
	for i := range bodies {
		s.order = append(s.order, i)
	}
	slices.SortStableFunc(s.order, func(a, b int) int {
		return cmp.Compare(bodies[a].Position.X-bodies[a].Radius, bodies[b].Position.X-bodies[b].Radius)
	})
}

// Order returns the sorted indices. The slice must not be modified.
func (s *SortedAxis) Order() []int {
	return s.order
}

// SweepAndPrune builds a uniform grid and a sorted x axis each tick, and
// sweeps the axis for pairs whose x extents overlap.
type SweepAndPrune struct {
	grid   *UniformGrid
	axis   SortedAxis
	bodies []physics.Body
}

// NewSweepAndPrune creates the sweep strategy with the given grid cell size.
func NewSweepAndPrune(cellSize float64) (*SweepAndPrune, error) {
	grid, err := NewUniformGrid(cellSize)
	if err != nil {
		return nil, err
	}
	return &SweepAndPrune{grid: grid}, nil
}

// Name implements BroadPhase.
func (s *SweepAndPrune) Name() string { return StrategySweep }

// Grid exposes the grid built for the current tick, e.g. for an overlay.
func (s *SweepAndPrune) Grid() *UniformGrid { return s.grid }

// Build implements BroadPhase.
func (s *SweepAndPrune) Build(bodies []physics.Body, _ physics.Arena) {
	s.bodies = bodies
	s.grid.Build(bodies)
	s.axis.Build(bodies)
}

// Candidates implements BroadPhase.
//
// For each body the scan stops at the first later body whose x gap exceeds
// the radius sum of that pair. The axis is sorted by leading edge, so every
// body after it starts even further right and cannot reach back.
func (s *SweepAndPrune) Candidates(dst []Pair) []Pair {
	order := s.axis.order
	for n := 0; n < len(order); n++ {
		i := order[n]
		bi := &s.bodies[i]
		for m := n + 1; m < len(order); m++ {
			j := order[m]
			bj := &s.bodies[j]
			if bj.Position.X-bi.Position.X > bi.Radius+bj.Radius {
				break
			}
			dst = append(dst, NewPair(i, j))
		}
	}
	return dst
}
