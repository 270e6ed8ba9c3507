// Package broadphase generates candidate collision pairs for a population of
// bodies. Every strategy returns a superset of the truly overlapping pairs;
// the narrow phase in package physics decides which candidates collide.
package broadphase

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// Strategy names accepted by New.
const (
	StrategyBruteForce = "brute"
	StrategySweep      = "sweep"
	StrategyQuadtree   = "quadtree"
)

var (
	// ErrUnknownStrategy is returned by New for an unrecognised strategy name.
	ErrUnknownStrategy = errors.New("unknown broad-phase strategy")
	// ErrInvalidCapacity is returned when a quadtree node capacity is below 1.
	ErrInvalidCapacity = errors.New("invalid quadtree capacity")
	// ErrInvalidCellSize is returned when a grid cell size is not positive.
	ErrInvalidCellSize = errors.New("invalid grid cell size")
)

// Pair is an unordered pair of body indices, normalized so that A < B.
type Pair struct {
	A, B int
}

// NewPair returns the normalized pair for i and j.
func NewPair(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{A: i, B: j}
}

// BroadPhase is implemented by every candidate-generation strategy.
//
// Build indexes the bodies for the current tick; the structure is only
// valid until the bodies move again. Candidates appends candidate pairs to
// dst and returns the extended slice. Pairs may be reported more than once
// or in either orientation; callers deduplicate with Dedupe.
type BroadPhase interface {
	Name() string
	Build(bodies []physics.Body, arena physics.Arena)
	Candidates(dst []Pair) []Pair
}

// Options selects and tunes a strategy.
type Options struct {
	Strategy string
	// CellSize is the uniform-grid cell edge used by the sweep strategy.
	CellSize float64
	// Capacity is the number of bodies a quadtree leaf holds before splitting.
	Capacity int
	// Window is the half-size of the square each body queries the quadtree with.
	Window float64
	// MaxDepth bounds quadtree subdivision.
	MaxDepth int
	// Legacy selects the corner-point, fixed-window quadtree approximation.
	Legacy bool
}

// DefaultOptions returns the tuning used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Strategy: StrategyQuadtree,
		CellSize: DefaultCellSize,
		Capacity: DefaultCapacity,
		Window:   DefaultWindow,
		MaxDepth: DefaultMaxDepth,
	}
}

// New creates the strategy named by opts.Strategy.
func New(opts Options) (BroadPhase, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Strategy)) {
	case StrategyBruteForce, "bruteforce", "brute_force":
		return NewBruteForce(), nil
	case StrategySweep, "sort_and_sweep", "sap":
		return NewSweepAndPrune(opts.CellSize)
	case StrategyQuadtree, "tree":
		return NewQuadtreeBroadPhase(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}
}

// Strategies lists the canonical strategy names.
func Strategies() []string {
	return []string{StrategyBruteForce, StrategySweep, StrategyQuadtree}
}

// Dedupe normalizes, sorts and removes duplicate pairs in place, dropping
// self-pairs. The result is ordered by (A, B).
func Dedupe(pairs []Pair) []Pair {
	out := pairs[:0]
	for _, p := range pairs {
		if p.A == p.B {
			continue
		}
		out = append(out, NewPair(p.A, p.B))
	}
	slices.SortFunc(out, func(x, y Pair) int {
		if c := cmp.Compare(x.A, y.A); c != 0 {
			return c
		}
		return cmp.Compare(x.B, y.B)
	})
	return slices.Compact(out)
}

// Overlapping filters candidates down to the pairs that truly overlap.
func Overlapping(bodies []physics.Body, candidates []Pair) []Pair {
	var out []Pair
	for _, p := range Dedupe(slices.Clone(candidates)) {
		if physics.Overlaps(&bodies[p.A], &bodies[p.B]) {
			out = append(out, p)
		}
	}
	return out
}
