// pkg/engine/step.go
package engine

import (
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// StepStats counts the pairs one tick went through.
type StepStats struct {
	// Candidates is the number of pairs the broad phase reported, duplicates included.
	Candidates int `json:"candidates"`
	// Distinct is the number of unique candidate pairs.
	Distinct int `json:"distinct"`
	// Resolved is the number of pairs that overlapped and were resolved.
	Resolved int `json:"resolved"`
}

// Step advances bodies by one tick in place:
//
//  1. move every body by its velocity and contain it in the arena
//  2. rebuild the broad phase
//  3. collect candidate pairs
//  4. resolve each distinct pair once, in ascending (A, B) order
//
// A candidate naming an index outside bodies panics.
func Step(bodies []physics.Body, arena physics.Arena, bp broadphase.BroadPhase) StepStats {
	var s stepper
	return s.step(bodies, arena, bp, nil)
}

// stepper keeps the pair buffer between ticks.
type stepper struct {
	pairs []broadphase.Pair
}

func (s *stepper) step(bodies []physics.Body, arena physics.Arena, bp broadphase.BroadPhase, onResolved func(broadphase.Pair)) StepStats {
	for i := range bodies {
		bodies[i].Advance()
		arena.Contain(&bodies[i])
	}

	bp.Build(bodies, arena)
	s.pairs = bp.Candidates(s.pairs[:0])
	stats := StepStats{Candidates: len(s.pairs)}

	s.pairs = broadphase.Dedupe(s.pairs)
	stats.Distinct = len(s.pairs)

	for _, p := range s.pairs {
		if physics.Resolve(&bodies[p.A], &bodies[p.B]) {
			stats.Resolved++
			if onResolved != nil {
				onResolved(p)
			}
		}
	}
	return stats
}
