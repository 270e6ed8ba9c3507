package broadphase

import "github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"

// BruteForce pairs every body with every other body. It is O(n^2) and
// serves as the reference the other strategies are checked against.
type BruteForce struct {
	count int
}

// NewBruteForce creates the exhaustive strategy.
func NewBruteForce() *BruteForce {
	return &BruteForce{}
}

// Name implements BroadPhase.
func (b *BruteForce) Name() string { return StrategyBruteForce }

// Build implements BroadPhase. Only the population size is needed.
func (b *BruteForce) Build(bodies []physics.Body, _ physics.Arena) {
	b.count = len(bodies)
}

// Candidates implements BroadPhase.
func (b *BruteForce) Candidates(dst []Pair) []Pair {
	for i := 0; i < b.count; i++ {
		for j := i + 1; j < b.count; j++ {
			dst = append(dst, Pair{A: i, B: j})
		}
	}
	return dst
}
