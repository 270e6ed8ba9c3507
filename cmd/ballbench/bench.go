// cmd/ballbench/bench.go
package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dgravesa/go-parallel/parallel"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// ErrMissedPairs is returned when a strategy misses overlapping pairs that
// brute force finds.
var ErrMissedPairs = errors.New("strategy missed overlapping pairs")

// result summarizes one strategy's run.
type result struct {
	Strategy   string
	Ticks      int
	Elapsed    time.Duration
	Candidates int
	Distinct   int
	Resolved   int
	// Missed counts overlapping pairs brute force found that the strategy
	// did not report, summed over verified ticks.
	Missed        int
	KineticEnergy float64
}

// TicksPerSecond returns the measured tick rate.
func (r result) TicksPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ticks) / r.Elapsed.Seconds()
}

// benchOptions configures a comparison.
type benchOptions struct {
	Strategies []string
	Ticks      int
	Workers    int
	Verify     bool
}

// compare runs the same initial population under every strategy, one
// simulation per goroutine, and returns the results in strategy order.
func compare(cfg *config.SimulationConfig, opts benchOptions, logger *logging.Logger) ([]result, error) {
	seedSim, err := engine.NewSimulation(cfg, engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	initial := seedSim.Snapshot()

	workers := opts.Workers
	if workers <= 0 {
		workers = len(opts.Strategies)
	}

	results := make([]result, len(opts.Strategies))
	errs := make([]error, len(opts.Strategies))
	parallel.WithNumGoroutines(workers).For(len(opts.Strategies), func(i, _ int) {
		results[i], errs[i] = runStrategy(cfg, opts.Strategies[i], initial, opts.Ticks, opts.Verify, logger)
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}

// runStrategy steps a copy of initial for ticks ticks with the named
// strategy. With verify set, every tick's overlapping pairs are checked
// against brute force before stepping.
func runStrategy(base *config.SimulationConfig, strategy string, initial []physics.Body, ticks int, verify bool, logger *logging.Logger) (result, error) {
	cfg := *base
	cfg.BroadPhase.Strategy = strategy
	sim, err := engine.NewSimulation(&cfg, engine.WithBodies(initial), engine.WithLogger(logger))
	if err != nil {
		return result{}, fmt.Errorf("%s: %w", strategy, err)
	}

	var check, oracle broadphase.BroadPhase
	if verify {
		if check, err = broadphase.New(cfg.BroadPhase.Options()); err != nil {
			return result{}, fmt.Errorf("%s: %w", strategy, err)
		}
		oracle = broadphase.NewBruteForce()
	}

	res := result{Strategy: sim.BroadPhase().Name(), Ticks: ticks}
	var elapsed time.Duration
	for i := 0; i < ticks; i++ {
		if verify {
			sim.View(func(_ uint64, bodies []physics.Body) {
				res.Missed += missedPairs(bodies, sim.Arena(), check, oracle)
			})
		}
		start := time.Now()
		stats := sim.Step()
		elapsed += time.Since(start)

		res.Candidates += stats.Candidates
		res.Distinct += stats.Distinct
		res.Resolved += stats.Resolved
	}
	res.Elapsed = elapsed
	res.KineticEnergy = physics.TotalKineticEnergy(sim.Snapshot())
	return res, nil
}

// missedPairs returns how many overlapping pairs oracle reports that bp
// does not.
func missedPairs(bodies []physics.Body, arena physics.Arena, bp, oracle broadphase.BroadPhase) int {
	bp.Build(bodies, arena)
	oracle.Build(bodies, arena)
	found := make(map[broadphase.Pair]bool)
	for _, p := range broadphase.Overlapping(bodies, bp.Candidates(nil)) {
		found[p] = true
	}
	missed := 0
	for _, p := range broadphase.Overlapping(bodies, oracle.Candidates(nil)) {
		if !found[p] {
			missed++
		}
	}
	return missed
}

// printResults writes a table of results to w.
func printResults(w io.Writer, results []result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "strategy\tticks\tticks/s\tcandidates/tick\tdistinct/tick\tresolved\tmissed\tkinetic energy\t")
	for _, r := range results {
		perTick := func(n int) float64 {
			if r.Ticks == 0 {
				return 0
			}
			return float64(n) / float64(r.Ticks)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f\t%d\t%d\t%.3f\t\n",
			r.Strategy, r.Ticks, r.TicksPerSecond(),
			perTick(r.Candidates), perTick(r.Distinct),
			r.Resolved, r.Missed, r.KineticEnergy)
	}
	return tw.Flush()
}
