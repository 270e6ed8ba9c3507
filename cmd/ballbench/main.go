// cmd/ballbench/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithRunID(context.Background(), "")

	err := run(ctx, os.Args[1:], os.Stdout, logger)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error(ctx, "ballbench failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *logging.Logger) error {
	fs := flag.NewFlagSet("ballbench", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "Configuration file for the arena and population (defaults when empty)")
	strategies := fs.String("strategies", strings.Join(broadphase.Strategies(), ","), "Comma separated strategies to compare")
	bodies := fs.Int("bodies", 1000, "Number of bodies")
	ticks := fs.Int("ticks", 300, "Ticks per strategy")
	seed := fs.Uint64("seed", 1, "Population seed")
	workers := fs.Int("workers", 0, "Strategies run at once (0 runs all side by side, 1 gives undisturbed timings)")
	verify := fs.Bool("verify", true, "Check every tick's overlapping pairs against brute force")
	legacy := fs.Bool("legacy", false, "Use the legacy quadtree approximation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	cfg.Population.Count = *bodies
	cfg.Population.Seed = seed
	cfg.BroadPhase.Legacy = *legacy
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if *ticks < 1 {
		return fmt.Errorf("ticks must be positive, got %d", *ticks)
	}

	names := splitStrategies(*strategies)
	if len(names) == 0 {
		return fmt.Errorf("no strategies given")
	}

	logger.Info(ctx, "Comparing broad phase strategies",
		"strategies", names,
		"bodies", cfg.Population.Count,
		"ticks", *ticks,
		"seed", *seed,
	)
	results, err := compare(cfg, benchOptions{
		Strategies: names,
		Ticks:      *ticks,
		Workers:    *workers,
		Verify:     *verify,
	}, logger)
	if err != nil {
		return err
	}
	if err := printResults(stdout, results); err != nil {
		return err
	}

	var missed []string
	for _, r := range results {
		if r.Missed > 0 && !(cfg.BroadPhase.Legacy && r.Strategy == broadphase.StrategyQuadtree) {
			missed = append(missed, fmt.Sprintf("%s (%d)", r.Strategy, r.Missed))
		}
	}
	if len(missed) > 0 {
		return fmt.Errorf("%w: %s", ErrMissedPairs, strings.Join(missed, ", "))
	}
	return nil
}

// splitStrategies parses a comma separated list, dropping blanks.
func splitStrategies(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
