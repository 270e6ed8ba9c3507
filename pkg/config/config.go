// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
)

// Renderer names accepted in RenderConfig.Renderer.
const (
	RendererTerminal = "terminal"
	RendererNull     = "null"
	RendererEngo     = "engo"
	RendererEbiten   = "ebiten"
)

// SimulationConfig contains everything needed to set up one simulation run.
type SimulationConfig struct {
	Arena      ArenaConfig      `json:"arena" yaml:"arena"`
	Population PopulationConfig `json:"population" yaml:"population"`
	BroadPhase BroadPhaseConfig `json:"broadPhase" yaml:"broadPhase"`
	Run        RunConfig        `json:"run" yaml:"run"`
	Render     RenderConfig     `json:"render" yaml:"render"`
}

// ArenaConfig is the size of the rectangular world.
type ArenaConfig struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// PopulationConfig describes the randomly generated bodies.
type PopulationConfig struct {
	Count     int     `json:"count" yaml:"count"`
	MinRadius float64 `json:"minRadius" yaml:"minRadius"`
	MaxRadius float64 `json:"maxRadius" yaml:"maxRadius"`
	MinSpeed  float64 `json:"minSpeed" yaml:"minSpeed"`
	MaxSpeed  float64 `json:"maxSpeed" yaml:"maxSpeed"`
	// Seed makes the population reproducible. Nil picks a random seed.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// BroadPhaseConfig selects and tunes the candidate-pair strategy.
type BroadPhaseConfig struct {
	Strategy string  `json:"strategy" yaml:"strategy"`
	CellSize float64 `json:"cellSize" yaml:"cellSize"`
	Capacity int     `json:"capacity" yaml:"capacity"`
	Window   float64 `json:"window" yaml:"window"`
	MaxDepth int     `json:"maxDepth" yaml:"maxDepth"`
	Legacy   bool    `json:"legacy" yaml:"legacy"`
}

// RunConfig controls the driving loop.
type RunConfig struct {
	// MaxTicks stops the run after this many ticks. Zero runs until stopped.
	MaxTicks int `json:"maxTicks" yaml:"maxTicks"`
	// TicksPerSecond paces the loop. Zero runs as fast as possible.
	TicksPerSecond float64 `json:"ticksPerSecond" yaml:"ticksPerSecond"`
	// RecordPath, when set, records every frame to this file.
	RecordPath string `json:"recordPath,omitempty" yaml:"recordPath,omitempty"`
}

// RenderConfig selects the output.
type RenderConfig struct {
	Renderer string `json:"renderer" yaml:"renderer"`
	Title    string `json:"title" yaml:"title"`
	// Columns and Rows size the terminal frame.
	Columns  int  `json:"columns" yaml:"columns"`
	Rows     int  `json:"rows" yaml:"rows"`
	ShowGrid bool `json:"showGrid" yaml:"showGrid"`
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig reads a configuration file. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes config to path, as YAML or JSON depending on the extension.
func SaveConfig(config *SimulationConfig, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultConfig returns the classic setup: 100 bodies with radius 10-15 in
// an 1800x900 arena, indexed by a quadtree.
func DefaultConfig() *SimulationConfig {
	return &SimulationConfig{
		Arena: ArenaConfig{
			Width:  1800,
			Height: 900,
		},
		Population: PopulationConfig{
			Count:     100,
			MinRadius: 10,
			MaxRadius: 15,
			MinSpeed:  0,
			MaxSpeed:  4 * math.Sqrt2,
		},
		BroadPhase: BroadPhaseConfig{
			Strategy: broadphase.StrategyQuadtree,
			CellSize: broadphase.DefaultCellSize,
			Capacity: broadphase.DefaultCapacity,
			Window:   broadphase.DefaultWindow,
			MaxDepth: broadphase.DefaultMaxDepth,
		},
		Run: RunConfig{
			MaxTicks:       0,
			TicksPerSecond: 60,
		},
		Render: RenderConfig{
			Renderer: RendererTerminal,
			Title:    "ballsim",
			Columns:  120,
			Rows:     40,
		},
	}
}

// Options converts the broad-phase section into broadphase.Options.
func (c *BroadPhaseConfig) Options() broadphase.Options {
	return broadphase.Options{
		Strategy: c.Strategy,
		CellSize: c.CellSize,
		Capacity: c.Capacity,
		Window:   c.Window,
		MaxDepth: c.MaxDepth,
		Legacy:   c.Legacy,
	}
}

// Validate checks every section and returns the first *ValidationError found.
func (c *SimulationConfig) Validate() error {
	validators := []func() error{
		c.validateArena,
		c.validatePopulation,
		c.validateBroadPhase,
		c.validateRun,
		c.validateRender,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func (c *SimulationConfig) validateArena() error {
	if !positiveFinite(c.Arena.Width) {
		return &ValidationError{Field: "arena.width", Value: c.Arena.Width, Message: "must be positive and finite"}
	}
	if !positiveFinite(c.Arena.Height) {
		return &ValidationError{Field: "arena.height", Value: c.Arena.Height, Message: "must be positive and finite"}
	}
	return nil
}

func (c *SimulationConfig) validatePopulation() error {
	p := &c.Population
	if p.Count < 0 {
		return &ValidationError{Field: "population.count", Value: p.Count, Message: "must not be negative"}
	}
	if !positiveFinite(p.MinRadius) {
		return &ValidationError{Field: "population.minRadius", Value: p.MinRadius, Message: "must be positive and finite"}
	}
	if !positiveFinite(p.MaxRadius) || p.MaxRadius < p.MinRadius {
		return &ValidationError{Field: "population.maxRadius", Value: p.MaxRadius, Message: "must be finite and at least minRadius"}
	}
	if 2*p.MaxRadius > math.Min(c.Arena.Width, c.Arena.Height) {
		return &ValidationError{Field: "population.maxRadius", Value: p.MaxRadius, Message: "a body of this radius does not fit in the arena"}
	}
	if p.MinSpeed < 0 || math.IsNaN(p.MinSpeed) {
		return &ValidationError{Field: "population.minSpeed", Value: p.MinSpeed, Message: "must not be negative"}
	}
	if math.IsNaN(p.MaxSpeed) || math.IsInf(p.MaxSpeed, 0) || p.MaxSpeed < p.MinSpeed {
		return &ValidationError{Field: "population.maxSpeed", Value: p.MaxSpeed, Message: "must be finite and at least minSpeed"}
	}
	return nil
}

func (c *SimulationConfig) validateBroadPhase() error {
	_, err := broadphase.New(c.BroadPhase.Options())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, broadphase.ErrUnknownStrategy):
		return &ValidationError{Field: "broadPhase.strategy", Value: c.BroadPhase.Strategy, Message: fmt.Sprintf("must be one of %v", broadphase.Strategies())}
	case errors.Is(err, broadphase.ErrInvalidCapacity):
		return &ValidationError{Field: "broadPhase.capacity", Value: c.BroadPhase.Capacity, Message: "must be at least 1"}
	case errors.Is(err, broadphase.ErrInvalidCellSize):
		return &ValidationError{Field: "broadPhase.cellSize", Value: c.BroadPhase.CellSize, Message: "must be positive and finite"}
	default:
		return &ValidationError{Field: "broadPhase", Value: c.BroadPhase.Strategy, Message: err.Error()}
	}
}

func (c *SimulationConfig) validateRun() error {
	if c.Run.MaxTicks < 0 {
		return &ValidationError{Field: "run.maxTicks", Value: c.Run.MaxTicks, Message: "must not be negative"}
	}
	if c.Run.TicksPerSecond < 0 || math.IsNaN(c.Run.TicksPerSecond) || math.IsInf(c.Run.TicksPerSecond, 0) {
		return &ValidationError{Field: "run.ticksPerSecond", Value: c.Run.TicksPerSecond, Message: "must be zero or a positive finite rate"}
	}
	return nil
}

func (c *SimulationConfig) validateRender() error {
	switch c.Render.Renderer {
	case RendererTerminal:
		if c.Render.Columns < 2 || c.Render.Rows < 2 {
			return &ValidationError{Field: "render.columns", Value: fmt.Sprintf("%dx%d", c.Render.Columns, c.Render.Rows), Message: "terminal frame must be at least 2x2"}
		}
	case RendererNull, RendererEngo, RendererEbiten:
	default:
		return &ValidationError{Field: "render.renderer", Value: c.Render.Renderer, Message: fmt.Sprintf("must be one of %v", Renderers())}
	}
	return nil
}

// Renderers lists the accepted renderer names.
func Renderers() []string {
	return []string{RendererTerminal, RendererNull, RendererEngo, RendererEbiten}
}
