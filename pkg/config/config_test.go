package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/broadphase"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if config.Arena.Width != 1800 || config.Arena.Height != 900 {
		t.Errorf("Expected arena 1800x900, got %vx%v", config.Arena.Width, config.Arena.Height)
	}
	if config.Population.Count != 100 {
		t.Errorf("Expected 100 bodies, got %d", config.Population.Count)
	}
	if config.Population.MinRadius != 10 || config.Population.MaxRadius != 15 {
		t.Errorf("Expected radius 10-15, got %v-%v", config.Population.MinRadius, config.Population.MaxRadius)
	}
	if math.Abs(config.Population.MaxSpeed-4*math.Sqrt2) > 1e-12 {
		t.Errorf("Expected max speed 4*sqrt(2), got %v", config.Population.MaxSpeed)
	}
	if config.Population.Seed != nil {
		t.Errorf("Expected unseeded default, got seed %d", *config.Population.Seed)
	}
	if config.BroadPhase.Strategy != broadphase.StrategyQuadtree {
		t.Errorf("Expected quadtree strategy, got %q", config.BroadPhase.Strategy)
	}
	if config.BroadPhase.Capacity != 4 || config.BroadPhase.Window != 50 || config.BroadPhase.CellSize != 50 {
		t.Errorf("Unexpected broad-phase tuning: %+v", config.BroadPhase)
	}
	if config.Render.Renderer != RendererTerminal {
		t.Errorf("Expected terminal renderer, got %q", config.Render.Renderer)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig should validate, got %v", err)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	seed := uint64(99)
	saved := DefaultConfig()
	saved.Population.Count = 250
	saved.Population.Seed = &seed
	saved.BroadPhase.Strategy = broadphase.StrategySweep
	saved.BroadPhase.Legacy = true
	saved.Run.MaxTicks = 600
	saved.Render.ShowGrid = true

	for _, name := range []string{"sim.json", "sim.yaml", "sim.YML"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveConfig(saved, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}

			loaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if loaded.Population.Count != 250 {
				t.Errorf("Expected 250 bodies, got %d", loaded.Population.Count)
			}
			if loaded.Population.Seed == nil || *loaded.Population.Seed != 99 {
				t.Errorf("Expected seed 99, got %v", loaded.Population.Seed)
			}
			if loaded.BroadPhase.Strategy != broadphase.StrategySweep || !loaded.BroadPhase.Legacy {
				t.Errorf("Broad-phase section not preserved: %+v", loaded.BroadPhase)
			}
			if loaded.Run.MaxTicks != 600 || !loaded.Render.ShowGrid {
				t.Errorf("Run/render sections not preserved: %+v %+v", loaded.Run, loaded.Render)
			}
		})
	}
}

func TestSaveConfig_FormatByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "sim.json")
	yamlPath := filepath.Join(dir, "sim.yaml")
	if err := SaveConfig(DefaultConfig(), jsonPath); err != nil {
		t.Fatal(err)
	}
	if err := SaveConfig(DefaultConfig(), yamlPath); err != nil {
		t.Fatal(err)
	}

	jsonData, _ := os.ReadFile(jsonPath)
	yamlData, _ := os.ReadFile(yamlPath)
	if !strings.HasPrefix(strings.TrimSpace(string(jsonData)), "{") {
		t.Errorf("JSON file does not start with '{': %.40s", jsonData)
	}
	if !strings.Contains(string(yamlData), "broadPhase:") {
		t.Errorf("YAML file missing broadPhase key: %.80s", yamlData)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	content := "population:\n  count: 12\nbroadPhase:\n  strategy: brute\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Population.Count != 12 {
		t.Errorf("Expected 12 bodies, got %d", config.Population.Count)
	}
	if config.Population.MaxRadius != 15 {
		t.Errorf("Expected default max radius 15, got %v", config.Population.MaxRadius)
	}
	if config.Arena.Width != 1800 {
		t.Errorf("Expected default width 1800, got %v", config.Arena.Width)
	}
	if config.BroadPhase.Capacity != broadphase.DefaultCapacity {
		t.Errorf("Expected default capacity, got %d", config.BroadPhase.Capacity)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		os.WriteFile(path, []byte("{not json"), 0o644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte("population: [1, 2"), 0o644)
		if _, err := LoadConfig(path); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*SimulationConfig)
		errorField string
	}{
		{"valid default", func(*SimulationConfig) {}, ""},
		{"empty population", func(c *SimulationConfig) { c.Population.Count = 0 }, ""},
		{"fixed speed", func(c *SimulationConfig) { c.Population.MinSpeed, c.Population.MaxSpeed = 3, 3 }, ""},
		{"zero width", func(c *SimulationConfig) { c.Arena.Width = 0 }, "arena.width"},
		{"infinite height", func(c *SimulationConfig) { c.Arena.Height = math.Inf(1) }, "arena.height"},
		{"negative count", func(c *SimulationConfig) { c.Population.Count = -1 }, "population.count"},
		{"zero radius", func(c *SimulationConfig) { c.Population.MinRadius = 0 }, "population.minRadius"},
		{"radius range inverted", func(c *SimulationConfig) { c.Population.MaxRadius = 5 }, "population.maxRadius"},
		{"radius too large", func(c *SimulationConfig) { c.Population.MinRadius, c.Population.MaxRadius = 400, 500 }, "population.maxRadius"},
		{"negative speed", func(c *SimulationConfig) { c.Population.MinSpeed = -1 }, "population.minSpeed"},
		{"speed range inverted", func(c *SimulationConfig) { c.Population.MinSpeed, c.Population.MaxSpeed = 5, 1 }, "population.maxSpeed"},
		{"unknown strategy", func(c *SimulationConfig) { c.BroadPhase.Strategy = "octree" }, "broadPhase.strategy"},
		{"zero capacity", func(c *SimulationConfig) { c.BroadPhase.Capacity = 0 }, "broadPhase.capacity"},
		{"zero cell size", func(c *SimulationConfig) {
			c.BroadPhase.Strategy = broadphase.StrategySweep
			c.BroadPhase.CellSize = 0
		}, "broadPhase.cellSize"},
		{"negative max ticks", func(c *SimulationConfig) { c.Run.MaxTicks = -5 }, "run.maxTicks"},
		{"negative tick rate", func(c *SimulationConfig) { c.Run.TicksPerSecond = -1 }, "run.ticksPerSecond"},
		{"unknown renderer", func(c *SimulationConfig) { c.Render.Renderer = "opengl" }, "render.renderer"},
		{"tiny terminal", func(c *SimulationConfig) { c.Render.Columns = 1 }, "render.columns"},
		{"null renderer ignores terminal size", func(c *SimulationConfig) {
			c.Render.Renderer = RendererNull
			c.Render.Columns = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()

			if tt.errorField == "" {
				if err != nil {
					t.Errorf("Expected no validation error, got %v", err)
				}
				return
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Expected ValidationError, got %T: %v", err, err)
			}
			if validationErr.Field != tt.errorField {
				t.Errorf("Expected error for field %q, got %q", tt.errorField, validationErr.Field)
			}
		})
	}
}

func TestBroadPhaseConfig_Options(t *testing.T) {
	config := DefaultConfig()
	config.BroadPhase.Legacy = true
	config.BroadPhase.Window = 80

	opts := config.BroadPhase.Options()
	if opts.Strategy != broadphase.StrategyQuadtree || !opts.Legacy || opts.Window != 80 {
		t.Errorf("Options() = %+v", opts)
	}

	bp, err := broadphase.New(opts)
	if err != nil {
		t.Fatalf("broadphase.New failed: %v", err)
	}
	if bp.Name() != broadphase.StrategyQuadtree {
		t.Errorf("Expected quadtree, got %s", bp.Name())
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "arena.width", Value: -1.0, Message: "must be positive and finite"}
	expected := "invalid arena.width (-1): must be positive and finite"
	if err.Error() != expected {
		t.Errorf("Error() = %q, expected %q", err.Error(), expected)
	}
}
