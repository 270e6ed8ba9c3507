// pkg/health/integration_test.go
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/engine"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/resource"
)

// TestHealthCheckIntegration runs the checks against a live simulation.
func TestHealthCheckIntegration(t *testing.T) {
	cfg := config.DefaultConfig()
	seed := uint64(99)
	cfg.Population.Seed = &seed
	cfg.Population.Count = 300
	cfg.Run.TicksPerSecond = 0

	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewSimulation() error: %v", err)
	}

	env := &config.EnvironmentConfig{
		MaxMemoryMB:           4096,
		MaxGoroutines:         16,
		ShutdownTimeout:       2 * time.Second,
		ResourceCheckInterval: time.Second,
	}
	manager := resource.NewManager(env, logging.Discard())
	defer manager.Shutdown(context.Background())

	hc := NewHealthChecker()
	hc.AddCheck(NewSimulationHealthCheck(sim.Running))
	hc.AddCheck(NewStateHealthCheck(sim, 4*cfg.Population.MaxRadius))
	hc.AddCheck(resource.NewHealthCheck(manager))

	t.Run("before the run starts", func(t *testing.T) {
		status := hc.CheckHealth(context.Background())
		if status.Checks["simulation"].Status != "unhealthy" {
			t.Error("simulation should be unhealthy before it runs")
		}
		if status.Checks["state"].Status != "healthy" {
			t.Errorf("state check = %+v, expected healthy", status.Checks["state"])
		}
		if status.Status != "unhealthy" {
			t.Errorf("overall status = %s, expected unhealthy", status.Status)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := manager.Go(ctx, "simulation", func(ctx context.Context) error {
		return sim.Run(ctx, nil)
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sim.Tick() < 200 {
		if time.Now().After(deadline) {
			t.Fatal("simulation did not reach tick 200")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("while running", func(t *testing.T) {
		w := httptest.NewRecorder()
		hc.Handler(nil).ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))

		var status HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if w.Code != http.StatusOK {
			t.Errorf("GET /ready = %d (%+v), expected 200", w.Code, status)
		}
		for name, check := range status.Checks {
			if check.Status != "healthy" {
				t.Errorf("check %s = %+v", name, check)
			}
		}
	})

	cancel()
	if err := manager.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	t.Run("after shutdown", func(t *testing.T) {
		status := hc.CheckHealth(context.Background())
		if status.Checks["simulation"].Status != "unhealthy" {
			t.Error("simulation should be unhealthy after the run ended")
		}
	})
}

// TestStateHealthCheck_DetectsEscapedBody corrupts a body and expects the
// state check to fail.
func TestStateHealthCheck_DetectsEscapedBody(t *testing.T) {
	bodies := []physics.Body{
		physics.NewBody(0, physics.Vector2D{X: 50, Y: 50}, physics.Vector2D{X: 1}, 5),
		physics.NewBody(1, physics.Vector2D{X: 500, Y: 50}, physics.Vector2D{}, 5),
	}
	cfg := config.DefaultConfig()
	cfg.Arena.Width, cfg.Arena.Height = 100, 100
	cfg.Population.Count = 0
	cfg.Population.MinRadius, cfg.Population.MaxRadius = 5, 5

	sim, err := engine.NewSimulation(cfg, engine.WithLogger(logging.Discard()), engine.WithBodies(bodies))
	if err != nil {
		t.Fatalf("NewSimulation() error: %v", err)
	}

	check := NewStateHealthCheck(sim, 5)
	if err := check.Check(context.Background()); err == nil {
		t.Error("expected the escaped body to fail the check")
	}

	// One tick contains it again.
	sim.Step()
	if err := check.Check(context.Background()); err != nil {
		t.Errorf("Check() after a tick error = %v", err)
	}
}
