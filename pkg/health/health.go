// Package health provides health check functionality for the ballsim process.
// It implements HTTP endpoints for liveness and readiness probes and checks
// that watch a running simulation for invalid state.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/physics"
)

// HealthCheck defines the interface for individual health checks.
type HealthCheck interface {
	// Name returns the unique name of this health check
	Name() string
	// Check performs the health check and returns an error if unhealthy
	Check(ctx context.Context) error
}

// HealthStatus represents the overall health status of the process.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents the health status of an individual component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker manages and executes health checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a health check, replacing one with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth executes all registered health checks. The overall status is
// "healthy" only if every check passes.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth),
	}

	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			status.Checks[name] = ComponentHealth{
				Status: "healthy",
			}
		}
	}

	return status
}

// LivenessHandler returns 200 OK while the process can serve requests.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler runs every check and answers 200 OK when all pass, or
// 503 Service Unavailable with the failing checks.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)
	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// StatusHandler serves the JSON encoding of status().
func StatusHandler(status func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, status())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Handler mounts /health and /ready, plus /status when status is not nil.
func (hc *HealthChecker) Handler(status func() any) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	if status != nil {
		mux.HandleFunc("/status", StatusHandler(status))
	}
	return mux
}

// Serve listens on addr and serves handler until ctx is done, then shuts
// the server down within shutdownTimeout.
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *logging.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health server listen on %s: %w", addr, err)
	}
	return serveListener(ctx, ln, handler, shutdownTimeout, logger)
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration, logger *logging.Logger) error {
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting health check server", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Health check server shutdown failed", err)
		return err
	}
	return nil
}

// CheckFunc adapts a function to HealthCheck.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewCheckFunc creates a health check named name that runs fn.
func NewCheckFunc(name string, fn func(ctx context.Context) error) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

// Name returns the name of this health check.
func (c *CheckFunc) Name() string { return c.name }

// Check runs the function.
func (c *CheckFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// SimulationHealthCheck fails while the simulation is not running.
type SimulationHealthCheck struct {
	running func() bool
}

// NewSimulationHealthCheck creates a health check for the simulation loop.
func NewSimulationHealthCheck(running func() bool) *SimulationHealthCheck {
	return &SimulationHealthCheck{running: running}
}

// Name returns the name of this health check.
func (s *SimulationHealthCheck) Name() string {
	return "simulation"
}

// Check verifies that the simulation is running.
func (s *SimulationHealthCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("simulation is not running")
	}
	return nil
}

// Viewer gives read access to a simulation's bodies between ticks.
type Viewer interface {
	View(fn func(tick uint64, bodies []physics.Body))
	Arena() physics.Arena
}

// StateHealthCheck inspects every body for non-finite values and for
// escaping the arena by more than a tolerance.
type StateHealthCheck struct {
	sim       Viewer
	tolerance float64
}

// NewStateHealthCheck creates a state check. Collision correction may push a
// body past a wall until the next tick contains it, so tolerance should be
// at least the largest radius.
func NewStateHealthCheck(sim Viewer, tolerance float64) *StateHealthCheck {
	return &StateHealthCheck{sim: sim, tolerance: tolerance}
}

// Name returns the name of this health check.
func (s *StateHealthCheck) Name() string {
	return "state"
}

// Check reports the first invalid body found.
func (s *StateHealthCheck) Check(ctx context.Context) error {
	arena := s.sim.Arena()
	var err error
	s.sim.View(func(tick uint64, bodies []physics.Body) {
		for i := range bodies {
			b := &bodies[i]
			if !b.Position.IsFinite() || !b.Velocity.IsFinite() {
				err = fmt.Errorf("tick %d: body %d has non-finite state %+v", tick, b.ID, *b)
				return
			}
			if !arena.Holds(b, s.tolerance) {
				err = fmt.Errorf("tick %d: body %d at %v (r=%v) is outside the arena", tick, b.ID, b.Position, b.Radius)
				return
			}
		}
	})
	return err
}
