// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports the manager's memory and task usage.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a health check for m.
func NewHealthCheck(m *Manager) *HealthCheck {
	return &HealthCheck{manager: m}
}

// Name returns "resource".
func (h *HealthCheck) Name() string {
	return "resource"
}

// Check samples memory and fails when it exceeds the limit, or when the
// tracked tasks use more than 80% of the goroutine limit.
func (h *HealthCheck) Check(ctx context.Context) error {
	if err := h.manager.CheckMemoryUsage(); err != nil {
		return err
	}

	stats := h.manager.Stats()
	threshold := int64(float64(stats.MaxGoroutines) * 0.8)
	if stats.GoroutineCount > threshold {
		return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
			stats.GoroutineCount, threshold, stats.MaxGoroutines)
	}
	return nil
}
