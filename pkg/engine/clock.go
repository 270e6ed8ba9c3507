// pkg/engine/clock.go
package engine

import (
	"sync"
	"time"
)

// Clock supplies wall-clock time for instrumentation. Physics never reads it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// DefaultRateWindow is the averaging window of the tick rate display.
const DefaultRateWindow = time.Second

// RateMeter measures ticks per second over fixed windows. The published
// rate changes once per window.
type RateMeter struct {
	mu          sync.Mutex
	window      time.Duration
	windowStart time.Time
	frames      int
	rate        float64
}

// NewRateMeter creates a meter averaging over window. A non-positive window
// selects DefaultRateWindow.
func NewRateMeter(window time.Duration) *RateMeter {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateMeter{window: window}
}

// Tick records one frame at now. The first call only starts the window.
func (m *RateMeter) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.windowStart.IsZero() {
		m.windowStart = now
		return
	}
	m.frames++
	if elapsed := now.Sub(m.windowStart); elapsed >= m.window {
		m.rate = float64(m.frames) / elapsed.Seconds()
		m.frames = 0
		m.windowStart = now
	}
}

// Rate returns the rate measured over the last complete window, or 0.
func (m *RateMeter) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}
