// pkg/health/ratelimit.go
package health

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket. Each client may make
// maxRequests requests per window; tokens refill in proportion to the
// time elapsed.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket

	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine, which
// forgets clients idle for two windows. Close stops it.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := newRateLimiter(maxRequests, window, time.Now)
	rl.cleanupTick = time.NewTicker(window)
	go rl.cleanup()
	return rl
}

func newRateLimiter(maxRequests int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         now,
		clients:     make(map[string]*clientBucket),
		done:        make(chan struct{}),
	}
}

// Allow consumes a token for clientID and reports whether one was left.
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[clientID]
	if !ok {
		b = &clientBucket{tokens: rl.maxRequests, lastRefill: now}
		rl.clients[clientID] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 && b.tokens < rl.maxRequests {
		refill := int(float64(rl.maxRequests) * float64(elapsed) / float64(rl.window))
		if refill > 0 {
			b.tokens = min(rl.maxRequests, b.tokens+refill)
			b.lastRefill = now
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.removeInactiveClients()
		case <-rl.done:
			return
		}
	}
}

// removeInactiveClients forgets clients that have not refilled for two
// windows.
func (rl *RateLimiter) removeInactiveClients() {
	cutoff := rl.now().Add(-2 * rl.window)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, b := range rl.clients {
		if b.lastRefill.Before(cutoff) {
			delete(rl.clients, id)
		}
	}
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		if rl.cleanupTick != nil {
			rl.cleanupTick.Stop()
		}
	})
}

// RateLimit rejects requests beyond rl's limit for the remote host with
// 429 Too Many Requests.
func RateLimit(next http.Handler, rl *RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.Allow(host) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
