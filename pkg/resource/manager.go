// pkg/resource/manager.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/config"
	"github.com/urlyy/algorithm-analysis-course-tech-report/pkg/logging"
)

// ErrAlreadyStarted is returned by Start on a running manager.
var ErrAlreadyStarted = errors.New("resource manager already running")

// ErrGoroutineLimit is returned by Go when the task limit is reached.
var ErrGoroutineLimit = errors.New("goroutine limit exceeded")

// Manager supervises the long-running tasks of a ballsim process (the
// simulation loop, the health server, window renderers), samples memory
// usage and bounds how long shutdown may take.
type Manager struct {
	maxMemoryMB     int64
	maxGoroutines   int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	active   atomic.Int64
	memoryMB atomic.Int64
	numGC    atomic.Uint32

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	taskDone chan struct{}

	mu        sync.Mutex
	running   bool
	tasks     map[string]int
	errs      []error
	lastCheck time.Time

	logger *logging.Logger
}

// NewManager creates a manager with the limits of env. A nil logger
// selects logging.NewLogger.
func NewManager(env *config.EnvironmentConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		maxMemoryMB:     env.MaxMemoryMB,
		maxGoroutines:   int64(env.MaxGoroutines),
		shutdownTimeout: env.ShutdownTimeout,
		checkInterval:   env.ResourceCheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		taskDone:        make(chan struct{}, 1),
		tasks:           make(map[string]int),
		logger:          logger.With("component", "resource"),
	}
}

// Start begins periodic memory sampling.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.running = true
	m.mu.Unlock()

	go m.monitoringLoop()

	m.logger.Info(m.ctx, "Resource manager started",
		"max_memory_mb", m.maxMemoryMB,
		"max_goroutines", m.maxGoroutines,
		"check_interval", m.checkInterval,
	)
	return nil
}

// Go runs fn on a tracked goroutine. The context passed to fn is canceled
// when ctx is or when the manager shuts down. A returned error or a panic
// is logged and kept for Err. Go fails without starting fn when the
// goroutine limit is reached.
func (m *Manager) Go(ctx context.Context, name string, fn func(context.Context) error) error {
	if n := m.active.Add(1); n > m.maxGoroutines {
		m.active.Add(-1)
		m.logger.Warn(ctx, "Goroutine limit exceeded",
			"current", n-1,
			"limit", m.maxGoroutines,
			"name", name,
		)
		return fmt.Errorf("%w: %d/%d starting %s", ErrGoroutineLimit, n-1, m.maxGoroutines, name)
	}

	m.mu.Lock()
	m.tasks[name]++
	m.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)

	go func() {
		defer m.active.Add(-1)
		defer m.finishTask(name)
		defer stop()
		defer cancel()

		if err := m.runTask(taskCtx, name, fn); err != nil {
			m.logger.Error(ctx, "Task failed", err, "name", name)
			m.mu.Lock()
			m.errs = append(m.errs, err)
			m.mu.Unlock()
		}
	}()
	return nil
}

func (m *Manager) runTask(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", name, r)
		}
	}()
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("task %s: %w", name, err)
	}
	return nil
}

func (m *Manager) finishTask(name string) {
	m.mu.Lock()
	if m.tasks[name]--; m.tasks[name] <= 0 {
		delete(m.tasks, name)
	}
	m.mu.Unlock()

	select {
	case m.taskDone <- struct{}{}:
	default:
	}
}

// TaskDone signals after a tracked task returns. Signals coalesce.
func (m *Manager) TaskDone() <-chan struct{} {
	return m.taskDone
}

// Tasks returns the sorted names of the running tasks.
func (m *Manager) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tasks))
	for name := range m.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Err returns the errors of failed tasks joined, or nil.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}

// CheckMemoryUsage samples the heap and reports whether it exceeds the limit.
func (m *Manager) CheckMemoryUsage() error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	current := int64(ms.Alloc / 1024 / 1024)
	m.memoryMB.Store(current)
	m.numGC.Store(ms.NumGC)
	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()

	if current > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, m.maxMemoryMB)
	}
	return nil
}

// GoroutineCount returns the number of running tracked tasks.
func (m *Manager) GoroutineCount() int64 {
	return m.active.Load()
}

// MemoryUsage returns the last sampled heap size in MB.
func (m *Manager) MemoryUsage() int64 {
	return m.memoryMB.Load()
}

// Stats contains resource usage statistics.
type Stats struct {
	GoroutineCount int64     `json:"goroutine_count"`
	MaxGoroutines  int64     `json:"max_goroutines"`
	MemoryUsageMB  int64     `json:"memory_usage_mb"`
	MaxMemoryMB    int64     `json:"max_memory_mb"`
	NumGC          uint32    `json:"num_gc"`
	Tasks          []string  `json:"tasks"`
	LastCheck      time.Time `json:"last_check"`
}

// Stats returns the current usage.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	last := m.lastCheck
	m.mu.Unlock()
	return Stats{
		GoroutineCount: m.GoroutineCount(),
		MaxGoroutines:  m.maxGoroutines,
		MemoryUsageMB:  m.MemoryUsage(),
		MaxMemoryMB:    m.maxMemoryMB,
		NumGC:          m.numGC.Load(),
		Tasks:          m.Tasks(),
		LastCheck:      last,
	}
}

// Shutdown cancels every task and waits, at most the configured shutdown
// timeout, for them to return. It returns an error naming the tasks still
// running when the timeout expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.logger.Info(ctx, "Shutting down resource manager", "tasks", m.Tasks())
	m.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-m.done:
		case <-shutdownCtx.Done():
			m.logger.Warn(ctx, "Resource monitoring loop did not stop gracefully")
		}
	}
	return m.waitForTasks(shutdownCtx)
}

func (m *Manager) waitForTasks(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if m.GoroutineCount() == 0 {
			m.logger.Debug(ctx, "All tracked tasks finished")
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			remaining := m.Tasks()
			m.logger.Warn(ctx, "Shutdown timeout exceeded with tasks still running",
				"remaining", remaining,
			)
			return fmt.Errorf("shutdown timeout: %d tasks still running %v", len(remaining), remaining)
		}
	}
}

func (m *Manager) monitoringLoop() {
	defer close(m.done)

	m.performResourceChecks()
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performResourceChecks()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performResourceChecks() {
	if err := m.CheckMemoryUsage(); err != nil {
		m.logger.Error(m.ctx, "Memory limit exceeded", err,
			"current_mb", m.MemoryUsage(),
			"limit_mb", m.maxMemoryMB,
		)
	}
	m.logger.Debug(m.ctx, "Resource usage check",
		"goroutines", m.GoroutineCount(),
		"max_goroutines", m.maxGoroutines,
		"memory_mb", m.MemoryUsage(),
		"tasks", m.Tasks(),
	)
}
