// pkg/resource/manager.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-trackdrive/pkg/config"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
)

var (
	// ErrGoroutineLimit is returned when StartGoroutine would exceed the limit.
	ErrGoroutineLimit = errors.New("goroutine limit exceeded")
	// ErrStopped is returned when StartGoroutine is called after Shutdown.
	ErrStopped = errors.New("resource manager stopped")
)

// Limits bounds what the runner may consume
type Limits struct {
	MaxMemoryMB     int64
	MaxGoroutines   int
	ShutdownTimeout time.Duration
	CheckInterval   time.Duration
}

// LimitsFromConfig derives limits from the runtime section
func LimitsFromConfig(rc config.RuntimeConfig) Limits {
	return Limits{
		MaxMemoryMB:     rc.MaxMemoryMB,
		MaxGoroutines:   rc.MaxGoroutines,
		ShutdownTimeout: rc.ShutdownTimeout(),
		CheckInterval:   10 * time.Second,
	}
}

// ResourceManager tracks the runner's goroutines (frame loop, health
// server, renderer) so shutdown can wait for them, and samples memory use.
type ResourceManager struct {
	limits Limits

	goroutineCount int64
	memoryUsageMB  int64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	logger  *logging.Logger

	// tracked counts live goroutines by name; wg waits for all of them.
	wg      sync.WaitGroup
	tracked map[string]int

	lastMemoryCheck time.Time
}

// NewResourceManager creates a stopped manager. A nil logger discards logs.
func NewResourceManager(limits Limits, logger *logging.Logger) *ResourceManager {
	if logger == nil {
		logger = logging.Discard()
	}
	if limits.CheckInterval <= 0 {
		limits.CheckInterval = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &ResourceManager{
		limits:          limits,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		logger:          logger,
		tracked:         make(map[string]int),
		lastMemoryCheck: time.Now(),
	}
}

// Start begins periodic memory sampling
func (rm *ResourceManager) Start() error {
	rm.mu.Lock()
	if rm.running {
		rm.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	rm.running = true
	rm.mu.Unlock()

	go rm.monitoringLoop()

	rm.logger.Info(rm.ctx, "resource manager started",
		"max_memory_mb", rm.limits.MaxMemoryMB,
		"max_goroutines", rm.limits.MaxGoroutines,
	)
	return nil
}

// StartGoroutine runs fn on a tracked goroutine. fn's context is cancelled
// when either ctx or the manager shuts down. Panics are logged, not propagated.
func (rm *ResourceManager) StartGoroutine(ctx context.Context, name string, fn func(context.Context)) error {
	if rm.ctx.Err() != nil {
		return fmt.Errorf("%w: starting %s", ErrStopped, name)
	}
	if current := atomic.AddInt64(&rm.goroutineCount, 1); current > int64(rm.limits.MaxGoroutines) {
		atomic.AddInt64(&rm.goroutineCount, -1)
		rm.logger.Warn(ctx, "goroutine limit exceeded",
			"current", current-1,
			"limit", rm.limits.MaxGoroutines,
			"name", name,
		)
		return fmt.Errorf("%w: %d/%d starting %s", ErrGoroutineLimit, current-1, rm.limits.MaxGoroutines, name)
	}
	rm.track(name, 1)

	gctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(rm.ctx, cancel)

	go func() {
		defer rm.track(name, -1)
		defer stop()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				rm.logger.Error(gctx, "goroutine panic", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()

		fn(gctx)
	}()
	return nil
}

// track adjusts the live count for name. On release it also drops
// goroutineCount, which StartGoroutine raised while checking the limit.
func (rm *ResourceManager) track(name string, delta int) {
	rm.mu.Lock()
	rm.tracked[name] += delta
	if rm.tracked[name] <= 0 {
		delete(rm.tracked, name)
	}
	rm.mu.Unlock()

	if delta > 0 {
		rm.wg.Add(delta)
		return
	}
	atomic.AddInt64(&rm.goroutineCount, int64(delta))
	rm.wg.Add(delta)
}

// Running returns the names of tracked goroutines still running, sorted
func (rm *ResourceManager) Running() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	names := make([]string, 0, len(rm.tracked))
	for name, n := range rm.tracked {
		for i := 0; i < n; i++ {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckMemoryUsage samples the heap and compares it with the limit
func (rm *ResourceManager) CheckMemoryUsage() error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	currentMB := int64(m.Alloc / 1024 / 1024)
	atomic.StoreInt64(&rm.memoryUsageMB, currentMB)
	rm.mu.Lock()
	rm.lastMemoryCheck = time.Now()
	rm.mu.Unlock()

	if currentMB > rm.limits.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, rm.limits.MaxMemoryMB)
	}
	return nil
}

// GetGoroutineCount returns the number of tracked goroutines still running
func (rm *ResourceManager) GetGoroutineCount() int64 {
	return atomic.LoadInt64(&rm.goroutineCount)
}

// GetMemoryUsage returns the last sampled heap size in MB
func (rm *ResourceManager) GetMemoryUsage() int64 {
	return atomic.LoadInt64(&rm.memoryUsageMB)
}

// ResourceStats is a point-in-time usage report
type ResourceStats struct {
	GoroutineCount  int64     `json:"goroutine_count"`
	MaxGoroutines   int64     `json:"max_goroutines"`
	MemoryUsageMB   int64     `json:"memory_usage_mb"`
	MaxMemoryMB     int64     `json:"max_memory_mb"`
	LastMemoryCheck time.Time `json:"last_memory_check"`
}

// GetResourceStats returns current usage
func (rm *ResourceManager) GetResourceStats() ResourceStats {
	rm.mu.RLock()
	last := rm.lastMemoryCheck
	rm.mu.RUnlock()

	return ResourceStats{
		GoroutineCount:  rm.GetGoroutineCount(),
		MaxGoroutines:   int64(rm.limits.MaxGoroutines),
		MemoryUsageMB:   rm.GetMemoryUsage(),
		MaxMemoryMB:     rm.limits.MaxMemoryMB,
		LastMemoryCheck: last,
	}
}

// Shutdown cancels every tracked goroutine and waits for them to return,
// bounded by the shutdown timeout.
func (rm *ResourceManager) Shutdown(ctx context.Context) error {
	rm.mu.Lock()
	wasRunning := rm.running
	rm.running = false
	rm.mu.Unlock()

	rm.logger.Info(ctx, "shutting down resource manager")
	rm.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, rm.limits.ShutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-rm.done:
		case <-shutdownCtx.Done():
			rm.logger.Warn(ctx, "resource monitoring loop did not stop in time")
		}
	}
	return rm.waitForGoroutines(shutdownCtx)
}

func (rm *ResourceManager) waitForGoroutines(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		rm.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		running := rm.Running()
		rm.logger.Warn(ctx, "shutdown timeout exceeded with goroutines still running",
			"remaining", len(running),
			"names", running,
		)
		return fmt.Errorf("shutdown timeout: %d goroutines still running: %v", len(running), running)
	}
}

func (rm *ResourceManager) monitoringLoop() {
	defer close(rm.done)

	ticker := time.NewTicker(rm.limits.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := rm.CheckMemoryUsage(); err != nil {
				rm.logger.Error(rm.ctx, "memory limit exceeded", err,
					"current_mb", rm.GetMemoryUsage(),
					"limit_mb", rm.limits.MaxMemoryMB,
				)
			}
			rm.logger.Debug(rm.ctx, "resource usage",
				"goroutines", rm.GetGoroutineCount(),
				"memory_mb", rm.GetMemoryUsage(),
			)
		case <-rm.ctx.Done():
			return
		}
	}
}
