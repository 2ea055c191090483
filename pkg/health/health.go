// Package health serves liveness and readiness probes for the headless
// runner. Readiness aggregates named checks over the running simulation.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Probe paths registered by Handler
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
)

// HealthCheck is one named readiness condition.
type HealthCheck interface {
	Name() string
	// Check returns nil when the component is healthy.
	Check(ctx context.Context) error
}

// HealthStatus is the readiness response body
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of one check
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker holds the registered checks
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a checker with no checks
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers check, replacing any check with the same name
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names returns the registered check names in order
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The result is healthy only if all pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve HTTP at all
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs all checks and answers 200, or 503 if any fails
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// Handler returns a mux serving both probes
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(LivenessPath, hc.LivenessHandler)
	mux.HandleFunc(ReadinessPath, hc.ReadinessHandler)
	return mux
}

// FrameLoopHealthCheck fails when the frame counter stops advancing for
// longer than maxStall.
type FrameLoopHealthCheck struct {
	frames   func() uint64
	maxStall time.Duration
	now      func() time.Time

	mu        sync.Mutex
	lastCount uint64
	lastMove  time.Time
}

// NewFrameLoopHealthCheck watches frames, usually Simulation.Frames
func NewFrameLoopHealthCheck(frames func() uint64, maxStall time.Duration) *FrameLoopHealthCheck {
	return &FrameLoopHealthCheck{
		frames:   frames,
		maxStall: maxStall,
		now:      time.Now,
		lastMove: time.Now(),
	}
}

// Name implements HealthCheck
func (f *FrameLoopHealthCheck) Name() string {
	return "frame_loop"
}

// Check implements HealthCheck
func (f *FrameLoopHealthCheck) Check(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	count := f.frames()
	if count != f.lastCount {
		f.lastCount = count
		f.lastMove = now
		return nil
	}
	if count == 0 {
		return fmt.Errorf("frame loop has not started")
	}
	if stalled := now.Sub(f.lastMove); stalled > f.maxStall {
		return fmt.Errorf("frame loop stalled at frame %d for %v", count, stalled.Round(time.Millisecond))
	}
	return nil
}

// PhysicsReadinessHealthCheck fails while the bridge readiness breaker is open,
// meaning the physics backend has stopped producing positions.
type PhysicsReadinessHealthCheck struct {
	state func() gobreaker.State
}

// NewPhysicsReadinessHealthCheck reads the breaker state through state
func NewPhysicsReadinessHealthCheck(state func() gobreaker.State) *PhysicsReadinessHealthCheck {
	return &PhysicsReadinessHealthCheck{state: state}
}

// Name implements HealthCheck
func (p *PhysicsReadinessHealthCheck) Name() string {
	return "physics_readiness"
}

// Check implements HealthCheck
func (p *PhysicsReadinessHealthCheck) Check(ctx context.Context) error {
	if s := p.state(); s == gobreaker.StateOpen {
		return fmt.Errorf("physics readiness breaker is %s", s)
	}
	return nil
}
