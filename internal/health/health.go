// Package health reports whether a long-running client is connected to its
// engine. Checks run in parallel under a per-check timeout and roll up into
// liveness and readiness probes served by the probe server.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Checker verifies one dependency.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "event-channel".
	Name() string
	Check(ctx context.Context) *Result
}

// Status represents the health check status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Result represents the result of a health check.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Latency time.Duration  `json:"latency_ns"`
}

// WithDetail adds a detail to the result and returns the result for chaining.
func (r *Result) WithDetail(key string, value any) *Result {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
	return r
}

func Healthy(message string) *Result   { return &Result{Status: StatusHealthy, Message: message} }
func Degraded(message string) *Result  { return &Result{Status: StatusDegraded, Message: message} }
func Unhealthy(message string) *Result { return &Result{Status: StatusUnhealthy, Message: message} }

// Manager runs checks and tracks process lifecycle for the probes.
type Manager struct {
	version string
	started time.Time
	timeout time.Duration

	mu       sync.RWMutex
	checkers []Checker

	shuttingDown atomic.Bool
}

// NewManager creates a manager with a 5 second per-check timeout.
func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: 5 * time.Second,
	}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers a checker.
func (m *Manager) AddChecker(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Check runs every checker in parallel, keyed by name.
func (m *Manager) Check(ctx context.Context) map[string]*Result {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	timeout := m.timeout
	m.mu.RUnlock()

	results := make(map[string]*Result, len(checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			r := c.Check(checkCtx)
			if r.Latency == 0 {
				r.Latency = time.Since(start)
			}

			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return results
}

// Overall is the worst status among results; no results is healthy.
func Overall(results map[string]*Result) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// MarkShutdown makes readiness fail from now on.
func (m *Manager) MarkShutdown() {
	m.shuttingDown.Store(true)
}

// ProbeResult is the body of a probe response.
type ProbeResult struct {
	Status    Status             `json:"status"`
	Version   string             `json:"version,omitempty"`
	Uptime    string             `json:"uptime,omitempty"`
	Checks    map[string]*Result `json:"checks,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func (m *Manager) probe(status Status, checks map[string]*Result) *ProbeResult {
	return &ProbeResult{
		Status:    status,
		Version:   m.version,
		Uptime:    time.Since(m.started).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now(),
	}
}

// Liveness reports the process as alive; degraded while shutting down.
// It runs no checks.
func (m *Manager) Liveness() *ProbeResult {
	if m.shuttingDown.Load() {
		return m.probe(StatusDegraded, nil)
	}
	return m.probe(StatusHealthy, nil)
}

// Readiness runs every check. It is unhealthy while shutting down.
func (m *Manager) Readiness(ctx context.Context) *ProbeResult {
	if m.shuttingDown.Load() {
		return m.probe(StatusUnhealthy, nil)
	}
	checks := m.Check(ctx)
	return m.probe(Overall(checks), checks)
}
