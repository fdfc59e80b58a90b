// Package health aggregates named checks into a single health report served
// over HTTP.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of one named check.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a check.
type CheckFunc func() Check

// Response is the aggregated report. The worst check status wins.
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    time.Duration    `json:"uptime_seconds"`
}

// HealthChecker manages health and readiness checks.
type HealthChecker struct {
	mu          sync.RWMutex
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc
	started     time.Time
	now         func() time.Time
}

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		started:     time.Now(),
		now:         time.Now,
	}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// Check performs all health checks
func (hc *HealthChecker) Check() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.performChecks(hc.checks)
}

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.performChecks(hc.readyChecks)
}

func (hc *HealthChecker) performChecks(checksMap map[string]CheckFunc) Response {
	now := hc.now()
	response := Response{
		Status:    StatusHealthy,
		Timestamp: now,
		Checks:    make(map[string]Check, len(checksMap)),
		Uptime:    now.Sub(hc.started),
	}

	names := make([]string, 0, len(checksMap))
	for name := range checksMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		start := hc.now()
		check := checksMap[name]()
		check.Name = name
		check.Duration = hc.now().Sub(start)
		check.LastChecked = start
		response.Checks[name] = check

		switch {
		case check.Status == StatusUnhealthy:
			response.Status = StatusUnhealthy
		case check.Status == StatusDegraded && response.Status != StatusUnhealthy:
			response.Status = StatusDegraded
		}
	}
	return response
}
