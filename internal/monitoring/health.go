// internal/monitoring/health.go
package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HealthCheck is a named probe. A failing critical check makes the whole
// service unhealthy; other failures only degrade it.
type HealthCheck struct {
	Name     string
	Critical bool
	Timeout  time.Duration
	Check    func(ctx context.Context) HealthCheckResult
}

// CheckReport is the outcome of one check in a health response.
type CheckReport struct {
	Name     string        `json:"name"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
	HealthCheckResult
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status     HealthStatus  `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	Version    string        `json:"version,omitempty"`
	Uptime     string        `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	Checks     []CheckReport `json:"checks"`
}

// HealthManager runs registered checks on demand.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	version string
	started time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]HealthCheck),
		version: version,
		started: time.Now(),
	}
}

// RegisterCheck registers a new health check, replacing one with the same name.
func (hm *HealthManager) RegisterCheck(check HealthCheck) {
	if check.Timeout <= 0 {
		check.Timeout = 5 * time.Second
	}
	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// GetHealth runs every check and aggregates the result.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	health := SystemHealth{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Version:    hm.version,
		Uptime:     time.Since(hm.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     make([]CheckReport, 0, len(checks)),
	}

	for _, c := range checks {
		report := runCheck(ctx, c)
		health.Checks = append(health.Checks, report)

		if report.Status == HealthStatusHealthy {
			continue
		}
		if c.Critical && report.Status == HealthStatusUnhealthy {
			health.Status = HealthStatusUnhealthy
		} else if health.Status == HealthStatusHealthy {
			health.Status = HealthStatusDegraded
		}
	}

	return health
}

func runCheck(ctx context.Context, c HealthCheck) CheckReport {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	result := HealthCheckResult{Status: HealthStatusDegraded, Message: "no check function defined"}
	if c.Check != nil {
		result = c.Check(checkCtx)
	}

	return CheckReport{
		Name:              c.Name,
		Critical:          c.Critical,
		Duration:          time.Since(start),
		HealthCheckResult: result,
	}
}

// HealthHandler serves the aggregated health as JSON.
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		body, err := sonic.Marshal(health)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_, _ = w.Write(body)
	}
}

// GoroutineHealthCheck degrades when the goroutine count exceeds max.
func GoroutineHealthCheck(max int) HealthCheck {
	return HealthCheck{
		Name: "goroutines",
		Check: func(context.Context) HealthCheckResult {
			n := runtime.NumGoroutine()
			if n > max {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  "goroutine count above threshold",
					Metadata: map[string]interface{}{"count": n, "max": max},
				}
			}
			return HealthCheckResult{Status: HealthStatusHealthy, Metadata: map[string]interface{}{"count": n}}
		},
	}
}
