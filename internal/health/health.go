// Package health reports whether a sync session is keeping up.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// Status is the health of one component or of the whole session.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name    string                 `json:"name"`
	Status  Status                 `json:"status"`
	Message string                 `json:"message"`
	Latency time.Duration          `json:"latency"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Check inspects one component.
type Check func(ctx context.Context) ComponentHealth

// Report is the combined result of all checks.
type Report struct {
	Status     Status            `json:"status"`
	Uptime     string            `json:"uptime"`
	CheckedAt  time.Time         `json:"checked_at"`
	Goroutines int               `json:"goroutines"`
	Components []ComponentHealth `json:"components"`
}

// Monitor runs registered checks on demand.
type Monitor struct {
	mu        sync.RWMutex
	names     []string
	checks    map[string]Check
	startTime time.Time
	timeout   time.Duration
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		checks:    make(map[string]Check),
		startTime: time.Now(),
		timeout:   5 * time.Second,
	}
}

// Register adds or replaces a named check.
func (m *Monitor) Register(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[name]; !ok {
		m.names = append(m.names, name)
	}
	m.checks[name] = check
}

// Check runs every check concurrently. The overall status is the worst
// component status.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.RLock()
	names := append([]string(nil), m.names...)
	checks := make([]Check, len(names))
	for i, n := range names {
		checks[i] = m.checks[n]
	}
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results := make([]ComponentHealth, len(names))
	var wg sync.WaitGroup
	for i := range names {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = run(ctx, names[i], checks[i])
		}(i)
	}
	wg.Wait()

	report := Report{
		Status:     StatusHealthy,
		Uptime:     time.Since(m.startTime).Round(time.Second).String(),
		CheckedAt:  time.Now().UTC(),
		Goroutines: runtime.NumGoroutine(),
		Components: results,
	}
	for _, r := range results {
		if worse(r.Status, report.Status) {
			report.Status = r.Status
		}
	}
	return report
}

func run(ctx context.Context, name string, check Check) (health ComponentHealth) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			health = ComponentHealth{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("check panicked: %v", r),
			}
		}
		health.Name = name
		health.Latency = time.Since(start)
	}()
	return check(ctx)
}

func worse(a, b Status) bool {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	return rank[a] > rank[b]
}

// Handler serves the report as JSON. Degraded sessions still answer 200.
func (m *Monitor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := m.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}

// PushCheck reports the notification channel. A disconnected channel only
// degrades the session because polling keeps state current.
func PushCheck(enabled bool, connected func() bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if !enabled {
			return ComponentHealth{Status: StatusHealthy, Message: "push disabled, polling only"}
		}
		if !connected() {
			return ComponentHealth{Status: StatusDegraded, Message: "push disconnected, polling only"}
		}
		return ComponentHealth{Status: StatusHealthy, Message: "push connected"}
	}
}

// SyncCheck reports how long ago a piece of state was last refreshed.
// Older than maxAge is degraded; older than three times maxAge, or never
// synced, is unhealthy.
func SyncCheck(lastSync func() time.Time, maxAge time.Duration) Check {
	return func(ctx context.Context) ComponentHealth {
		last := lastSync()
		if last.IsZero() {
			return ComponentHealth{Status: StatusUnhealthy, Message: "never synced"}
		}

		age := time.Since(last)
		health := ComponentHealth{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("synced %v ago", age.Round(time.Millisecond)),
			Details: map[string]interface{}{"last_sync": last.UTC()},
		}
		switch {
		case age > 3*maxAge:
			health.Status = StatusUnhealthy
		case age > maxAge:
			health.Status = StatusDegraded
		}
		return health
	}
}
