package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fixed(s Status) Check {
	return func(context.Context) ComponentHealth { return ComponentHealth{Status: s} }
}

func TestMonitorWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks []Status
		want   Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor()
			for i, s := range tt.checks {
				m.Register(string(rune('a'+i)), fixed(s))
			}
			report := m.Check(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d", len(report.Components))
			}
		})
	}
}

func TestMonitorKeepsRegistrationOrderAndRecovers(t *testing.T) {
	m := NewMonitor()
	m.Register("push", fixed(StatusHealthy))
	m.Register("broken", func(context.Context) ComponentHealth { panic("boom") })
	m.Register("push", fixed(StatusDegraded))

	report := m.Check(context.Background())
	if len(report.Components) != 2 {
		t.Fatalf("components = %+v", report.Components)
	}
	if report.Components[0].Name != "push" || report.Components[0].Status != StatusDegraded {
		t.Errorf("first = %+v", report.Components[0])
	}
	if report.Components[1].Name != "broken" || report.Components[1].Status != StatusUnhealthy {
		t.Errorf("panicking check = %+v", report.Components[1])
	}
}

func TestSyncCheck(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		last time.Time
		want Status
	}{
		{"never", time.Time{}, StatusUnhealthy},
		{"fresh", now, StatusHealthy},
		{"late", now.Add(-2 * time.Second), StatusDegraded},
		{"stalled", now.Add(-10 * time.Second), StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SyncCheck(func() time.Time { return tt.last }, time.Second)(context.Background())
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

func TestPushCheck(t *testing.T) {
	up := func() bool { return true }
	down := func() bool { return false }

	if s := PushCheck(false, down)(context.Background()).Status; s != StatusHealthy {
		t.Errorf("disabled push = %s", s)
	}
	if s := PushCheck(true, down)(context.Background()).Status; s != StatusDegraded {
		t.Errorf("disconnected push = %s", s)
	}
	if s := PushCheck(true, up)(context.Background()).Status; s != StatusHealthy {
		t.Errorf("connected push = %s", s)
	}
}

func TestHandler(t *testing.T) {
	m := NewMonitor()
	m.Register("summary", fixed(StatusDegraded))

	rec := httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded code = %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded || report.Components[0].Name != "summary" {
		t.Errorf("report = %+v", report)
	}

	m.Register("alerts", fixed(StatusUnhealthy))
	rec = httptest.NewRecorder()
	m.Handler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy code = %d", rec.Code)
	}
}
