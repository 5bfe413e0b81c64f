package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{
			name:   "all up",
			checks: map[string]Check{"index": IndexCheck(func() int { return 3 })},
			want:   StatusUp,
		},
		{
			name: "optional failure degrades",
			checks: map[string]Check{
				"index": IndexCheck(func() int { return 3 }),
				"redis": PingCheck(func(context.Context) error { return errors.New("refused") }, true),
			},
			want: StatusDegraded,
		},
		{
			name: "required failure is down",
			checks: map[string]Check{
				"postgres": PingCheck(func(context.Context) error { return errors.New("refused") }, false),
				"redis":    PingCheck(nil, true),
			},
			want: StatusDown,
		},
		{
			name:   "empty index is down",
			checks: map[string]Check{"index": IndexCheck(func() int { return 0 })},
			want:   StatusDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s (%+v)", report.Status, tt.want, report.Components)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("components = %d, want %d", len(report.Components), len(tt.checks))
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", PingCheck(nil, true))

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded readiness = %d, want 200", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded {
		t.Errorf("status = %s", report.Status)
	}

	c.Register("index", IndexCheck(func() int { return 0 }))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down readiness = %d, want 503", rec.Code)
	}
}
