package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewMetrics_DisabledIsNilSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	if m != nil {
		t.Fatalf("NewMetrics(disabled): want nil")
	}
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveDraw("exact", "ok", time.Millisecond)
	m.IncRelayed("delivered")
	m.WSConnected()
	m.IncWSEvicted()
	if got := m.DrawCount("exact", "ok"); got != 0 {
		t.Fatalf("DrawCount on nil: want=0 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("WriteHTTP on nil: want=503 got=%d", rec.Code)
	}
}

func TestMetrics_Exposition(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.ObserveDraw("randomized", "ok", 2*time.Millisecond)
	m.ObserveDraw("randomized", "ok", 3*time.Millisecond)
	m.ObserveDraw("none", "infeasible", time.Millisecond)
	m.IncRelayed("delivered")
	m.IncRelayed("duplicate")
	m.WSConnected()
	m.WSConnected()
	m.WSDisconnected()

	if got := m.DrawCount("randomized", "ok"); got != 2 {
		t.Fatalf("DrawCount: want=2 got=%v", got)
	}
	if got := m.RelayedCount("duplicate"); got != 1 {
		t.Fatalf("RelayedCount: want=1 got=%v", got)
	}
	if got := m.WSConnections(); got != 1 {
		t.Fatalf("WSConnections: want=1 got=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE santa_draws_total counter",
		`santa_draws_total{phase="none",outcome="infeasible"}`,
		`santa_relay_messages_total{outcome="delivered"}`,
		"santa_ws_connections 1",
		"santa_draw_duration_seconds_bucket",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}

	// Output order is stable between scrapes.
	var again bytes.Buffer
	_ = m.WritePrometheus(&again)
	if again.String() != out {
		t.Fatalf("exposition is not deterministic")
	}
}

func TestHistogramVec_Exposition(t *testing.T) {
	h := NewHistogramVec("santa_test_seconds", "Test histogram.", []string{"route"}, []float64{0.1, 1})
	h.Observe(0.05, `/a"b`)
	h.Observe(0.5, `/a"b`)
	h.Observe(3, `/a"b`)

	var buf bytes.Buffer
	if err := h.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE santa_test_seconds histogram",
		`santa_test_seconds_bucket{route="/a\"b",le="0.1"} 1`,
		`santa_test_seconds_bucket{route="/a\"b",le="1"} 2`,
		`santa_test_seconds_bucket{route="/a\"b",le="+Inf"} 3`,
		`santa_test_seconds_count{route="/a\"b"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q:\n%s", want, out)
		}
	}
}
