package metric

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	r.ConnectionsActive.Inc()
	r.ConnectionsTotal.Inc()
	r.TokensIssued.Inc()
	r.RequestsTotal.WithLabelValues("queued").Inc()
	r.ResponsesDropped.WithLabelValues("gone").Inc()

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"askgate_connections_active",
		"askgate_connections_total",
		"askgate_tokens_issued_total",
		"askgate_requests_total",
		"askgate_responses_dropped_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ResponsesRouted.Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "askgate_responses_routed_total 1") {
		t.Error("routed counter missing from /metrics output")
	}
}
