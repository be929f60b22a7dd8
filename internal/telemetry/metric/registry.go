package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics.
type Registry struct {
	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Token metrics
	TokensIssued  prometheus.Counter
	TokensRevoked prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	AskDuration     prometheus.Histogram
	PublishFailures prometheus.Counter

	// Response metrics
	ResponsesRouted  prometheus.Counter
	ResponsesDropped *prometheus.CounterVec

	reg *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "askgate_connections_active",
			Help: "Number of currently registered connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askgate_connections_total",
			Help: "Total connections accepted since start.",
		}),
		TokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askgate_tokens_issued_total",
			Help: "Total access tokens issued.",
		}),
		TokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askgate_tokens_revoked_total",
			Help: "Total access tokens revoked.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askgate_requests_total",
			Help: "Ask requests by outcome (queued, rejected, failed).",
		}, []string{"outcome"}),
		AskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "askgate_ask_duration_seconds",
			Help:    "Time from request receipt to publish hand-off.",
			Buckets: prometheus.DefBuckets,
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askgate_queue_publish_failures_total",
			Help: "Failed publish hand-offs to the input queue.",
		}),
		ResponsesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "askgate_responses_routed_total",
			Help: "Responses delivered to a live connection.",
		}),
		ResponsesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "askgate_responses_dropped_total",
			Help: "Responses discarded by reason (gone, mismatch, duplicate, malformed).",
		}, []string{"reason"}),
		reg: reg,
	}

	reg.MustRegister(
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.TokensIssued,
		r.TokensRevoked,
		r.RequestsTotal,
		r.AskDuration,
		r.PublishFailures,
		r.ResponsesRouted,
		r.ResponsesDropped,
	)

	return r
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Prometheus exposes the underlying registry so components can attach
// their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}
