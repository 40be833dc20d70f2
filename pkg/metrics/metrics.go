// Package metrics exposes the Prometheus collectors named in the
// orchestration core's metrics surface. The shape follows
// 88lin-divinesense's ai/metrics exporter: a registry-owning struct with
// one field per collector and thin Record*/Set* methods, rather than
// package-level globals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector the orchestration core reports.
type Registry struct {
	registry *prometheus.Registry

	routingRequestsTotal *prometheus.CounterVec
	routingLatency       *prometheus.HistogramVec

	hitlRequestsTotal  *prometheus.CounterVec
	hitlApprovalTime   prometheus.Histogram
	hitlPendingCount   prometheus.Gauge

	systemSourceRequestsTotal *prometheus.CounterVec

	dialogDuration    prometheus.Histogram
	dialogActiveCount prometheus.Gauge

	semanticEmbeddingFailuresTotal prometheus.Counter
}

// New creates a Registry and registers all collectors against a fresh
// prometheus.Registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		routingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intentcore",
			Name:      "routing_requests_total",
			Help:      "Total routing decisions by category and tier used.",
		}, []string{"category", "layer"}),
		routingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intentcore",
			Name:      "routing_latency_seconds",
			Help:      "Latency of IntentRouter.route by tier used.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"layer"}),
		hitlRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intentcore",
			Name:      "hitl_requests_total",
			Help:      "Total HITL approval requests by risk level and status (pending on creation, then the terminal status).",
		}, []string{"level", "status"}),
		hitlApprovalTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intentcore",
			Name:      "hitl_approval_time_seconds",
			Help:      "Time from approval request creation to terminal transition.",
			Buckets:   prometheus.DefBuckets,
		}),
		hitlPendingCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "intentcore",
			Name:      "hitl_pending_count",
			Help:      "Number of approval requests currently pending.",
		}),
		systemSourceRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intentcore",
			Name:      "system_source_requests_total",
			Help:      "Total requests handled by a system source handler.",
		}, []string{"source"}),
		dialogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intentcore",
			Name:      "dialog_duration_seconds",
			Help:      "Wall-clock duration of a dialog session from start to close.",
			Buckets:   prometheus.DefBuckets,
		}),
		dialogActiveCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "intentcore",
			Name:      "dialog_active_count",
			Help:      "Number of dialog sessions currently active.",
		}),
		semanticEmbeddingFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intentcore",
			Name:      "semantic_embedding_failures_total",
			Help:      "Total embedding calls from the semantic tier that failed or were short-circuited by the breaker.",
		}),
	}

	reg.MustRegister(
		r.routingRequestsTotal,
		r.routingLatency,
		r.hitlRequestsTotal,
		r.hitlApprovalTime,
		r.hitlPendingCount,
		r.systemSourceRequestsTotal,
		r.dialogDuration,
		r.dialogActiveCount,
		r.semanticEmbeddingFailuresTotal,
	)

	return r
}

// ObserveRouting records a completed IntentRouter.route call.
func (r *Registry) ObserveRouting(category, layer string, latencySeconds float64) {
	r.routingRequestsTotal.WithLabelValues(category, layer).Inc()
	r.routingLatency.WithLabelValues(layer).Observe(latencySeconds)
}

// ObserveSystemSource records a request handled by a system source handler.
func (r *Registry) ObserveSystemSource(source string) {
	r.systemSourceRequestsTotal.WithLabelValues(source).Inc()
}

// ObserveHITLTerminal records a HITL request reaching a terminal status.
func (r *Registry) ObserveHITLTerminal(level, status string, approvalTimeSeconds float64) {
	r.hitlRequestsTotal.WithLabelValues(level, status).Inc()
	r.hitlApprovalTime.Observe(approvalTimeSeconds)
}

// ObserveHITLCreated records a HITL request being created.
func (r *Registry) ObserveHITLCreated(level string) {
	r.hitlRequestsTotal.WithLabelValues(level, "pending").Inc()
}

// SetHITLPending sets the current pending-approval gauge.
func (r *Registry) SetHITLPending(count int) {
	r.hitlPendingCount.Set(float64(count))
}

// ObserveDialogClosed records a dialog session's total duration.
func (r *Registry) ObserveDialogClosed(durationSeconds float64) {
	r.dialogDuration.Observe(durationSeconds)
}

// SetDialogActive sets the current active-dialog gauge.
func (r *Registry) SetDialogActive(count int) {
	r.dialogActiveCount.Set(float64(count))
}

// ObserveSemanticEmbeddingFailure records an embedding call that failed or
// was short-circuited by the semantic tier's circuit breaker.
func (r *Registry) ObserveSemanticEmbeddingFailure() {
	r.semanticEmbeddingFailuresTotal.Inc()
}

// Handler returns the HTTP handler serving this registry in Prometheus
// text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
