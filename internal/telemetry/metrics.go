// Package telemetry provides observability primitives for the assistant gateway.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	ActiveRequests        prometheus.Gauge
	ActiveStreams         prometheus.Gauge
	UpstreamErrors        *prometheus.CounterVec
	RateLimitRejects      prometheus.Counter
	TranscriptionFailures prometheus.Counter
	AuditQueueLength      prometheus.Gauge
	AuditDropped          prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "assistant",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assistant",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assistant",
			Name:      "active_streams",
			Help:      "Number of upstream event streams currently being relayed.",
		}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "upstream_errors_total",
			Help:      "Total upstream stream-open failures.",
		}, []string{"kind"}),

		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "ratelimit_rejects_total",
			Help:      "Total admission-control rejections.",
		}),

		TranscriptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "transcription_failures_total",
			Help:      "Total voice messages that degraded to a transcription-failed instruction.",
		}),

		AuditQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assistant",
			Name:      "audit_queue_length",
			Help:      "Current number of queued audit records.",
		}),

		AuditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assistant",
			Name:      "audit_dropped_total",
			Help:      "Total audit records dropped because the queue was full.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.ActiveStreams,
		m.UpstreamErrors,
		m.RateLimitRejects,
		m.TranscriptionFailures,
		m.AuditQueueLength,
		m.AuditDropped,
	)

	return m
}
