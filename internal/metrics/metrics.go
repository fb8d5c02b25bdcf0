// Package metrics registers the bridge's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	// WebhooksReceived counts inbound deliveries by platform and outcome
	// (processed, ignored, rejected, malformed).
	WebhooksReceived *prometheus.CounterVec
	// RemoteFailures counts failed outbound calls by target and operation.
	RemoteFailures *prometheus.CounterVec
	// RetryJobs counts retry-queue jobs by outcome (succeeded, exhausted,
	// dropped).
	RetryJobs *prometheus.CounterVec
	// RetryQueueDepth is the number of jobs waiting in the retry queue.
	RetryQueueDepth prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affbridge_webhooks_received_total",
			Help: "Inbound webhook deliveries by platform and outcome.",
		}, []string{"platform", "outcome"}),
		RemoteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affbridge_remote_failures_total",
			Help: "Failed outbound platform calls by target and operation.",
		}, []string{"target", "op"}),
		RetryJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affbridge_retry_jobs_total",
			Help: "Retry-queue jobs by final outcome.",
		}, []string{"outcome"}),
		RetryQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "affbridge_retry_queue_depth",
			Help: "Jobs currently waiting in the retry queue.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		m.WebhooksReceived,
		m.RemoteFailures,
		m.RetryJobs,
		m.RetryQueueDepth,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
