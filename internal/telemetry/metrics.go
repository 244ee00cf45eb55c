// Package telemetry provides Prometheus instrumentation, optional
// Redis-backed rolling counters, and OpenTelemetry tracing for
// lowdown's proxy and admin paths, grounded on the metrics package
// used elsewhere in the corpus for a comparable fetch-proxy.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters and a histogram for every
// lifecycle stage lowdown exercises: matches, each fault kind, and
// forward outcomes.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal  *prometheus.CounterVec
	faultsTotal    *prometheus.CounterVec
	requestLatency prometheus.Histogram
	oneOffQueue    prometheus.Gauge
}

// New creates a Metrics instance with its own Prometheus registry, the
// way the rest of the corpus avoids the global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lowdown",
		Name:      "requests_total",
		Help:      "Total number of proxied requests by outcome.",
	}, []string{"outcome"})

	faultsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lowdown",
		Name:      "faults_total",
		Help:      "Total number of fault behaviors activated, by kind.",
	}, []string{"kind"})

	requestLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lowdown",
		Name:      "request_duration_seconds",
		Help:      "End-to-end request latency in seconds, including injected delays.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	oneOffQueue := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lowdown",
		Name:      "one_off_queue_depth",
		Help:      "Current number of queued, unconsumed one-off rules.",
	})

	reg.MustRegister(requestsTotal, faultsTotal, requestLatency, oneOffQueue)

	return &Metrics{
		registry:       reg,
		requestsTotal:  requestsTotal,
		faultsTotal:    faultsTotal,
		requestLatency: requestLatency,
		oneOffQueue:    oneOffQueue,
	}
}

// RecordRequest records a completed request's outcome and latency.
// outcome is one of "forwarded", "failed", "config_error".
func (m *Metrics) RecordRequest(outcome string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(outcome).Inc()
	m.requestLatency.Observe(duration.Seconds())
}

// RecordFault records a single fault behavior firing. kind is one of
// "delay_before", "delay_after", "fail_before", "fail_after", "duplicate".
func (m *Metrics) RecordFault(kind string) {
	m.faultsTotal.WithLabelValues(kind).Inc()
}

// SetOneOffQueueDepth reports the current queue length after a push or
// consumption.
func (m *Metrics) SetOneOffQueueDepth(n int) {
	m.oneOffQueue.Set(float64(n))
}

// Handler returns an HTTP handler serving /metrics in Prometheus text
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
