// Package metrics exposes Prometheus collectors for the server: request
// counts and latency by procedure and status, in-flight requests, bytes
// transferred, and connection counts. Collectors register directly via
// promauto rather than through a global-registry enable flag, since this
// server has exactly one metrics consumer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exportd"

// Metrics holds every collector the server updates while dispatching
// requests and managing connections. A nil *Metrics is valid and every
// method on it is a no-op, so callers that don't want metrics overhead
// can pass nil instead of branching themselves.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	bytesTransferred *prometheus.CounterVec

	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsActive   prometheus.Gauge
}

// New builds a Metrics instance registered against a fresh registry, kept
// separate from the default global registry so the metrics HTTP listener
// only ever exposes this server's own collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	return &Metrics{
		registry: reg,
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total RPC requests processed, by protocol, procedure, and result status.",
			},
			[]string{"proto", "procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "RPC request handling latency, by protocol and procedure.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"proto", "procedure"},
		),
		requestsInFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "RPC requests currently being processed.",
			},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_transferred_total",
				Help:      "Bytes read from or written to the exported filesystem, by direction.",
			},
			[]string{"direction"}, // "read" or "write"
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_accepted_total",
				Help:      "Total TCP connections accepted.",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_closed_total",
				Help:      "Total TCP connections closed.",
			},
		),
		connectionsActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connections_active",
				Help:      "Currently open TCP connections.",
			},
		),
	}
}

// Registry returns the collector registry backing this Metrics, for
// mounting a /metrics handler against it.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordRequest(proto, procedure, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(proto, procedure, status).Inc()
	m.requestDuration.WithLabelValues(proto, procedure).Observe(seconds)
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.requestsInFlight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.requestsInFlight.Dec()
}

func (m *Metrics) RecordBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
	m.connectionsActive.Dec()
}
