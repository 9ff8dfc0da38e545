// Package metrics tracks runtime statistics of the server and exposes
// them in Prometheus format.
//
// All methods are safe for concurrent use: the event loop records, the
// optional HTTP endpoint reads.  A nil *Collector is a valid no-op
// receiver, so callers never need to nil-check.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ircserv"

// UnknownVerb is the label recorded for verbs with no handler, keeping
// the label set bounded.
const UnknownVerb = "unknown"

// Collector owns a private Prometheus registry and the series below.
type Collector struct {
	registry *prometheus.Registry

	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	connectionDuration prometheus.Histogram
	bytesIn            prometheus.Counter
	bytesOut           prometheus.Counter
	commands           *prometheus.CounterVec
	replies            *prometheus.CounterVec
	registrations      prometheus.Counter
	errors             *prometheus.CounterVec
}

// New creates a collector registered on a fresh registry, together with
// the standard Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		connectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_current",
			Help:      "Current number of registered connections",
		}),
		connectionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total number of connections accepted",
		}),
		connectionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of closed connections in seconds",
			Buckets:   []float64{1, 10, 60, 300, 1800, 3600, 21600, 86400},
		}),
		bytesIn: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Bytes read from client connections",
		}),
		bytesOut: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Bytes written to client connections",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command lines dispatched, by verb",
		}, []string{"verb"}),
		replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Numeric replies emitted, by code",
		}, []string{"code"}),
		registrations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Sessions that supplied password, nickname and username",
		}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Isolated connection-level failures, by operation",
		}, []string{"op"}),
	}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Inc()
	c.connectionsTotal.Inc()
}

// ConnectionClosed decrements the active gauge and observes how long the
// connection lived.
func (c *Collector) ConnectionClosed(lifetime time.Duration) {
	if c == nil {
		return
	}
	c.connectionsActive.Dec()
	c.connectionDuration.Observe(lifetime.Seconds())
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int) {
	if c == nil {
		return
	}
	c.bytesIn.Add(float64(n))
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(float64(n))
}

// ── Protocol metrics ─────────────────────────────────────────────────

// CommandDispatched counts one dispatched line.  Pass UnknownVerb for
// verbs without a handler.
func (c *Collector) CommandDispatched(verb string) {
	if c == nil {
		return
	}
	c.commands.WithLabelValues(verb).Inc()
}

// ReplySent counts one emitted numeric reply.
func (c *Collector) ReplySent(code string) {
	if c == nil {
		return
	}
	c.replies.WithLabelValues(code).Inc()
}

// Registered counts a session completing registration.
func (c *Collector) Registered() {
	if c == nil {
		return
	}
	c.registrations.Inc()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError counts an isolated failure of op ("accept", "read",
// "write", "fcntl", "overflow").
func (c *Collector) RecordError(op string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(op).Inc()
}

// ── Exposition ───────────────────────────────────────────────────────

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector in the Prometheus text format.  A nil
// collector serves an empty registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
