package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the capture pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Byte source metrics
	BytesReadTotal  prometheus.Counter
	ReadErrorsTotal prometheus.Counter

	// Line metrics
	LinesTotal        prometheus.Counter
	LinesWrittenTotal prometheus.Counter

	// Session metrics
	SessionsTotal prometheus.Counter
	SessionActive prometheus.Gauge

	// Mirror metrics
	MirrorFailuresTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		// Byte source metrics
		BytesReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_bytes_read_total",
				Help: "Total number of bytes read from the serial device",
			},
		),
		ReadErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_read_errors_total",
				Help: "Total number of ignored serial read errors",
			},
		),

		// Line metrics
		LinesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_lines_total",
				Help: "Total number of completed lines",
			},
		),
		LinesWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_lines_written_total",
				Help: "Total number of lines appended to capture files",
			},
		),

		// Session metrics
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_sessions_total",
				Help: "Total number of capture sessions started",
			},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "seriallog_session_active",
				Help: "1 while a capture file is open, 0 otherwise",
			},
		),

		// Mirror metrics
		MirrorFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seriallog_mirror_failures_total",
				Help: "Total number of lines the mirror failed to send",
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.BytesReadTotal)
	m.registry.MustRegister(m.ReadErrorsTotal)
	m.registry.MustRegister(m.LinesTotal)
	m.registry.MustRegister(m.LinesWrittenTotal)
	m.registry.MustRegister(m.SessionsTotal)
	m.registry.MustRegister(m.SessionActive)
	m.registry.MustRegister(m.MirrorFailuresTotal)
}

// RecordRead records the outcome of one byte source read
func (m *Metrics) RecordRead(n int, err error) {
	if m == nil {
		return
	}
	if n > 0 {
		m.BytesReadTotal.Add(float64(n))
	}
	if err != nil {
		m.ReadErrorsTotal.Inc()
	}
}

// RecordLine records a completed line and whether it was written to a file
func (m *Metrics) RecordLine(written bool) {
	if m == nil {
		return
	}
	m.LinesTotal.Inc()
	if written {
		m.LinesWrittenTotal.Inc()
	}
}

// RecordSessionStart records a newly opened capture file
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
	m.SessionActive.Set(1)
}

// RecordSessionEnd records that no capture file is open
func (m *Metrics) RecordSessionEnd() {
	if m == nil {
		return
	}
	m.SessionActive.Set(0)
}

// RecordMirrorFailure records a failed mirror send
func (m *Metrics) RecordMirrorFailure() {
	if m == nil {
		return
	}
	m.MirrorFailuresTotal.Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
