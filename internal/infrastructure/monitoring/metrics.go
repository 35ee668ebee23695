package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one process. Each instance owns
// its registry, so several can coexist in one test binary.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Generation proxy metrics
	Generations *prometheus.CounterVec

	// Upstream call metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	// Relay metrics
	RelayMessages  *prometheus.CounterVec
	PagesConnected prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates collectors under the given namespace ("proxy", "relay").
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000},
			},
			[]string{"method", "path"},
		),

		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Generation requests by response status",
			},
			[]string{"status"},
		),

		UpstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_calls_total",
				Help:      "Calls to identity, key store, vendor and proxy upstreams",
			},
			[]string{"upstream", "outcome"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Upstream call duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"upstream"},
		),

		RelayMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_messages_total",
				Help:      "Relay messages by direction and kind",
			},
			[]string{"direction", "kind"},
		),
		PagesConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pages_connected",
				Help:      "Number of connected page agents",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ResponseSize,
		m.Generations,
		m.UpstreamCalls,
		m.UpstreamDuration,
		m.RelayMessages,
		m.PagesConnected,
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "uptime_seconds",
				Help:      "Process uptime in seconds",
			},
			func() float64 { return time.Since(m.startTime).Seconds() },
		),
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordGeneration records the status a generation request finished with.
func (m *Metrics) RecordGeneration(status int) {
	m.Generations.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordUpstream records one call to an upstream service.
func (m *Metrics) RecordUpstream(upstream, outcome string, duration time.Duration) {
	m.UpstreamCalls.WithLabelValues(upstream, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}

// RecordRelayMessage records a message sent to or received from a page.
// The page methods are safe on a nil receiver.
func (m *Metrics) RecordRelayMessage(direction, kind string) {
	if m == nil {
		return
	}
	m.RelayMessages.WithLabelValues(direction, kind).Inc()
}

// IncPages increments connected pages
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesConnected.Inc()
}

// DecPages decrements connected pages
func (m *Metrics) DecPages() {
	if m == nil {
		return
	}
	m.PagesConnected.Dec()
}
