package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "helpdesk"

// Metrics holds the Prometheus collectors exported by the API.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	roleResolutions *prometheus.CounterVec
	chatQueueDepth  prometheus.Gauge
	registryLookups *prometheus.CounterVec
}

// NewMetrics registers every collector on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP requests that ended in an error, by error code.",
		}, []string{"route", "method", "code"}),
		roleResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_resolutions_total",
			Help:      "Effective role resolutions, by resulting role or failure code.",
		}, []string{"result"}),
		chatQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chat_queue_depth",
			Help:      "Clients currently waiting for an operator.",
		}),
		registryLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_lookups_total",
			Help:      "Company registry lookups, by source (cache, remote, error).",
		}, []string{"source"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordRoleResolution counts a resolved role or a failure code.
func (m *Metrics) RecordRoleResolution(result string) {
	if m == nil {
		return
	}
	m.roleResolutions.WithLabelValues(result).Inc()
}

// SetChatQueueDepth publishes the current waiting queue length.
func (m *Metrics) SetChatQueueDepth(depth int64) {
	if m == nil {
		return
	}
	m.chatQueueDepth.Set(float64(depth))
}

// RecordRegistryLookup counts registry lookups by source.
func (m *Metrics) RecordRegistryLookup(source string) {
	if m == nil {
		return
	}
	m.registryLookups.WithLabelValues(source).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
