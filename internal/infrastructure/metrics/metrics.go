// Package metrics collects client-side Prometheus metrics: outbound HTTP
// calls, retries, WebSocket traffic and debounce coalescing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metric names, without namespace.
const (
	MetricRequestsTotal          = "http_requests_total"
	MetricRequestDurationSeconds = "http_request_duration_seconds"
	MetricRetriesTotal           = "http_retries_total"
	MetricWSMessagesTotal        = "ws_messages_total"
	MetricWSReconnectsTotal      = "ws_reconnects_total"
	MetricDebounceCoalesced      = "debounce_coalesced_total"
)

// Config holds collector configuration.
type Config struct {
	// Namespace prefixes every metric. Default: "storefront"
	Namespace string

	// HistogramBuckets are the buckets for request duration.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace:        "storefront",
		HistogramBuckets: prometheus.DefBuckets,
	}
}

// Collector owns a private registry so that several clients in one process
// (tests, the sandbox) do not collide on the global one.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	wsMessagesTotal   *prometheus.CounterVec
	wsReconnectsTotal prometheus.Counter
	debounceCoalesced *prometheus.CounterVec
}

// New creates a collector and registers its metrics.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "storefront"
	}
	if len(cfg.HistogramBuckets) == 0 {
		cfg.HistogramBuckets = prometheus.DefBuckets
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRequestsTotal,
			Help:      "Outbound API requests by method and status code. Every attempt counts.",
		},
		[]string{"method", "status"},
	)
	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRequestDurationSeconds,
			Help:      "Duration of outbound API attempts in seconds.",
			Buckets:   cfg.HistogramBuckets,
		},
		[]string{"method"},
	)
	c.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricRetriesTotal,
			Help:      "Retries scheduled by the API client, by reason.",
		},
		[]string{"reason"},
	)
	c.wsMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricWSMessagesTotal,
			Help:      "WebSocket messages by direction and type.",
		},
		[]string{"direction", "type"},
	)
	c.wsReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricWSReconnectsTotal,
			Help:      "WebSocket reconnect attempts.",
		},
	)
	c.debounceCoalesced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      MetricDebounceCoalesced,
			Help:      "Calls absorbed by a debounce window instead of reaching the backend.",
		},
		[]string{"key"},
	)

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.retriesTotal,
		c.wsMessagesTotal,
		c.wsReconnectsTotal,
		c.debounceCoalesced,
	)
	return c
}

// ObserveRequest records one HTTP attempt. Status 0 means no response.
func (c *Collector) ObserveRequest(method string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// IncRetry records a scheduled retry.
func (c *Collector) IncRetry(reason string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(reason).Inc()
}

// IncWSMessage records a WebSocket message; direction is "in" or "out".
func (c *Collector) IncWSMessage(direction, msgType string) {
	if c == nil {
		return
	}
	c.wsMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// IncWSReconnect records a reconnect attempt.
func (c *Collector) IncWSReconnect() {
	if c == nil {
		return
	}
	c.wsReconnectsTotal.Inc()
}

// IncDebounceCoalesced records a call that joined a pending debounce window.
func (c *Collector) IncDebounceCoalesced(key string) {
	if c == nil {
		return
	}
	c.debounceCoalesced.WithLabelValues(key).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gather returns the current metric families.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	return c.registry.Gather()
}
