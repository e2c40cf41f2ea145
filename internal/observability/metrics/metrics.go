package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	documentsCreated *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	snapshots        prometheus.Counter
	numberingRetries prometheus.Counter
}

// New registers the instruments on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facture_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facture_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		documentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facture_documents_created_total",
			Help: "Documents created by kind (quote, invoice).",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "facture_status_transitions_total",
			Help: "Document status transitions by kind and target status.",
		}, []string{"kind", "to"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facture_invoice_snapshots_total",
			Help: "Invoice versions captured on draft to sent transitions.",
		}),
		numberingRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "facture_numbering_retries_total",
			Help: "Invoice number collisions retried.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.documentsCreated,
		m.transitions,
		m.snapshots,
		m.numberingRetries,
	)
	return m
}

// Registry returns the prometheus registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DocumentCreated(kind string) {
	if m == nil {
		return
	}
	m.documentsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) StatusTransition(kind, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, to).Inc()
}

func (m *Metrics) SnapshotCaptured() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

func (m *Metrics) NumberingRetry() {
	if m == nil {
		return
	}
	m.numberingRetries.Inc()
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
