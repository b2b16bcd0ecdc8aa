// Package metrics exposes Prometheus collectors for the HTTP layer and the
// order workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds every collector on a private registry. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersPlaced      prometheus.Counter
	PlacementFailures *prometheus.CounterVec
	PlacementRetries  prometheus.Counter
	StatusTransitions *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		OrdersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders committed successfully.",
		}),
		PlacementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_placement_failures_total",
			Help:      "Rejected or failed order placements by error code.",
		}, []string{"code"}),
		PlacementRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_placement_retries_total",
			Help:      "Placement transactions retried after a write conflict.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Applied order status transitions by target status.",
		}, []string{"to"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.LatencyMS,
		m.OrdersPlaced,
		m.PlacementFailures,
		m.PlacementRetries,
		m.StatusTransitions,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(elapsed.Microseconds()) / 1000)
}

// OrderPlaced counts a committed order.
func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

// PlacementFailed counts a failed placement under its error code.
func (m *Metrics) PlacementFailed(code string) {
	if m == nil {
		return
	}
	m.PlacementFailures.WithLabelValues(code).Inc()
}

// PlacementRetried counts a retried placement attempt.
func (m *Metrics) PlacementRetried() {
	if m == nil {
		return
	}
	m.PlacementRetries.Inc()
}

// StatusChanged counts an applied status transition.
func (m *Metrics) StatusChanged(to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(to).Inc()
}
