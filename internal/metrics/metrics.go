// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hitparade"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	ballotsAccepted prometheus.Counter
	ballotsRejected *prometheus.CounterVec
	catalogLookups  *prometheus.CounterVec
	rollovers       prometheus.Counter
	activeWeek      prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ballotsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_accepted_total",
			Help:      "Ballots recorded.",
		}),
		ballotsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ballots_rejected_total",
			Help:      "Ballots rejected by error code.",
		}, []string{"code"}),
		catalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_lookups_total",
			Help:      "Catalog lookups by outcome.",
		}, []string{"outcome"}),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollovers_total",
			Help:      "Completed week rollovers.",
		}),
		activeWeek: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_week_id",
			Help:      "Id of the week currently served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ballotsAccepted,
		m.ballotsRejected,
		m.catalogLookups,
		m.rollovers,
		m.activeWeek,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) BallotAccepted() {
	if m == nil {
		return
	}
	m.ballotsAccepted.Inc()
}

func (m *Metrics) BallotRejected(code string) {
	if m == nil {
		return
	}
	m.ballotsRejected.WithLabelValues(code).Inc()
}

// CatalogLookup implements catalog.Recorder.
func (m *Metrics) CatalogLookup(outcome string) {
	if m == nil {
		return
	}
	m.catalogLookups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Rollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) SetActiveWeek(weekID int) {
	if m == nil {
		return
	}
	m.activeWeek.Set(float64(weekID))
}
