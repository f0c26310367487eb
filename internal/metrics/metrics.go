// Package metrics exposes Prometheus instruments for the HTTP surface, the
// catalog refresher and the rewards rules.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	catalogEvents     prometheus.Gauge
	catalogDropped    prometheus.Gauge
	catalogRefreshes  *prometheus.CounterVec
	shares            *prometheus.CounterVec
	purchases         *prometheus.CounterVec
}

// New registers every instrument on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		catalogEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_events",
			Help: "Number of valid events in the current catalog snapshot.",
		}),
		catalogDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_dropped_records",
			Help: "Records dropped by validation in the last successful refresh.",
		}),
		catalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Catalog refresh attempts by result (ok, cached, failed).",
		}, []string{"result"}),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "share_total",
			Help: "Share attempts by outcome.",
		}, []string{"status"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "points_purchase_total",
			Help: "Purchases with points by result (ok, declined).",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.catalogEvents,
		m.catalogDropped,
		m.catalogRefreshes,
		m.shares,
		m.purchases,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware records count and latency per route template. It is meant for
// mux.Router.Use so the matched route is known.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m == nil {
			return
		}
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CatalogRefreshed implements catalog.Observer.
func (m *Metrics) CatalogRefreshed(events, dropped int, fromCache bool) {
	if m == nil {
		return
	}
	m.catalogEvents.Set(float64(events))
	m.catalogDropped.Set(float64(dropped))
	result := "ok"
	if fromCache {
		result = "cached"
	}
	m.catalogRefreshes.WithLabelValues(result).Inc()
}

// CatalogFailed implements catalog.Observer.
func (m *Metrics) CatalogFailed() {
	if m == nil {
		return
	}
	m.catalogRefreshes.WithLabelValues("failed").Inc()
}

func (m *Metrics) Share(status string) {
	if m == nil {
		return
	}
	m.shares.WithLabelValues(status).Inc()
}

func (m *Metrics) Purchase(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "declined"
	}
	m.purchases.WithLabelValues(result).Inc()
}
