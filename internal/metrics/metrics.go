// Package metrics exposes Prometheus instrumentation for the back office.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration *prometheus.HistogramVec

	// VehicleTransitionsTotal counts vehicle status transitions by event and outcome.
	VehicleTransitionsTotal *prometheus.CounterVec

	// VersionConflictsTotal counts optimistic concurrency conflicts on vehicles.
	VersionConflictsTotal prometheus.Counter

	// UploadsSweptTotal counts stale pending attachment rows reaped by the sweeper.
	UploadsSweptTotal prometheus.Counter

	// PresignedUploadsTotal counts presigned upload URLs issued.
	PresignedUploadsTotal prometheus.Counter
}

// New creates the metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "meridian",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		VehicleTransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "vehicle_transitions_total",
			Help:      "Vehicle status transitions by event and outcome.",
		}, []string{"event", "outcome"}),
		VersionConflictsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "vehicle_version_conflicts_total",
			Help:      "Optimistic concurrency conflicts on vehicle status writes.",
		}),
		UploadsSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "uploads_swept_total",
			Help:      "Stale pending attachment rows reaped by the sweeper.",
		}),
		PresignedUploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Name:      "presigned_uploads_total",
			Help:      "Presigned upload URLs issued.",
		}),
	}
}

// ObserveTransition records a vehicle transition attempt.
func (m *Metrics) ObserveTransition(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.VehicleTransitionsTotal.WithLabelValues(event, outcome).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPMiddleware instruments requests with the chi route pattern as label so
// per-ID paths don't explode cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chiRoutePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
