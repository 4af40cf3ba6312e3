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

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shaderoute",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shaderoute",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Routing metrics
	RouteQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shaderoute",
		Subsystem: "routing",
		Name:      "queries_total",
		Help:      "Total single-criterion route queries by outcome (found, not_found, error)",
	}, []string{"criterion", "outcome"})

	RouteQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shaderoute",
		Subsystem: "routing",
		Name:      "query_duration_seconds",
		Help:      "Duration of single-criterion route queries",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"criterion"})

	// Network metrics
	NetworkBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shaderoute",
		Subsystem: "network",
		Name:      "builds_total",
		Help:      "Total network builds by outcome (ok, not_found, error)",
	}, []string{"outcome"})

	NetworkBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shaderoute",
		Subsystem: "network",
		Name:      "build_duration_seconds",
		Help:      "Duration of loading zones and building a network",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	NetworkEdges = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "shaderoute",
		Subsystem: "network",
		Name:      "edges",
		Help:      "Number of directed edges of every built network",
	}, []string{"dataset"})
)

// unmatchedPath labels requests which matched no route
const unmatchedPath = "unmatched"

// Middleware records request metrics. Path label is the chi route pattern to keep cardinality low.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := unmatchedPath
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// Handler serves Prometheus /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
