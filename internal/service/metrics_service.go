package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campussched/campussched-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the solving engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	solveDuration    *prometheus.HistogramVec
	solveTotal       *prometheus.CounterVec
	unscheduledTotal prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers the core collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solve_duration_seconds",
		Help:    "Wall-clock duration of solve calls",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"backend", "status"})

	solveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solve_total",
		Help: "Total number of solve calls by backend and outcome",
	}, []string{"backend", "status"})

	unscheduledTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "solve_unscheduled_requests_total",
		Help: "Total number of requests left unscheduled across solve calls",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_hits_total",
		Help: "Solve result cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_misses_total",
		Help: "Solve result cache misses",
	})

	registry.MustRegister(requestDuration, requestTotal,
		solveDuration, solveTotal, unscheduledTotal, cacheHits, cacheMisses)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		solveDuration:    solveDuration,
		solveTotal:       solveTotal,
		unscheduledTotal: unscheduledTotal,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveSolve records one completed solve call.
func (m *MetricsService) ObserveSolve(backend string, status models.Status, duration time.Duration, unscheduled int) {
	m.solveDuration.WithLabelValues(backend, string(status)).Observe(duration.Seconds())
	m.solveTotal.WithLabelValues(backend, string(status)).Inc()
	if unscheduled > 0 {
		m.unscheduledTotal.Add(float64(unscheduled))
	}
}

// CacheHit records a result cache hit.
func (m *MetricsService) CacheHit() { m.cacheHits.Inc() }

// CacheMiss records a result cache miss.
func (m *MetricsService) CacheMiss() { m.cacheMisses.Inc() }
