package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	queueEnqueues   prometheus.Counter
	engineDuration  *prometheus.HistogramVec
	engineFailures  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qa_cache_hits_total",
		Help: "Query cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qa_cache_misses_total",
		Help: "Query cache misses",
	})

	queueEnqueues := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "processing_jobs_enqueued_total",
		Help: "Processing jobs pushed onto the work queue",
	})

	engineDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_call_duration_seconds",
		Help:    "Duration of calls to the processing engine",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation"})

	engineFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_call_failures_total",
		Help: "Failed calls to the processing engine",
	}, []string{"operation"})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, queueEnqueues, engineDuration, engineFailures)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		queueEnqueues:   queueEnqueues,
		engineDuration:  engineDuration,
		engineFailures:  engineFailures,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// CacheHit counts a query cache hit.
func (s *MetricsService) CacheHit() { s.cacheHits.Inc() }

// CacheMiss counts a query cache miss.
func (s *MetricsService) CacheMiss() { s.cacheMisses.Inc() }

// JobEnqueued counts a processing job pushed onto the queue.
func (s *MetricsService) JobEnqueued() { s.queueEnqueues.Inc() }

// ObserveEngineCall records the duration and outcome of one engine call.
func (s *MetricsService) ObserveEngineCall(operation string, duration time.Duration, err error) {
	s.engineDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		s.engineFailures.WithLabelValues(operation).Inc()
	}
}
