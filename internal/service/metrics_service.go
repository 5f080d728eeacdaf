package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation of the HTTP surface, imports and document generation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	validations     *prometheus.CounterVec
	imports         *prometheus.CounterVec
	documents       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invigilation_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_validations_total",
		Help: "Spreadsheet validations by file kind and result",
	}, []string{"kind", "result"})

	imports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_imports_total",
		Help: "Import lifecycle transitions by file kind and reached state",
	}, []string{"kind", "state"})

	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_documents_total",
		Help: "Rendered documents by kind and result",
	}, []string{"kind", "result"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invigilation_verdict_cache_lookups_total",
		Help: "Verdict cache lookups by outcome",
	}, []string{"outcome"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "invigilation_verdict_cache_latency_seconds",
		Help:    "Latency of verdict cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "invigilation_goroutines",
		Help: "Number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, validations, imports, documents, cacheLookups, cacheLatency, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		validations:     validations,
		imports:         imports,
		documents:       documents,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordValidation counts one verdict. Its signature matches validation.Observer.
func (m *MetricsService) RecordValidation(kind string, verdict models.ValidationVerdict) {
	if m == nil {
		return
	}
	result := "valid"
	switch {
	case verdict.Failure != nil:
		result = "failed"
	case !verdict.Valid:
		result = "invalid"
	}
	m.validations.WithLabelValues(kind, result).Inc()
}

// RecordImport counts an import reaching state.
func (m *MetricsService) RecordImport(kind string, state models.ImportState) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(kind, string(state)).Inc()
}

// RecordDocument counts one rendered or failed document.
func (m *MetricsService) RecordDocument(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "generated"
	if !ok {
		result = "failed"
	}
	m.documents.WithLabelValues(kind, result).Inc()
}

// RecordCacheOperation records a verdict cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
	m.cacheLatency.Observe(duration.Seconds())
}
