package service

import (
	"fmt"
	"net/http"
	"runtime"
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
	uploadsTotal    prometheus.Counter
	cascadeTotal    *prometheus.CounterVec
	cascadeRows     *prometheus.CounterVec
	archiveTotal    prometheus.Counter
	archiveBytes    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
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

	uploadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notes_uploads_total",
		Help: "Total note uploads registered",
	})

	cascadeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_deletes_total",
		Help: "Total cascade deletes by root kind",
	}, []string{"root"})

	cascadeRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_deleted_rows_total",
		Help: "Rows removed by cascade deletes, by entity",
	}, []string{"entity"})

	archiveTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "note_archives_total",
		Help: "Total zip archives assembled",
	})

	archiveBytes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "note_archive_bytes",
		Help:    "Size of assembled zip archives in bytes",
		Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, uploadsTotal, cascadeTotal, cascadeRows, archiveTotal, archiveBytes, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		uploadsTotal:    uploadsTotal,
		cascadeTotal:    cascadeTotal,
		cascadeRows:     cascadeRows,
		archiveTotal:    archiveTotal,
		archiveBytes:    archiveBytes,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordUpload counts a registered note upload.
func (m *MetricsService) RecordUpload() {
	if m == nil {
		return
	}
	m.uploadsTotal.Inc()
}

// RecordCascade counts a completed cascade delete and the rows it removed.
func (m *MetricsService) RecordCascade(root string, branches, subjects, notes int) {
	if m == nil {
		return
	}
	m.cascadeTotal.WithLabelValues(root).Inc()
	m.cascadeRows.WithLabelValues("branches").Add(float64(branches))
	m.cascadeRows.WithLabelValues("subjects").Add(float64(subjects))
	m.cascadeRows.WithLabelValues("notes").Add(float64(notes))
}

// RecordArchive counts an assembled archive and its size.
func (m *MetricsService) RecordArchive(sizeBytes int) {
	if m == nil {
		return
	}
	m.archiveTotal.Inc()
	m.archiveBytes.Observe(float64(sizeBytes))
}

// RecordCacheOperation counts cache hits and misses.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
