package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

// Batch run outcomes.
const (
	BatchOutcomeCompleted = "completed"
	BatchOutcomeSkipped   = "skipped"
	BatchOutcomeFailed    = "failed"
)

// MetricsService owns a private Prometheus registry for HTTP, cache and
// domain instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	linksIssued  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	batchRuns    *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
	batchSeconds *prometheus.HistogramVec
	reports      prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache reads",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		linksIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magic_links_issued_total",
			Help: "Magic links persisted, labelled by delivery outcome",
		}, []string{"delivery"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Student status changes written by the escalation engine",
		}, []string{"from", "to"}),
		batchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_runs_total",
			Help: "Batch job runs by job and outcome",
		}, []string{"job", "outcome"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_items_total",
			Help: "Per-student batch results by job and result",
		}, []string{"job", "result"}),
		batchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Batch job duration",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800},
		}, []string{"job"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weekly_reports_submitted_total",
			Help: "Weekly reports accepted",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheHits, m.cacheMisses,
		m.linksIssued, m.transitions, m.batchRuns, m.batchItems, m.batchSeconds, m.reports,
		goroutines,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return m
}

// Registry exposes the private registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordLinkIssued counts a persisted link by whether its email went out.
func (m *MetricsService) RecordLinkIssued(delivered bool) {
	if m == nil {
		return
	}
	label := "sent"
	if !delivered {
		label = "failed"
	}
	m.linksIssued.WithLabelValues(label).Inc()
}

// RecordStatusTransition counts a written status change.
func (m *MetricsService) RecordStatusTransition(from, to models.StudentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordBatchRun counts one batch run and its duration.
func (m *MetricsService) RecordBatchRun(job, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchRuns.WithLabelValues(job, outcome).Inc()
	m.batchSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordBatchItems adds n per-student results to a job's tally.
func (m *MetricsService) RecordBatchItems(job, result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.batchItems.WithLabelValues(job, result).Add(float64(n))
}

// RecordReportSubmitted counts an accepted weekly report.
func (m *MetricsService) RecordReportSubmitted() {
	if m == nil {
		return
	}
	m.reports.Inc()
}
