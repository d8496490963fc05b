package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/models"
)

// Payment outcomes reported to metrics.
const (
	PaymentOutcomeSucceeded    = "succeeded"
	PaymentOutcomeRejected     = "rejected"
	PaymentOutcomeGatewayError = "gateway_error"
	PaymentOutcomeNotSaved     = "not_saved"
)

// MetricsService wraps a Prometheus registry and keeps counters for the admin snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	storeDuration   *prometheus.HistogramVec
	staleWrites     prometheus.Counter
	payments        *prometheus.CounterVec
	paymentAmount   *prometheus.CounterVec
	gradeAdvisories prometheus.Counter
	notifications   *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	storeOpCount         uint64
	staleWriteCount      uint64
	paymentOKCount       uint64
	paymentFailCount     uint64
}

// NewMetricsService registers the service collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_store_duration_seconds",
		Help:    "Duration of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "op"})

	staleWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "document_store_stale_writes_total",
		Help: "Saves rejected because the stored version moved",
	})

	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payments by method and outcome",
	}, []string{"method", "outcome"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_amount_total",
		Help: "Sum of applied payment amounts in whole currency units",
	}, []string{"method"})

	gradeAdvisories := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grade_unparsable_components_total",
		Help: "Grade components excluded from a final because they are not numeric",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notifications appended by kind",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		storeDuration, staleWrites, payments, paymentAmount, gradeAdvisories, notifications, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		storeDuration:   storeDuration,
		staleWrites:     staleWrites,
		payments:        payments,
		paymentAmount:   paymentAmount,
		gradeAdvisories: gradeAdvisories,
		notifications:   notifications,
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
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStore records one document store call.
func (m *MetricsService) ObserveStore(collection, op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(collection, op).Observe(duration.Seconds())
	atomic.AddUint64(&m.storeOpCount, 1)
}

// RecordStaleWrite counts a rejected conditional save.
func (m *MetricsService) RecordStaleWrite() {
	if m == nil {
		return
	}
	m.staleWrites.Inc()
	atomic.AddUint64(&m.staleWriteCount, 1)
}

// RecordPayment counts a payment attempt; amount is only summed on success.
func (m *MetricsService) RecordPayment(method, outcome string, amount float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method, outcome).Inc()
	if outcome == PaymentOutcomeSucceeded {
		m.paymentAmount.WithLabelValues(method).Add(amount)
		atomic.AddUint64(&m.paymentOKCount, 1)
		return
	}
	atomic.AddUint64(&m.paymentFailCount, 1)
}

// RecordGradeAdvisories counts excluded grade components.
func (m *MetricsService) RecordGradeAdvisories(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.gradeAdvisories.Add(float64(n))
}

// RecordNotification counts an appended notification.
func (m *MetricsService) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// Snapshot aggregates counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		StoreOperations:          atomic.LoadUint64(&m.storeOpCount),
		StaleWrites:              atomic.LoadUint64(&m.staleWriteCount),
		PaymentsSucceeded:        atomic.LoadUint64(&m.paymentOKCount),
		PaymentsFailed:           atomic.LoadUint64(&m.paymentFailCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
