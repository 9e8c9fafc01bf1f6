package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Solve outcomes recorded by ObserveSolve.
const (
	SolveOutcomeOK         = "ok"
	SolveOutcomeNoSolution = "no_solution"
	SolveOutcomeInvalid    = "invalid_input"
	SolveOutcomeError      = "error"
)

// MetricsSnapshot is a lightweight JSON view of the collected metrics.
type MetricsSnapshot struct {
	SolvesTotal            uint64    `json:"solves_total"`
	SolveFailures          uint64    `json:"solve_failures"`
	AverageSolveDurationMs float64   `json:"average_solve_duration_ms"`
	FallbacksTotal         uint64    `json:"fallbacks_total"`
	CacheHitRatio          float64   `json:"cache_hit_ratio"`
	CacheHits              uint64    `json:"cache_hits"`
	CacheMisses            uint64    `json:"cache_misses"`
	RequestsTotal          uint64    `json:"requests_total"`
	AverageRequestMs       float64   `json:"average_request_duration_ms"`
	Goroutines             int       `json:"goroutines"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
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
	solveDuration   *prometheus.HistogramVec
	solveScore      *prometheus.HistogramVec
	unmetPeriods    *prometheus.HistogramVec
	violations      *prometheus.CounterVec
	fallbacks       prometheus.Counter
	batchClasses    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	solveCount           uint64
	solveFailureCount    uint64
	solveDurationTotal   uint64
	fallbackCount        uint64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
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
		Help:    "Latency for cache operations",
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

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_solve_duration_seconds",
		Help:    "Duration of timetable solves",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"strategy", "outcome"})

	solveScore := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_optimization_score",
		Help:    "Optimization score of generated timetables",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	}, []string{"strategy"})

	unmetPeriods := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_unmet_periods",
		Help:    "Subject periods left unplaced per generated timetable",
		Buckets: []float64{0, 1, 2, 4, 8, 16},
	}, []string{"strategy"})

	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_violations_total",
		Help: "Constraint violations reported on generated timetables",
	}, []string{"kind", "severity"})

	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_fallbacks_total",
		Help: "Solves retried with the greedy strategy after the requested strategy found no solution",
	})

	batchClasses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_batch_classes_total",
		Help: "Classes processed by batch generation",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		solveDuration, solveScore, unmetPeriods, violations, fallbacks, batchClasses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		solveDuration:   solveDuration,
		solveScore:      solveScore,
		unmetPeriods:    unmetPeriods,
		violations:      violations,
		fallbacks:       fallbacks,
		batchClasses:    batchClasses,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
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

// SolveObservation describes one finished engine run.
type SolveObservation struct {
	Strategy   string
	Outcome    string
	Duration   time.Duration
	Score      float64
	Unmet      int
	Violations map[string]int
	Severities map[string]string
	Fallback   bool
}

// ObserveSolve records the duration and quality of a solve.
func (m *MetricsService) ObserveSolve(obs SolveObservation) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(obs.Strategy, obs.Outcome).Observe(obs.Duration.Seconds())
	atomic.AddUint64(&m.solveCount, 1)
	atomic.AddUint64(&m.solveDurationTotal, uint64(obs.Duration.Nanoseconds()))
	if obs.Fallback {
		m.fallbacks.Inc()
		atomic.AddUint64(&m.fallbackCount, 1)
	}
	if obs.Outcome != SolveOutcomeOK {
		atomic.AddUint64(&m.solveFailureCount, 1)
		return
	}
	m.solveScore.WithLabelValues(obs.Strategy).Observe(obs.Score)
	m.unmetPeriods.WithLabelValues(obs.Strategy).Observe(float64(obs.Unmet))
	for kind, count := range obs.Violations {
		m.violations.WithLabelValues(kind, obs.Severities[kind]).Add(float64(count))
	}
}

// ObserveBatchClass counts one class processed by a batch.
func (m *MetricsService) ObserveBatchClass(success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "succeeded"
	}
	m.batchClasses.WithLabelValues(result).Inc()
}

// Snapshot returns aggregated metrics for the JSON summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{GeneratedAt: time.Now().UTC()}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	solves := atomic.LoadUint64(&m.solveCount)
	solveDuration := atomic.LoadUint64(&m.solveDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgSolveMs float64
	if solves > 0 {
		avgSolveMs = float64(solveDuration) / float64(solves) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		SolvesTotal:            solves,
		SolveFailures:          atomic.LoadUint64(&m.solveFailureCount),
		AverageSolveDurationMs: avgSolveMs,
		FallbacksTotal:         atomic.LoadUint64(&m.fallbackCount),
		CacheHitRatio:          cacheRatio,
		CacheHits:              hits,
		CacheMisses:            misses,
		RequestsTotal:          requests,
		AverageRequestMs:       avgRequestMs,
		Goroutines:             runtime.NumGoroutine(),
		GeneratedAt:            time.Now().UTC(),
	}
}
