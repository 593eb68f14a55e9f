package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch outcomes per strategy
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_fetch_requests_total",
			Help: "Total number of fetches mediated by the offline cache",
		},
		[]string{"strategy", "source"}, // source: cache, network, fallback, error
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"level"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"level"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of best-effort cache I/O failures",
		},
		[]string{"level", "kind"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "level"},
	)

	// Lifecycle
	LifecycleEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_lifecycle_events_total",
			Help: "Total number of install/activate runs by result",
		},
		[]string{"event", "result"},
	)

	PrecacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_precache_entries",
			Help: "Number of manifest entries stored by the last successful install",
		},
	)

	NamespacesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_namespaces_deleted_total",
			Help: "Total number of stale cache namespaces deleted on activation",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_notifications_total",
			Help: "Total number of notifications shown",
		},
		[]string{"source"}, // sync, push
	)

	// L1 capacity metrics only (if L1 is in-memory)
	CacheCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_capacity_bytes",
			Help: "L1 cache capacity in bytes",
		},
		[]string{"level"},
	)

	CacheKeys = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_keys",
			Help: "Number of entries held by a cache level",
		},
		[]string{"level"},
	)
)

// RecordFetch records how a fetch was served
func RecordFetch(strategy, source string) {
	FetchRequests.WithLabelValues(strategy, source).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit(level string) {
	CacheHits.WithLabelValues(level).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(level string) {
	CacheMisses.WithLabelValues(level).Inc()
}

// RecordCacheError records a cache error with level and kind
func RecordCacheError(level, kind string) {
	CacheErrors.WithLabelValues(level, kind).Inc()
}

// RecordLifecycleEvent records the result of an install, activate or restore run
func RecordLifecycleEvent(event, result string) {
	LifecycleEvents.WithLabelValues(event, result).Inc()
}

// SetPrecacheEntries records how many manifest entries the last install stored
func SetPrecacheEntries(count int) {
	PrecacheEntries.Set(float64(count))
}

// RecordNamespaceDeleted records one stale namespace removal
func RecordNamespaceDeleted() {
	NamespacesDeleted.Inc()
}

// RecordNotification records a shown notification
func RecordNotification(source string) {
	Notifications.WithLabelValues(source).Inc()
}

// UpdateL1CacheCapacity updates L1 cache capacity metrics only
func UpdateL1CacheCapacity(capacity int64) {
	CacheCapacity.WithLabelValues("l1").Set(float64(capacity))
}

// UpdateCacheKeys updates the number of keys in cache
func UpdateCacheKeys(level string, count int64) {
	CacheKeys.WithLabelValues(level).Set(float64(count))
}

// TimeCacheOperation returns a timer function for measuring cache operation duration
func TimeCacheOperation(operation, level string) func() {
	timer := prometheus.NewTimer(CacheOperationDuration.WithLabelValues(operation, level))
	return func() {
		timer.ObserveDuration()
	}
}
