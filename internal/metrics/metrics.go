// Package metrics exposes Prometheus collectors for index builds, queries and
// the response cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RebuildsTotal counts index rebuilds by outcome (success, error, skipped)
	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_index_rebuilds_total",
			Help: "Total number of similarity index rebuilds",
		},
		[]string{"outcome"},
	)

	// RebuildDuration tracks corpus load plus index build time
	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_index_rebuild_duration_seconds",
			Help:    "Duration of similarity index rebuilds in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// IndexItems is the number of items in the published index
	IndexItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_index_items",
			Help: "Number of items with neighbors in the published index",
		},
	)

	// IndexPairs is the number of retained item pairs in the published index
	IndexPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_index_pairs",
			Help: "Number of retained similarity pairs in the published index",
		},
	)

	// IndexVersion increments on every publish
	IndexVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_index_version",
			Help: "Version number of the published snapshot",
		},
	)

	// QueriesTotal counts recommendation queries by method and outcome
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_queries_total",
			Help: "Total number of recommendation queries",
		},
		[]string{"method", "outcome"},
	)

	// QueryDuration tracks end-to-end query latency
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommender_query_duration_seconds",
			Help:    "Duration of recommendation queries in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method"},
	)

	// UnresolvedTitlesTotal counts liked titles that matched no catalog item
	UnresolvedTitlesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_unresolved_titles_total",
			Help: "Total number of liked titles that could not be resolved",
		},
	)

	// CacheRequestsTotal counts response cache lookups by result (hit, miss, error)
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_cache_requests_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"result"},
	)
)

// RecordRebuild records the outcome and, for completed builds, the duration
func RecordRebuild(outcome string, d time.Duration) {
	RebuildsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		RebuildDuration.Observe(d.Seconds())
	}
}

// RecordPublish updates the index gauges after a snapshot swap
func RecordPublish(version uint64, items, pairs int) {
	IndexVersion.Set(float64(version))
	IndexItems.Set(float64(items))
	IndexPairs.Set(float64(pairs))
}

// RecordQuery records a finished recommendation query
func RecordQuery(method, outcome string, d time.Duration) {
	QueriesTotal.WithLabelValues(method, outcome).Inc()
	QueryDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordUnresolved adds n unresolved titles
func RecordUnresolved(n int) {
	if n > 0 {
		UnresolvedTitlesTotal.Add(float64(n))
	}
}

// RecordCache records a cache lookup result
func RecordCache(result string) {
	CacheRequestsTotal.WithLabelValues(result).Inc()
}
