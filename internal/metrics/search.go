package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	ResolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_duration_seconds",
			Help:      "Per-entity resolver duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"type", "mode"},
	)

	ResolverFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_failures_total",
			Help:      "Resolver failures that left a global search slot empty",
		},
		[]string{"type"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Searches answered by the substring fallback",
		},
		[]string{"collection"},
	)

	SearchCapability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_capability",
			Help:      "1 for the current search capability of a collection, 0 otherwise",
		},
		[]string{"collection", "capability"},
	)

	EnrichmentCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_cache_total",
			Help:      "Logo cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EnrichmentSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_source_total",
			Help:      "Logo lookups resolved per source",
		},
		[]string{"source"},
	)

	HistoryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_events_total",
			Help:      "Search history records by outcome",
		},
		[]string{"result"}, // "recorded" / "dropped" / "failed"
	)
)

var registerSearchOnce sync.Once

// RegisterSearchMetrics registers search, enrichment and history metrics.
// Safe to call more than once.
func RegisterSearchMetrics(reg prometheus.Registerer) {
	registerSearchOnce.Do(func() {
		reg.MustRegister(
			ResolverDuration,
			ResolverFailuresTotal,
			SearchDegradedTotal,
			SearchCapability,
			EnrichmentCacheTotal,
			EnrichmentSourceTotal,
			HistoryEventsTotal,
		)
	})
}
