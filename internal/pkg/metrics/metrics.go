// Package metrics exposes Prometheus counters for the aggregation and
// scoring pipeline: which tier served each stats request, and how batch
// recalculation runs fare.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var (
	// RollupHits counts stats requests served from a rollup table,
	// labeled by granularity (weekly/monthly/yearly).
	RollupHits = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundpulse",
		Subsystem: "aggregator",
		Name:      "rollup_hits_total",
		Help:      "Stats requests served from a precomputed rollup table.",
	}, []string{"granularity"})

	// RawFallbacks counts stats requests computed directly from raw
	// events, labeled by reason (no_granularity/no_coverage).
	RawFallbacks = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundpulse",
		Subsystem: "aggregator",
		Name:      "raw_fallbacks_total",
		Help:      "Stats requests computed directly from the raw event store.",
	}, []string{"reason"})

	// RecalcRuns counts batch recalculation runs by outcome.
	RecalcRuns = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundpulse",
		Subsystem: "recalc",
		Name:      "runs_total",
		Help:      "Batch score recalculation runs by outcome (completed/failed/deduplicated).",
	}, []string{"outcome"})

	// ArtistsScored counts artists scored by batch recalculation runs.
	ArtistsScored = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "soundpulse",
		Subsystem: "recalc",
		Name:      "artists_scored_total",
		Help:      "Artists scored and persisted by batch recalculation runs.",
	})

	// RollupBucketsBuilt counts rollup buckets written by the builder job.
	RollupBucketsBuilt = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "soundpulse",
		Subsystem: "rollups",
		Name:      "buckets_built_total",
		Help:      "Rollup buckets written by the builder job, by granularity.",
	}, []string{"granularity"})
)

// Registry returns the registry all pipeline metrics are registered on.
// A dedicated registry keeps the default Go runtime collectors out of
// the scrape surface.
func Registry() *prometheus.Registry {
	return registry
}
