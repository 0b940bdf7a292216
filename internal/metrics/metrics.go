// Package metrics exposes the server's Prometheus instruments: tile render
// outcome/duration, chart-cache and tile-cache hit/miss/eviction/size, the
// opener pool's queue depth and submit latency, and symbol-cache derivation
// counts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "enctiles"

var (
	TilesRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_rendered_total",
			Help:      "Total number of tile render attempts by outcome.",
		},
		[]string{"outcome"},
	)

	TileRenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tile_render_duration_seconds",
			Help:      "Time spent rendering one tile, from chart lookup through PNG encode.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"outcome"},
	)

	ChartCacheResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_cache_results_total",
			Help:      "Chart cache acquisitions by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	ChartCacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_cache_evictions_total",
			Help:      "Charts evicted from the chart cache by reason (budget, idle).",
		},
		[]string{"reason"},
	)

	ChartCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chart_cache_bytes",
			Help:      "Current estimated memory held by resident charts.",
		},
	)

	TileCacheResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tile_cache_results_total",
			Help:      "Tile cache lookups by result (hit, miss).",
		},
		[]string{"result"},
	)

	TileCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tile_cache_entries",
			Help:      "Current number of tiles held in the tile cache.",
		},
	)

	OpenerQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "opener_queue_depth",
			Help:      "Number of chart-open requests waiting on the opener pool.",
		},
	)

	OpenerSubmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "opener_submit_duration_seconds",
			Help:      "Time an opener pool submission spent queued and running.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 15.0, 30.0},
		},
		[]string{"outcome"},
	)

	OpenerCrashesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opener_crashes_total",
			Help:      "Opener subprocess crashes observed by the pool.",
		},
	)

	SymbolCacheDerivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbol_cache_derivations_total",
			Help:      "Symbol cache lookups by result (reused base, reused derived, computed).",
		},
		[]string{"result"},
	)
)

// RecordTileRender records one RenderTile outcome and its wall-clock cost.
func RecordTileRender(outcome string, d time.Duration) {
	TilesRenderedTotal.WithLabelValues(outcome).Inc()
	TileRenderDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordChartCacheResult records one chartcache.Cache.Acquire outcome.
func RecordChartCacheResult(result string) {
	ChartCacheResultsTotal.WithLabelValues(result).Inc()
}

// RecordChartCacheEviction records one chart evicted from the chart cache.
func RecordChartCacheEviction(reason string) {
	ChartCacheEvictionsTotal.WithLabelValues(reason).Inc()
}

// SetChartCacheBytes publishes the chart cache's current resident size.
func SetChartCacheBytes(n int64) {
	ChartCacheBytes.Set(float64(n))
}

// RecordTileCacheResult records one tilecache.Cache.Get outcome.
func RecordTileCacheResult(hit bool) {
	if hit {
		TileCacheResultsTotal.WithLabelValues("hit").Inc()
		return
	}
	TileCacheResultsTotal.WithLabelValues("miss").Inc()
}

// SetTileCacheEntries publishes the tile cache's current entry count.
func SetTileCacheEntries(n int) {
	TileCacheEntries.Set(float64(n))
}

// SetOpenerQueueDepth publishes the opener pool's current queue depth.
func SetOpenerQueueDepth(n int) {
	OpenerQueueDepth.Set(float64(n))
}

// RecordOpenerSubmit records one opener.Pool.Submit call's outcome and cost.
func RecordOpenerSubmit(outcome string, d time.Duration) {
	OpenerSubmitDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordOpenerCrash records one opener subprocess crash.
func RecordOpenerCrash() {
	OpenerCrashesTotal.Inc()
}

// RecordSymbolCacheResult records one symbol.Cache.Get outcome.
func RecordSymbolCacheResult(result string) {
	SymbolCacheDerivationsTotal.WithLabelValues(result).Inc()
}
