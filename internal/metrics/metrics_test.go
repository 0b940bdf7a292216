package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	collectors := []prometheus.Collector{
		TilesRenderedTotal,
		TileRenderDuration,
		ChartCacheResultsTotal,
		ChartCacheEvictionsTotal,
		ChartCacheBytes,
		TileCacheResultsTotal,
		TileCacheEntries,
		OpenerQueueDepth,
		OpenerSubmitDuration,
		OpenerCrashesTotal,
		SymbolCacheDerivationsTotal,
	}
	for _, c := range collectors {
		if c == nil {
			t.Error("metric is nil")
		}
	}
}

func TestRecordTileRender(t *testing.T) {
	TilesRenderedTotal.Reset()

	RecordTileRender("success", 10*time.Millisecond)
	if got := testutil.ToFloat64(TilesRenderedTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 success render, got %v", got)
	}

	RecordTileRender("no_charts", 1*time.Millisecond)
	if got := testutil.ToFloat64(TilesRenderedTotal.WithLabelValues("no_charts")); got != 1 {
		t.Errorf("expected 1 no_charts render, got %v", got)
	}
}

func TestChartCacheMetrics(t *testing.T) {
	ChartCacheResultsTotal.Reset()
	ChartCacheEvictionsTotal.Reset()

	RecordChartCacheResult("hit")
	RecordChartCacheResult("hit")
	RecordChartCacheResult("miss")
	if got := testutil.ToFloat64(ChartCacheResultsTotal.WithLabelValues("hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
	if got := testutil.ToFloat64(ChartCacheResultsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}

	RecordChartCacheEviction("idle")
	if got := testutil.ToFloat64(ChartCacheEvictionsTotal.WithLabelValues("idle")); got != 1 {
		t.Errorf("expected 1 idle eviction, got %v", got)
	}

	SetChartCacheBytes(4096)
	if got := testutil.ToFloat64(ChartCacheBytes); got != 4096 {
		t.Errorf("expected 4096 bytes, got %v", got)
	}
}

func TestTileCacheMetrics(t *testing.T) {
	TileCacheResultsTotal.Reset()

	RecordTileCacheResult(true)
	RecordTileCacheResult(false)
	if got := testutil.ToFloat64(TileCacheResultsTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(TileCacheResultsTotal.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}

	SetTileCacheEntries(7)
	if got := testutil.ToFloat64(TileCacheEntries); got != 7 {
		t.Errorf("expected 7 entries, got %v", got)
	}
}

func TestOpenerMetrics(t *testing.T) {
	SetOpenerQueueDepth(3)
	if got := testutil.ToFloat64(OpenerQueueDepth); got != 3 {
		t.Errorf("expected queue depth 3, got %v", got)
	}

	before := testutil.ToFloat64(OpenerCrashesTotal)
	RecordOpenerCrash()
	if got := testutil.ToFloat64(OpenerCrashesTotal); got != before+1 {
		t.Errorf("expected crash count to increment by 1, got %v (was %v)", got, before)
	}

	RecordOpenerSubmit("success", 50*time.Millisecond) // must not panic
}

func TestSymbolCacheMetrics(t *testing.T) {
	SymbolCacheDerivationsTotal.Reset()

	RecordSymbolCacheResult("computed")
	if got := testutil.ToFloat64(SymbolCacheDerivationsTotal.WithLabelValues("computed")); got != 1 {
		t.Errorf("expected 1 computed derivation, got %v", got)
	}
}
