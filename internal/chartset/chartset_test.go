package chartset

import (
	"testing"

	"github.com/chartkit/enctiles/internal/coord"
)

func info(name string, scale int32, b coord.Bounds) *ChartInfo {
	return &ChartInfo{Name: name, NativeScale: scale, Extent: b}
}

func TestFindChartsForTileOrdersByScale(t *testing.T) {
	cat := NewCatalog(nil)
	set := NewChartSet("harbor", "/charts/harbor")
	set.SetCharts([]*ChartInfo{
		info("COARSE", 500000, coord.Bounds{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}),
		info("FINE", 12000, coord.Bounds{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}),
	})
	cat.AddSet(set)

	z := 2
	x, y := coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)
	tile := coord.TileToBox(z, x, y, 0)

	matches := cat.FindChartsForTile(tile, 0, true)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Info.Name != "FINE" || matches[1].Info.Name != "COARSE" {
		t.Fatalf("expected FINE before COARSE, got %s then %s", matches[0].Info.Name, matches[1].Info.Name)
	}
}

func TestFindChartsForTileExcludesDisabledSets(t *testing.T) {
	cat := NewCatalog(nil)
	set := NewChartSet("harbor", "/charts/harbor")
	set.SetCharts([]*ChartInfo{
		info("A", 50000, coord.Bounds{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}),
	})
	cat.AddSet(set)
	set.Disable()

	z := 2
	x, y := coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)
	tile := coord.TileToBox(z, x, y, 0)

	matches := cat.FindChartsForTile(tile, 0, true)
	if len(matches) != 0 {
		t.Fatalf("expected no matches from a disabled set, got %d", len(matches))
	}
}

func TestFindChartsForTileCoarseCutoffForRendering(t *testing.T) {
	cat := NewCatalog(nil)
	set := NewChartSet("s", "/charts/s")
	set.SetCharts([]*ChartInfo{
		info("WORLD", 20000000, coord.Bounds{MinLon: -180, MinLat: -85, MaxLon: 180, MaxLat: 85}),
		info("HARBOR", 5000, coord.Bounds{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}),
	})
	cat.AddSet(set)

	z := 4
	x, y := coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)
	tile := coord.TileToBox(z, x, y, 0)

	rendering := cat.FindChartsForTile(tile, 0, false)
	for _, m := range rendering {
		if m.Info.Name == "WORLD" {
			t.Fatal("expected the far-coarser WORLD chart to be excluded from the rendering query")
		}
	}

	info := cat.FindChartsForTile(tile, 0, true)
	found := false
	for _, m := range info {
		if m.Info.Name == "WORLD" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the allLower feature-info query to include the WORLD chart")
	}
}

func TestChartSetUnionExtent(t *testing.T) {
	set := NewChartSet("s", "/charts/s")
	set.SetCharts([]*ChartInfo{
		info("A", 1000, coord.Bounds{MinLon: -5, MinLat: -5, MaxLon: 0, MaxLat: 0}),
		info("B", 1000, coord.Bounds{MinLon: 0, MinLat: 0, MaxLon: 5, MaxLat: 5}),
	})
	ext := set.Extent()
	if ext.MinLon != -5 || ext.MaxLon != 5 || ext.MinLat != -5 || ext.MaxLat != 5 {
		t.Fatalf("unexpected union extent: %+v", ext)
	}
	if set.Status() != StatusReady {
		t.Fatalf("expected status READY after SetCharts, got %v", set.Status())
	}
}

func TestCatalogSetsSnapshotSurvivesRemoval(t *testing.T) {
	cat := NewCatalog(nil)
	cat.AddSet(NewChartSet("a", "/a"))
	cat.AddSet(NewChartSet("b", "/b"))

	snapshot := cat.Sets()
	cat.RemoveSet("a")

	if len(snapshot) != 2 {
		t.Fatalf("snapshot should be unaffected by later RemoveSet, got %d entries", len(snapshot))
	}
	if _, ok := cat.Set("a"); ok {
		t.Fatal("expected 'a' to be gone from the live catalog")
	}
}
