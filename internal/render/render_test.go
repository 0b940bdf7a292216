package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/chartset"
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/s52"
	"github.com/chartkit/enctiles/internal/symbol"
)

func baseSettings() RenderSettings {
	return RenderSettings{
		ColourScheme:   "DAY",
		SafetyContour:  10,
		ShallowContour: 2,
		DeepContour:    20,
		Category:       Standard,
		ShowText:       true,
		ShowSoundings:  true,
		ShowLights:     true,
		ShowAnchorage:  true,
		ShowMeta:       false,
		Scale:          50000,
	}
}

func TestSettingsPublisherSequenceAndMD5(t *testing.T) {
	pub := NewSettingsPublisher(baseSettings())
	first := pub.Current()
	if first.Sequence != 1 {
		t.Fatalf("expected initial sequence 1, got %d", first.Sequence)
	}

	unchanged := pub.Publish(baseSettings())
	if unchanged.Sequence != 2 {
		t.Fatalf("expected sequence to bump on every publish, got %d", unchanged.Sequence)
	}
	if unchanged.MD5 != first.MD5 {
		t.Fatalf("expected identical content to produce identical MD5, got %q vs %q", first.MD5, unchanged.MD5)
	}

	changed := baseSettings()
	changed.SafetyContour = 99
	next := pub.Publish(changed)
	if next.MD5 == first.MD5 {
		t.Fatal("expected a content change to change the MD5")
	}
}

func TestCategoryGateMarinersStandardOverride(t *testing.T) {
	s := baseSettings()
	s.Category = MarinersStandard
	s.FeatureVisibility = map[string]bool{"WRECKS": true}

	obj := &RenderObject{Category: s52.Other, Feature: &parser.Feature{ObjectClass: "WRECKS"}}
	if !categoryGate(obj, &s) {
		t.Fatal("expected FeatureVisibility override to make an Other-category object visible")
	}

	obj2 := &RenderObject{Category: s52.Other, Feature: &parser.Feature{ObjectClass: "OBSTRN"}}
	if categoryGate(obj2, &s) {
		t.Fatal("expected an object with no override and non-Standard category to stay hidden")
	}
}

func TestGateSCAMINSuppressesBelowMinimumScale(t *testing.T) {
	s := baseSettings()
	s.UseSCAMIN = true
	s.Scale = 100000 // coarser than SCAMIN

	obj := &RenderObject{
		Category: s52.Standard,
		Priority: 2,
		Feature: &parser.Feature{
			ObjectClass: "DEPCNT",
			Attributes:  map[string]interface{}{"SCAMIN": 50000},
		},
	}
	if gate(obj, &s) {
		t.Fatal("expected an object to be suppressed when the render scale is coarser than its SCAMIN")
	}

	obj.Category = s52.DisplayBase
	if !gate(obj, &s) {
		t.Fatal("expected DISPLAYBASE objects to bypass the SCAMIN gate")
	}
}

func TestGateMetaObjectFilter(t *testing.T) {
	s := baseSettings()
	s.ShowMeta = false
	obj := &RenderObject{Category: s52.DisplayBase, Feature: &parser.Feature{ObjectClass: "M_COVR"}}
	if gate(obj, &s) {
		t.Fatal("expected a meta-object to be suppressed when ShowMeta is false")
	}
	s.ShowMeta = true
	if !gate(obj, &s) {
		t.Fatal("expected a meta-object to be shown once ShowMeta is true")
	}
}

func TestGroupByWeightPartitionsConsecutiveEqualWeights(t *testing.T) {
	in := []chartset.WeightedChart{
		{Weight: 5000, Info: &chartset.ChartInfo{Name: "A"}},
		{Weight: 5000, Info: &chartset.ChartInfo{Name: "B"}},
		{Weight: 50000, Info: &chartset.ChartInfo{Name: "C"}},
	}
	groups := groupByWeight(in)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 {
		t.Fatalf("unexpected group sizes: %+v", groups)
	}
}

// depareLUP builds a minimal DEPARE-like LUP so RenderTile has something to
// draw without pulling in the full default table set.
func depareLUP() *s52.LUP {
	return &s52.LUP{
		Table:      "Area Plain Boundaries",
		TypeCode:   "DEPARE",
		Category:   s52.DisplayBase,
		RuleString: "AC(DEPMS)",
	}
}

func newTestRenderer(t *testing.T, chart *parser.Chart) *Renderer {
	t.Helper()
	tables := s52.NewTables()
	tables.LoadLUPs([]*s52.LUP{depareLUP()})

	catalog := chartset.NewCatalog(nil)
	set := chartset.NewChartSet("test-set", "/charts/test")
	set.SetCharts([]*chartset.ChartInfo{
		{Name: "CELL1", NativeScale: 50000, Extent: coord.Bounds{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10}},
	})
	catalog.AddSet(set)

	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		return chart, 1024, nil
	}

	return &Renderer{
		Catalog:     catalog,
		Charts:      chartcache.New(1<<20, nil),
		Tables:      tables,
		Colours:     DefaultColourSchemes(),
		Symbols:     symbol.NewCache(64),
		Settings:    NewSettingsPublisher(baseSettings()),
		Loader:      loader,
		PixelBorder: 0,
	}
}

func squareChart() *parser.Chart {
	return &parser.Chart{
		Features: []parser.Feature{
			{
				ID:          1,
				ObjectClass: "DEPARE",
				Geometry: parser.Geometry{
					Type: parser.GeometryTypePolygon,
					Coordinates: [][]float64{
						{-1, -1}, {1, -1}, {1, 1}, {-1, 1},
					},
				},
				Attributes: map[string]interface{}{"DRVAL1": 5.0, "DRVAL2": 10.0},
			},
		},
	}
}

func TestRenderTileProducesPaintedPNG(t *testing.T) {
	chart := squareChart()
	r := newTestRenderer(t, chart)

	z := 2
	x, y := coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)

	data, err := r.RenderTile(context.Background(), "test-set", z, x, y)
	if err != nil {
		t.Fatalf("RenderTile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding rendered tile: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != coord.TileSize || b.Dy() != coord.TileSize {
		t.Fatalf("unexpected tile dimensions: %+v", b)
	}

	painted := false
	for py := b.Min.Y; py < b.Max.Y && !painted; py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			_, _, _, a := img.At(px, py).RGBA()
			if a != 0 {
				painted = true
				break
			}
		}
	}
	if !painted {
		t.Fatal("expected the rendered tile to contain at least one painted pixel")
	}
}

func TestRenderTileFiltersBySetKey(t *testing.T) {
	chart := squareChart()
	r := newTestRenderer(t, chart)

	z := 2
	x, y := coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)

	if _, err := r.RenderTile(context.Background(), "other-set", z, x, y); err != ErrNoCharts {
		t.Fatalf("expected ErrNoCharts for a set key with no matching charts, got %v", err)
	}
}
