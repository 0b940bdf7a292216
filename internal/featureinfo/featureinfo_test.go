package featureinfo

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/chartset"
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/render"
	"github.com/chartkit/enctiles/internal/s52"
	"github.com/chartkit/enctiles/internal/symbol"
)

func testSettings() render.RenderSettings {
	return render.RenderSettings{
		ColourScheme:  "DAY",
		SafetyContour: 10,
		Category:      render.Other,
		ShowText:      true,
		ShowSoundings: true,
		ShowLights:    true,
		ShowAnchorage: true,
		ShowMeta:      true,
	}
}

func testTables() *s52.Tables {
	tables := s52.NewTables()
	tables.LoadLUPs([]*s52.LUP{
		// A DEPARE with no AC/AP fill rule (deliberately, to exercise the
		// point-in-polygon fallback path).
		{Table: "t", TypeCode: "DEPARE", Category: s52.Other, RuleString: "LS(SOLID,1,CSTLN)"},
		{Table: "t", TypeCode: "LIGHTS", Category: s52.Other, RuleString: "SY(LIGHTSYM)"},
		{Table: "t", TypeCode: "SOUNDG", Category: s52.Other, RuleString: "MP(SOUNDG1)"},
	})
	return tables
}

func squareFeature(id int64) parser.Feature {
	return parser.Feature{
		ID:          id,
		ObjectClass: "DEPARE",
		Geometry: parser.Geometry{
			Type: parser.GeometryTypePolygon,
			Coordinates: [][]float64{
				{-5, -5}, {5, -5}, {5, 5}, {-5, 5},
			},
		},
		Attributes: map[string]interface{}{"DRVAL1": 5.0, "DRVAL2": 10.0},
	}
}

func newFinder(t *testing.T, charts map[string]*parser.Chart) (*Finder, *chartset.Catalog) {
	t.Helper()

	symbols := symbol.NewCache(64)
	symbols.Register(&symbol.Symbol{
		Name:  "LIGHTSYM",
		Image: solidImage(4, 4),
	})

	catalog := chartset.NewCatalog(nil)
	set := chartset.NewChartSet("test-set", "/charts/test")
	var infos []*chartset.ChartInfo
	for name := range charts {
		scale := int32(50000)
		if name == "FINE" {
			scale = 5000
		}
		infos = append(infos, &chartset.ChartInfo{
			Name: name, NativeScale: scale,
			Extent: coord.Bounds{MinLon: -10, MinLat: -10, MaxLon: 10, MaxLat: 10},
		})
	}
	set.SetCharts(infos)
	catalog.AddSet(set)

	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		for name, chart := range charts {
			if key == "test-set/"+name {
				return chart, 1024, nil
			}
		}
		return nil, 0, context.Canceled
	}

	renderer := &render.Renderer{
		Catalog:  catalog,
		Charts:   chartcache.New(1<<20, nil),
		Tables:   testTables(),
		Colours:  render.DefaultColourSchemes(),
		Symbols:  symbols,
		Settings: render.NewSettingsPublisher(testSettings()),
		Loader:   loader,
	}

	f := &Finder{
		Catalog:  catalog,
		Charts:   renderer.Charts,
		Loader:   loader,
		Renderer: renderer,
	}
	return f, catalog
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

func centreTileXY(z int) (int64, int64) {
	return coord.WorldPointToTile(coord.Point{X: coord.LonToWorldX(0, true), Y: coord.LatToWorldY(0)}, z)
}

func TestQueryFindsAreaViaPointInPolygonFallback(t *testing.T) {
	chart := &parser.Chart{Features: []parser.Feature{squareFeature(1)}}
	f, _ := newFinder(t, map[string]*parser.Chart{"FINE": chart})

	z := 0
	x, y := centreTileXY(z)
	click := ClickBox{X0: 126, Y0: 126, X1: 130, Y1: 130} // centre of the 256x256 tile

	got, err := f.Query(context.Background(), "test-set", z, x, y, click)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 description, got %d: %+v", len(got), got)
	}
	if got[0].ObjectClass != "DEPARE" {
		t.Fatalf("expected DEPARE, got %q", got[0].ObjectClass)
	}
}

func TestQueryMissesOutsideClickBox(t *testing.T) {
	chart := &parser.Chart{Features: []parser.Feature{squareFeature(1)}}
	f, _ := newFinder(t, map[string]*parser.Chart{"FINE": chart})

	z := 0
	x, y := centreTileXY(z)
	click := ClickBox{X0: 0, Y0: 0, X1: 2, Y1: 2} // far corner, outside the square

	got, err := f.Query(context.Background(), "test-set", z, x, y, click)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no descriptions outside the feature, got %+v", got)
	}
}

func TestQueryDeduplicatesOverlappingCharts(t *testing.T) {
	fine := &parser.Chart{Features: []parser.Feature{squareFeature(1)}}
	coarse := &parser.Chart{Features: []parser.Feature{squareFeature(2)}} // identical attrs, different feature id
	f, _ := newFinder(t, map[string]*parser.Chart{"FINE": fine, "COARSE": coarse})

	z := 0
	x, y := centreTileXY(z)
	click := ClickBox{X0: 126, Y0: 126, X1: 130, Y1: 130}

	got, err := f.Query(context.Background(), "test-set", z, x, y, click)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one deduplicated description across both overlapping charts, got %d: %+v", len(got), got)
	}
}

func TestQuerySortsByObjectClassBeforeScore(t *testing.T) {
	chart := &parser.Chart{
		Features: []parser.Feature{
			squareFeature(1),
			{
				ID:          2,
				ObjectClass: "LIGHTS",
				Geometry: parser.Geometry{
					Type:        parser.GeometryTypePoint,
					Coordinates: [][]float64{{0, 0}},
				},
				Attributes: map[string]interface{}{},
			},
		},
	}
	f, _ := newFinder(t, map[string]*parser.Chart{"FINE": chart})

	z := 0
	x, y := centreTileXY(z)
	click := ClickBox{X0: 126, Y0: 126, X1: 130, Y1: 130}

	got, err := f.Query(context.Background(), "test-set", z, x, y, click)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 descriptions, got %d: %+v", len(got), got)
	}
	// Ascending object class first ("DEPARE" < "LIGHTS"), regardless of score.
	if got[0].ObjectClass != "DEPARE" || got[1].ObjectClass != "LIGHTS" {
		t.Fatalf("expected ascending object-class order, got %+v", got)
	}
	if got[1].Score != scoreLight {
		t.Fatalf("expected LIGHTS to score as a light, got %d", got[1].Score)
	}
}

func TestQueryNearestSoundingInClickBox(t *testing.T) {
	chart := &parser.Chart{
		Features: []parser.Feature{
			{
				ID:          3,
				ObjectClass: "SOUNDG",
				Geometry: parser.Geometry{
					Type: parser.GeometryTypePoint,
					Coordinates: [][]float64{
						{0, 0},
						{0.5, 0.5},
					},
				},
				Attributes: map[string]interface{}{"VALSOU": 12.5},
			},
		},
	}
	f, _ := newFinder(t, map[string]*parser.Chart{"FINE": chart})

	z := 0
	x, y := centreTileXY(z)
	click := ClickBox{X0: 120, Y0: 120, X1: 136, Y1: 136}

	got, err := f.Query(context.Background(), "test-set", z, x, y, click)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 sounding description, got %d: %+v", len(got), got)
	}
	if got[0].Addon == nil || got[0].Addon["depth"] != 12.5 {
		t.Fatalf("expected addon depth 12.5, got %+v", got[0].Addon)
	}
}
