package render

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/chartset"
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/metrics"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/raster"
	"github.com/chartkit/enctiles/internal/s52"
	"github.com/chartkit/enctiles/internal/symbol"
	"github.com/chartkit/enctiles/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChartRenderData is a chart's derived render state (spec.md §3's
// "RenderData (render objects + rule creator scratch)"): bound render
// objects plus the per-chart RuleCreator, computed once and reused across
// every tile the chart contributes to. Safe for concurrent PrepareRender
// calls from multiple tile renders; building happens at most once, guarded
// by mu.
type ChartRenderData struct {
	mu      sync.Mutex
	built   bool
	buildErr error
	objects []*RenderObject
}

// Renderer ties the chart-set catalog, chart cache, S-52 tables, symbol
// cache, and settings publisher together to rasterize one tile at a time
// (spec.md §4.7).
type Renderer struct {
	Catalog  *chartset.Catalog
	Charts   *chartcache.Cache
	Tables   *s52.Tables
	Colours  ColourSchemes
	Symbols  *symbol.Cache
	Settings *SettingsPublisher
	Loader   chartcache.Loader

	// Tracer is started around each RenderTile call when set; nil means no
	// tracing (tracing.NoopTracer is used instead).
	Tracer trace.Tracer

	// PixelBorder widens the tile→chart intersection test so charts whose
	// features merely touch the tile edge (e.g. a long coastline) aren't
	// missed (spec.md §4.3).
	PixelBorder int

	renderData sync.Map // *parser.Chart -> *ChartRenderData
}

// ErrNoCharts is returned by RenderTile when no active chart covers the
// requested tile.
var ErrNoCharts = fmt.Errorf("render: no charts cover this tile")

// conditionsFromSettings builds the chart-independent half of
// s52.RuleConditions from the active RenderSettings. Per-feature facts
// (HasFloatingBase, QuaposAccuracy, the next-contour lookahead) require
// sibling-feature context beyond a single object's own attributes; this
// implementation leaves them at their zero value rather than attempting a
// full cross-reference walk, a scope cut recorded in DESIGN.md.
func conditionsFromSettings(s *RenderSettings) s52.RuleConditions {
	units := "metres"
	if s.DepthUnitsFeet {
		units = "feet"
	}
	return s52.RuleConditions{
		SafetyContour:  s.SafetyContour,
		ShallowContour: s.ShallowContour,
		DeepContour:    s.DeepContour,
		TwoShades:      s.TwoShades,
		DepthUnits:     units,
	}
}

// chartRenderData returns (building on first use) the ChartRenderData for
// chart, binding every feature's RenderObject through a chart-private
// RuleCreator (spec.md §5: "not shared across threads").
func (r *Renderer) chartRenderData(chart *parser.Chart, cond s52.RuleConditions) (*ChartRenderData, error) {
	v, _ := r.renderData.LoadOrStore(chart, &ChartRenderData{})
	crd := v.(*ChartRenderData)

	crd.mu.Lock()
	defer crd.mu.Unlock()
	if crd.built {
		return crd, crd.buildErr
	}

	rc := s52.NewRuleCreator(r.Tables)
	objs := make([]*RenderObject, 0, len(chart.Features))
	for i := range chart.Features {
		obj, err := BindRenderObject(r.Tables, rc, &chart.Features[i], cond)
		if err != nil {
			continue // unmatched/unknown object class: skip, not fatal
		}
		objs = append(objs, obj)
	}
	crd.objects = objs
	crd.built = true
	return crd, nil
}

// ObjectsForChart returns chart's bound render objects, building them on
// first use with the rule conditions derived from the renderer's current
// settings — the same per-chart cache RenderTile populates, shared here so
// the feature-info path walks identically-bound objects (spec.md §4.9
// step 2).
func (r *Renderer) ObjectsForChart(chart *parser.Chart) ([]*RenderObject, error) {
	cond := conditionsFromSettings(r.Settings.Current())
	crd, err := r.chartRenderData(chart, cond)
	if err != nil {
		return nil, err
	}
	return crd.objects, nil
}

// RenderTile implements spec.md §4.7's renderTile procedure end to end,
// returning encoded PNG bytes.
func (r *Renderer) RenderTile(ctx context.Context, setKey string, z int, x, y int64) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, r.Tracer, "render.RenderTile",
		trace.WithAttributes(
			attribute.String("chart_set", setKey),
			attribute.Int("z", z),
			attribute.Int64("x", x),
			attribute.Int64("y", y),
		))
	defer span.End()

	start := time.Now()
	settings := r.Settings.Current()
	tileBox := coord.TileToBox(z, x, y, 0)

	matches := r.Catalog.FindChartsForTile(tileBox, r.PixelBorder, false)
	weighted := matches[:0:0]
	for _, wc := range matches {
		if wc.SetKey == setKey {
			weighted = append(weighted, wc)
		}
	}
	if len(weighted) == 0 {
		metrics.RecordTileRender("no_charts", time.Since(start))
		tracing.RecordError(ctx, ErrNoCharts)
		return nil, ErrNoCharts
	}

	drawing := DrawingFor()
	colours := r.Colours.Resolve(settings.ColourScheme)
	rctx := NewRenderContext(settings, colours, r.Symbols, tileBox)
	cond := conditionsFromSettings(settings)

	groups := groupByWeight(weighted)
	for _, group := range groups {
		handles := make([]*chartcache.Handle, 0, len(group))
		for _, wc := range group {
			key := wc.SetKey + "/" + wc.Info.Name
			h, err := r.Charts.Acquire(ctx, key, true, r.Loader)
			if err != nil {
				continue // a failed-to-open chart is skipped, not fatal (spec.md §4.2)
			}
			handles = append(handles, h)
		}

		for pass := 0; pass < MaxPasses; pass++ {
			for i, h := range handles {
				crd, err := r.chartRenderData(h.Chart, cond)
				if err != nil {
					continue
				}
				renderChartPass(crd, RuleStep(pass), rctx, drawing, group[i].Tile)
			}
		}

		for _, h := range handles {
			h.Release()
		}
	}

	png, err := drawing.EncodePNG()
	if err != nil {
		metrics.RecordTileRender("encode_error", time.Since(start))
		tracing.RecordError(ctx, err)
		return nil, err
	}
	metrics.RecordTileRender("success", time.Since(start))
	return png, nil
}

// groupByWeight greedily partitions an already-weight-sorted list into
// consecutive runs of equal weight (spec.md §4.7 step 5).
func groupByWeight(weighted []chartset.WeightedChart) [][]chartset.WeightedChart {
	var groups [][]chartset.WeightedChart
	for _, wc := range weighted {
		if len(groups) > 0 && groups[len(groups)-1][0].Weight == wc.Weight {
			groups[len(groups)-1] = append(groups[len(groups)-1], wc)
			continue
		}
		groups = append(groups, []chartset.WeightedChart{wc})
	}
	return groups
}

// renderChartPass walks crd's render objects, applying category/scale
// gates, and draws every rule belonging to pass.
func renderChartPass(crd *ChartRenderData, pass RuleStep, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	for _, obj := range crd.objects {
		if !gate(obj, rctx.Settings) {
			continue
		}
		if !tile.Box.Intersects(obj.Extent) {
			continue
		}
		for _, r := range obj.Rules {
			if ruleStep(r) != pass {
				continue
			}
			drawRule(obj, r, rctx, drawing, tile)
		}
	}
}

// Gate exports gate for collaborators outside this package that walk
// RenderObjects against the same rules RenderTile applies — currently
// internal/featureinfo, which must not surface an object the renderer
// itself would have skipped (spec.md §4.9 step 2).
func Gate(obj *RenderObject, s *RenderSettings) bool {
	return gate(obj, s)
}

// PixelPoints exports pixelPoints for internal/featureinfo's point-in-polygon
// fallback (spec.md §4.9 step 2) and nearest-sounding search (step 3).
func PixelPoints(tile coord.TileBox, geom parser.Geometry) []raster.Point {
	return pixelPoints(tile, geom)
}

// gate implements spec.md §4.4's category/scale/meta-object/per-feature
// gates.
func gate(obj *RenderObject, s *RenderSettings) bool {
	if !categoryGate(obj, s) {
		return false
	}
	if s.UseSCAMIN {
		attrs := s52.AttrSet(obj.Feature.Attributes)
		if scamin, ok := attrs.Int("SCAMIN"); ok && int32(scamin) < s.Scale {
			if obj.Category != DisplayBaseCategory(obj) && obj.Priority > 1 {
				return false
			}
		}
	}
	class := obj.Feature.ObjectClass
	if strings.HasPrefix(class, "M_") && !s.ShowMeta && s52.DisplayCategory(obj.Category) != s52.Other {
		return false
	}
	if !featureToggleGate(class, s) {
		return false
	}
	return true
}

// DisplayBaseCategory returns s52.DisplayBase whatever obj is; gate compares
// an object's category against it, so the check reads the way spec.md's
// prose does ("unless DISPLAYBASE or priority group 1").
func DisplayBaseCategory(obj *RenderObject) s52.DisplayCategory {
	return s52.DisplayBase
}

func categoryGate(obj *RenderObject, s *RenderSettings) bool {
	if obj.Category == s52.DisplayBase {
		return true
	}
	switch s.Category {
	case DisplayBase:
		return false
	case Standard:
		return obj.Category == s52.Standard
	case Other:
		return true
	case MarinersStandard:
		if v, ok := s.FeatureVisibility[obj.Feature.ObjectClass]; ok {
			return v
		}
		return obj.Category == s52.Standard
	default:
		return obj.Category == s52.Standard
	}
}

func featureToggleGate(class string, s *RenderSettings) bool {
	switch {
	case strings.HasPrefix(class, "LIGHTS"):
		return s.ShowLights
	case class == "SOUNDG":
		return s.ShowSoundings
	case strings.HasPrefix(class, "ACHARE") || strings.HasPrefix(class, "ACHBRT"):
		return s.ShowAnchorage
	default:
		return true
	}
}

func pixelPoints(tile coord.TileBox, geom parser.Geometry) []raster.Point {
	pts := make([]raster.Point, 0, len(geom.Coordinates))
	for _, c := range geom.Coordinates {
		wx := coord.LonToWorldX(c[0], true)
		wy := coord.LatToWorldY(c[1])
		pts = append(pts, raster.Point{X: tile.WorldToPixel(wx), Y: tile.WorldToPixelY(wy)})
	}
	return pts
}

// drawRule dispatches one expanded Rule to the rasterizer, resolving
// colour tokens through the tile's active colour scheme.
func drawRule(obj *RenderObject, r s52.Rule, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	switch r.Kind {
	case s52.RuleAC:
		drawAreaColour(obj, r.AC, rctx, drawing, tile)
	case s52.RuleAP:
		drawAreaPattern(obj, r.AP, rctx, drawing, tile)
	case s52.RuleLS:
		drawLineRule(obj, r.LS, rctx, drawing, tile)
	case s52.RuleLC:
		drawLineSymbolRule(obj, r.LC, rctx, drawing, tile)
	case s52.RuleSY:
		drawSymbolRule(obj, r.SY, rctx, drawing, tile)
	case s52.RuleCA:
		drawArcRule(obj, r.CA, rctx, drawing, tile)
	case s52.RuleTX, s52.RuleTE:
		drawTextForRule(obj, r.TX, rctx, drawing, tile)
	case s52.RuleSS:
		drawSoundingRule(obj, r.SS, rctx, drawing, tile)
	case s52.RuleMP:
		drawMultipointRule(obj, r.MP, rctx, drawing, tile)
	}
}

func transparencyAlpha(level int) uint8 {
	// S-52 transparency is a 0-4 index; 0 is opaque.
	switch level {
	case 1:
		return 191
	case 2:
		return 127
	case 3:
		return 95
	case 4:
		return 63
	default:
		return 255
	}
}

// drawAreaColour fills a polygon render object's tessellation with a solid
// colour (spec.md §4.4's AC rule). Our parser exposes a feature's area
// geometry as a single coordinate ring rather than a pre-tessellated
// triangle fan, so this draws the ring directly via DrawPolygon's
// even-odd scanline fill — documented in DESIGN.md as the ring-fill
// equivalent of "triangles of an area's tessellation".
func drawAreaColour(obj *RenderObject, args *s52.AreaColourArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	if obj.Feature.Geometry.Type != parser.GeometryTypePolygon {
		return
	}
	pts := pixelPoints(tile, obj.Feature.Geometry)
	colour := rctx.Colours.Resolve(args.ColourToken)
	drawing.DrawPolygon(pts, colour, transparencyAlpha(args.Transparency), nil)
}

// drawAreaPattern stipples a polygon with a named pattern symbol, sampling
// the cached base symbol bitmap and phasing the tile relative to the
// tile's absolute world origin so neighbouring tiles agree (spec.md §4.5's
// seamless-tiling formula, implemented by raster.PatternSpec.at).
func drawAreaPattern(obj *RenderObject, args *s52.AreaPatternArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	if obj.Feature.Geometry.Type != parser.GeometryTypePolygon {
		return
	}
	sym, ok := rctx.Symbols.Get(args.Pattern, 0, 1)
	if !ok {
		return
	}
	b := sym.Image.Bounds()
	pattern := &raster.PatternSpec{
		W: b.Dx(), H: b.Dy(), Gap: 2,
		Stagger: args.Stagger,
		XOffset: int(coord.WorldToPixel(tile.Xmin, tile.Z)),
		YOffset: int(coord.WorldToPixel(tile.Ymin, tile.Z)),
		Pixel: func(x, y int) (c color.RGBA, ok bool) {
			c = sym.Image.RGBAAt(b.Min.X+x, b.Min.Y+y)
			return c, c.A > 0
		},
	}
	pts := pixelPoints(tile, obj.Feature.Geometry)
	drawing.DrawPolygon(pts, color.RGBA{}, 255, pattern)
}

// drawLineRule strokes a line or polygon-boundary render object (spec.md
// §4.4's LS rule).
func drawLineRule(obj *RenderObject, args *s52.LineArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	pts := pixelPoints(tile, obj.Feature.Geometry)
	if len(pts) < 2 {
		return
	}
	colour := rctx.Colours.Resolve(args.ColourToken)
	dash := lineDash(args.Style)
	closed := obj.Feature.Geometry.Type == parser.GeometryTypePolygon
	strokeRing(drawing, pts, closed, args.Width, colour, dash)
}

func lineDash(style s52.LineStyle) raster.DashStencil {
	switch style {
	case s52.LineDashed:
		return raster.DashPattern(6, 4)
	case s52.LineDotted:
		return raster.DashPattern(1, 3)
	default:
		return raster.SolidDash
	}
}

func strokeRing(drawing *raster.DrawingContext, pts []raster.Point, closed bool, width int, colour color.RGBA, dash raster.DashStencil) {
	n := len(pts)
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		a := pts[i]
		b := pts[(i+1)%n]
		if width > 1 {
			drawing.DrawThickLine(a.X, a.Y, b.X, b.Y, width, raster.Clockwise, colour, 255, dash)
		} else {
			drawing.DrawLine(a.X, a.Y, b.X, b.Y, colour, 255, dash)
		}
	}
}

// drawLineSymbolRule repeats a named symbol along the line's segments,
// filling the gaps with a default-coloured line (spec.md §4.4's LC rule).
// Symbol repetition spacing is simplified to "once per vertex" rather than
// S-52's fixed along-path distance, since the parser exposes a line as its
// original vertex list, not a resampled path — recorded in DESIGN.md.
func drawLineSymbolRule(obj *RenderObject, args *s52.LineSymbolArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	pts := pixelPoints(tile, obj.Feature.Geometry)
	if len(pts) < 2 {
		return
	}
	colour := rctx.Colours.Resolve(args.ColourToken)
	closed := obj.Feature.Geometry.Type == parser.GeometryTypePolygon
	strokeRing(drawing, pts, closed, 1, colour, raster.SolidDash)

	sym, ok := rctx.Symbols.Get(args.SymbolName, 0, 1)
	if !ok {
		return
	}
	b := sym.Image.Bounds()
	for _, p := range pts {
		drawing.DrawSymbol(p.X-sym.PivotX-b.Min.X, p.Y-sym.PivotY-b.Min.Y, sym.Image, 255)
	}
}

// drawSymbolRule draws a point symbol, optionally rotated by an
// attribute-derived bearing (spec.md §4.4's SY rule).
func drawSymbolRule(obj *RenderObject, args *s52.SymbolArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	p := anchorPoint(obj, tile)
	if p == nil {
		return
	}
	rotation := args.RotationDeg
	if !args.HasRotation {
		if orient, ok := s52.AttrSet(obj.Feature.Attributes).Float("ORIENT"); ok {
			rotation = orient
		}
	}
	sym, ok := rctx.Symbols.Get(args.SymbolName, rotation, 1)
	if !ok {
		return
	}
	b := sym.Image.Bounds()
	drawing.DrawSymbol(p.X-sym.PivotX-b.Min.X, p.Y-sym.PivotY-b.Min.Y, sym.Image, 255)
}

// drawArcRule draws a sector light's outline ring plus its coloured sector
// band (spec.md §4.4's private CA rule, §4.7's sector-light description).
func drawArcRule(obj *RenderObject, args *s52.ArcArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	p := anchorPoint(obj, tile)
	if p == nil {
		return
	}
	outline := rctx.Colours.Resolve(args.OutlineColourToken)
	sector := rctx.Colours.Resolve(args.ArcColourToken)
	r := float64(args.RadiusPx)
	drawing.DrawArc(p.X, p.Y, r-1, r, 0, 360, outline, 255)
	drawing.DrawArc(p.X, p.Y, 0, r, args.SectorStartDeg, args.SectorEndDeg, sector, 160)
}

// drawTextForRule builds and draws one TX/TE rule's DisplayString. Built
// at draw time rather than reused from RenderObject.Text (whose role is to
// give feature-info a pre-measured pixel box without re-rendering glyphs);
// rendering it again here costs one bitmap-font measurement, negligible
// next to the per-tile chart walk.
func drawTextForRule(obj *RenderObject, args *s52.TextArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	if !rctx.Settings.ShowText {
		return
	}
	text := args.Literal
	if text == "" && args.Attr != "" {
		text = formatAttrText(s52.AttrSet(obj.Feature.Attributes), args.Attr)
	}
	if text == "" {
		return
	}
	anchor := anchorPoint(obj, tile)
	if anchor == nil {
		return
	}
	display := NewDisplayString(text, args.HJust, args.VJust, args.XOffset, args.YOffset)
	if !rctx.PlaceText(anchor.X, anchor.Y, display) {
		return
	}
	colour := rctx.Colours.Resolve(args.ColourToken)
	drawing.DrawGlyph(anchor.X+display.XOffset, anchor.Y+display.YOffset, display.Mask, colour)
}

func anchorPoint(obj *RenderObject, tile coord.TileBox) *raster.Point {
	pts := pixelPoints(tile, obj.Feature.Geometry)
	if len(pts) == 0 {
		return nil
	}
	return &pts[0]
}

// drawSoundingRule draws a single sounding's depth label (spec.md §4.4's
// private "single sounding" rule). The conditional that produced this rule
// (soundg02) already resolved which of its two colour tokens applies by
// comparing the sounding's own depth to the safety contour, placing the
// applicable one first — so ShallowColourToken is always the one to use
// here regardless of its literal name.
func drawSoundingRule(obj *RenderObject, args *s52.SoundingArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	if !rctx.Settings.ShowSoundings {
		return
	}
	attrs := s52.AttrSet(obj.Feature.Attributes)
	depth, ok := attrs.Float("VALSOU")
	if !ok {
		return
	}
	p := anchorPoint(obj, tile)
	if p == nil {
		return
	}
	colour := rctx.Colours.Resolve(args.ShallowColourToken)
	label := NewDisplayString(formatDepth(depth), 1, 1, 0, 0)
	drawing.DrawGlyph(p.X+label.XOffset, p.Y+label.YOffset, label.Mask, colour)
}

// drawMultipointRule labels a multipoint sounding geometry's vertices,
// splitting colour by each vertex's own depth against the safety contour
// where per-vertex depth is available (falling back to the feature-level
// VALSOU for every vertex otherwise — our parser does not carry per-vertex
// attribute arrays, recorded in DESIGN.md).
func drawMultipointRule(obj *RenderObject, args *s52.MultipointArgs, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) {
	if !rctx.Settings.ShowSoundings {
		return
	}
	attrs := s52.AttrSet(obj.Feature.Attributes)
	depth, ok := attrs.Float("VALSOU")
	if !ok {
		return
	}
	token := args.DeepColourToken
	if depth <= rctx.Settings.SafetyContour {
		token = args.ShallowColourToken
	}
	colour := rctx.Colours.Resolve(token)
	label := formatDepth(depth)
	for _, p := range pixelPoints(tile, obj.Feature.Geometry) {
		d := NewDisplayString(label, 1, 1, 0, 0)
		drawing.DrawGlyph(p.X+d.XOffset, p.Y+d.YOffset, d.Mask, colour)
	}
}

func formatDepth(v float64) string {
	whole := int64(v)
	frac := int64((v - float64(whole)) * 10)
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%d", whole, frac)
}
