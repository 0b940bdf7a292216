// Package featureinfo implements spec.md §4.9's feature-info path: given a
// tile coordinate and a pixel click box, it returns the structured object
// descriptions a cursor click would answer with, built on the exact same
// bound render objects (internal/render.RenderObject) and gates
// (internal/render.Gate) the tile renderer itself uses, so a feature-info
// hit never disagrees with what the corresponding tile actually painted.
//
// New domain logic with no direct teacher analog; grounded on
// internal/raster's check-only drawing mode (EvaluateHit, in
// internal/render/object.go) and internal/chartset's allLower query variant,
// per spec.md §4.9 and DESIGN.md.
package featureinfo

import (
	"context"
	"crypto/md5"
	"fmt"
	"sort"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/chartset"
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/raster"
	"github.com/chartkit/enctiles/internal/render"
	"github.com/chartkit/enctiles/internal/s52"
)

// ClickBox is the pixel-space query box around the cursor, relative to the
// requested tile's own pixel origin (spec.md §4.9's "pixel click box").
type ClickBox struct {
	X0, Y0, X1, Y1 int
}

func (b ClickBox) contains(x, y int) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

func (b ClickBox) center() (int, int) {
	return (b.X0 + b.X1) / 2, (b.Y0 + b.Y1) / 2
}

// worldBox converts the click box from tile-relative pixels to an absolute
// world-coordinate box, so it can be tested against a RenderObject's
// world-coordinate Extent before any per-pixel work (mirrors the renderer's
// own tile.Box.Intersects(obj.Extent) pre-filter).
func (b ClickBox) worldBox(tile coord.TileBox) coord.Box {
	return coord.Box{
		Xmin: tile.RelPixelToWorld(b.X0),
		Xmax: tile.RelPixelToWorld(b.X1),
		Ymin: tile.RelPixelToWorldY(b.Y0),
		Ymax: tile.RelPixelToWorldY(b.Y1),
	}
}

// Description.Score values rank a description's primitive kind for
// spec.md §4.9 step 5's sort ("points > lines > areas; lights score higher
// than other points").
const (
	scoreArea = iota
	scoreLine
	scorePoint
	scoreLight
)

// Description is one object's structured feature-info answer (spec.md §4.9
// step 4).
type Description struct {
	ObjectClass string
	Primitive   parser.GeometryType
	Point       [2]float64 // lon, lat of the geometry's first vertex
	Attributes  map[string]interface{}
	Addon       map[string]interface{} // e.g. the nearest-sounding depth (step 3)

	Score    int
	Distance float64 // squared pixel distance from the click box centre
	MD5      [16]byte
}

// ignoredAttrs are excluded from the identity MD5 so that duplicate
// objects from overlapping charts — differing only in edition metadata —
// dedupe correctly (spec.md §4.9 step 4).
var ignoredAttrs = map[string]bool{
	"SCAMIN": true, "SORIND": true, "SORDAT": true, "SIGSEQ": true, "CATGEO": true,
}

// Finder answers feature-info queries, reusing a Renderer's chart cache,
// catalog, settings, and per-chart RenderObject bind cache (internal/render
// builds the same objects for tile rendering; feature-info must walk the
// identical set or its answer can disagree with the tile the user is
// looking at).
type Finder struct {
	Catalog *chartset.Catalog
	Charts  *chartcache.Cache
	Loader  chartcache.Loader

	// Renderer supplies ObjectsForChart (the shared bind cache), the
	// current RenderSettings, colour table, and symbol cache — the same
	// inputs EvaluateHit needs to replay a rule's draw path in check-only
	// mode.
	Renderer *render.Renderer

	// PixelBorder widens the tile→chart intersection query exactly as
	// Renderer.PixelBorder does for rendering (spec.md §4.3).
	PixelBorder int
}

// Query implements spec.md §4.9's procedure for one tile's click box,
// returning descriptions sorted by (ascending object class, descending
// score, ascending distance) — step 5.
func (f *Finder) Query(ctx context.Context, setKey string, z int, x, y int64, click ClickBox) ([]Description, error) {
	tileBox := coord.TileToBox(z, x, y, 0)
	// allLower=true: feature-info wants every chart that covers this tile
	// regardless of native scale, not just the finest (spec.md §4.9 step 1).
	matches := f.Catalog.FindChartsForTile(tileBox, f.PixelBorder, true)

	settings := f.Renderer.Settings.Current()
	colours := f.Renderer.Colours.Resolve(settings.ColourScheme)
	drawing := raster.New(coord.TileSize, coord.TileSize)

	var out []Description
	index := make(map[[16]byte]int) // md5 -> position in out, for step 4 de-dup

	// Iterate from coarsest scale (the end of the weight-ascending list)
	// to finest (the start) — the opposite of rendering order (spec.md
	// §4.9 step 1).
	for i := len(matches) - 1; i >= 0; i-- {
		wc := matches[i]
		if wc.SetKey != setKey {
			continue
		}

		key := wc.SetKey + "/" + wc.Info.Name
		h, err := f.Charts.Acquire(ctx, key, true, f.Loader)
		if err != nil {
			continue // a chart that fails to open contributes nothing, not an error
		}

		objs, err := f.Renderer.ObjectsForChart(h.Chart)
		if err != nil {
			h.Release()
			continue
		}

		rctx := render.NewRenderContext(settings, colours, f.Renderer.Symbols, wc.Tile)

		var nearestSounding *render.RenderObject
		nearestDist := -1.0

		for _, obj := range objs {
			if !render.Gate(obj, settings) {
				continue
			}
			if !wc.Tile.Box.Intersects(obj.Extent) {
				continue
			}
			if !click.worldBox(wc.Tile).Intersects(obj.Extent) {
				continue
			}

			if obj.Feature.ObjectClass == "SOUNDG" {
				// Multipoint soundings: step 3 picks the single nearest
				// vertex within the click box rather than a hit test.
				cx, cy := click.center()
				for _, p := range render.PixelPoints(wc.Tile, obj.Feature.Geometry) {
					if !click.contains(p.X, p.Y) {
						continue
					}
					d := pixelDist(p.X, p.Y, cx, cy)
					if nearestSounding == nil || d < nearestDist {
						nearestSounding, nearestDist = obj, d
					}
				}
				continue
			}

			hit, dist := evaluateObject(obj, rctx, wc.Tile, drawing, click)
			if !hit {
				continue
			}
			appendDeduped(&out, index, describe(obj, dist))
		}

		if nearestSounding != nil {
			desc := describe(nearestSounding, nearestDist)
			if depth, ok := s52.AttrSet(nearestSounding.Feature.Attributes).Float("VALSOU"); ok {
				desc.Addon = map[string]interface{}{"depth": depth}
			}
			appendDeduped(&out, index, desc)
		}

		h.Release()
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ObjectClass != out[j].ObjectClass {
			return out[i].ObjectClass < out[j].ObjectClass
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Distance < out[j].Distance
	})

	return out, nil
}

// evaluateObject decides whether obj is a hit inside click and, if so, a
// pixel distance for step 5's tie-break sort.
//
// Area objects with no AC/AP fill rule fall back to an even-odd
// point-in-polygon test on the outline (spec.md §4.9 step 2); everything
// else replays its rules through the rasterizer in check-only mode
// (render.EvaluateHit) across all four render steps and is a hit if any of
// them would have drawn ink inside click.
func evaluateObject(obj *render.RenderObject, rctx *render.RenderContext, tile coord.TileBox, drawing *raster.DrawingContext, click ClickBox) (bool, float64) {
	cx, cy := click.center()
	if obj.Feature.Geometry.Type == parser.GeometryTypePolygon && !render.HasAreaFillRule(obj) {
		pts := render.PixelPoints(tile, obj.Feature.Geometry)
		if !raster.PointInPolygon(pts, cx, cy) {
			return false, 0
		}
		return true, 0
	}

	if !checkOnlyHitInBox(obj, rctx, tile, drawing, click) {
		return false, 0
	}

	pts := render.PixelPoints(tile, obj.Feature.Geometry)
	if len(pts) == 0 {
		return true, 0
	}
	best := pixelDist(pts[0].X, pts[0].Y, cx, cy)
	for _, p := range pts[1:] {
		if d := pixelDist(p.X, p.Y, cx, cy); d < best {
			best = d
		}
	}
	return true, best
}

// checkOnlyHitInBox runs EvaluateHit and additionally confirms the
// object's own extent reaches into the click box — EvaluateHit alone only
// reports whether the object's rules would draw *anywhere* on the tile,
// not specifically inside click, so this layers the click-box test on top
// rather than relying on check-only mode to clip by itself.
func checkOnlyHitInBox(obj *render.RenderObject, rctx *render.RenderContext, tile coord.TileBox, drawing *raster.DrawingContext, click ClickBox) bool {
	if !render.EvaluateHit(obj, rctx, drawing, tile) {
		return false
	}
	for _, p := range render.PixelPoints(tile, obj.Feature.Geometry) {
		if click.contains(p.X, p.Y) {
			return true
		}
	}
	return false
}

func pixelDist(x0, y0, x1, y1 int) float64 {
	dx := float64(x0 - x1)
	dy := float64(y0 - y1)
	return dx*dx + dy*dy // squared distance: monotonic, avoids a sqrt per candidate
}

// describe builds a Description from obj, computing its identity MD5 over
// (type, primitive, feature-type-code, point, attributes minus
// ignoredAttrs) per spec.md §4.9 step 4.
func describe(obj *render.RenderObject, dist float64) Description {
	attrs := make(map[string]interface{}, len(obj.Feature.Attributes))
	for k, v := range obj.Feature.Attributes {
		if ignoredAttrs[k] {
			continue
		}
		attrs[k] = v
	}

	var point [2]float64
	if len(obj.Feature.Geometry.Coordinates) > 0 {
		c := obj.Feature.Geometry.Coordinates[0]
		point = [2]float64{c[0], c[1]}
	}

	score := scoreFor(obj)

	d := Description{
		ObjectClass: obj.Feature.ObjectClass,
		Primitive:   obj.Feature.Geometry.Type,
		Point:       point,
		Attributes:  attrs,
		Score:       score,
		Distance:    dist,
	}
	d.MD5 = identityMD5(d)
	return d
}

// scoreFor implements "points > lines > areas; lights score higher than
// other points" (spec.md §4.9 step 5).
func scoreFor(obj *render.RenderObject) int {
	switch obj.Feature.Geometry.Type {
	case parser.GeometryTypePoint:
		if isLight(obj.Feature.ObjectClass) {
			return scoreLight
		}
		return scorePoint
	case parser.GeometryTypeLineString:
		return scoreLine
	default:
		return scoreArea
	}
}

func isLight(objectClass string) bool {
	return objectClass == "LIGHTS"
}

// identityMD5 hashes the dedup-relevant fields of d. Attribute values are
// rendered through fmt.Sprintf with sorted keys so the hash is stable
// regardless of Go's randomized map iteration order.
func identityMD5(d Description) [16]byte {
	keys := make([]string, 0, len(d.Attributes))
	for k := range d.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := md5.New()
	fmt.Fprintf(h, "%d|%s|%v", d.Primitive, d.ObjectClass, d.Point)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%v", k, d.Attributes[k])
	}
	var sum [16]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// appendDeduped appends desc to out unless an equal-MD5 description is
// already present (spec.md §4.9 step 4's "duplicates from overlapping
// charts deduplicate correctly") — the first chart to contribute an object
// (finest-last iteration order, so actually the coarsest) wins and keeps
// its distance, since a later, closer duplicate conveys no new identity.
func appendDeduped(out *[]Description, index map[[16]byte]int, desc Description) {
	if _, ok := index[desc.MD5]; ok {
		return
	}
	index[desc.MD5] = len(*out)
	*out = append(*out, desc)
}
