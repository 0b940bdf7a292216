package render

import (
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/raster"
	"github.com/chartkit/enctiles/internal/symbol"
)

// textBox is a text decluttering candidate's pixel bounding box.
type textBox struct {
	x0, y0, x1, y1 int
}

func (b textBox) overlaps(o textBox) bool {
	return !(o.x1 < b.x0 || o.x0 > b.x1 || o.y1 < b.y0 || o.y0 > b.y1)
}

// RenderContext carries everything shared across every chart and pass
// drawing into one tile: the resolved colour table, the active settings,
// the tile's coordinate box, and the per-tile text declutter accumulator
// (spec.md §4.7, §5 "text-box declutter lists live in the per-tile
// RenderContext and are not shared").
type RenderContext struct {
	Settings *RenderSettings
	Colours  ColourTable
	Symbols  *symbol.Cache
	Tile     coord.TileBox

	declutter []textBox
}

// NewRenderContext builds a fresh per-tile context.
func NewRenderContext(settings *RenderSettings, colours ColourTable, symbols *symbol.Cache, tile coord.TileBox) *RenderContext {
	return &RenderContext{Settings: settings, Colours: colours, Symbols: symbols, Tile: tile}
}

// ClearDeclutter empties the accumulated text boxes. Nothing in the render
// path calls it: declutter spans all chart groups of a tile (the Open
// Question decision in DESIGN.md), and each tile render starts from a fresh
// RenderContext.
func (c *RenderContext) ClearDeclutter() {
	c.declutter = c.declutter[:0]
}

// tryPlaceText tests box against the accumulated declutter boxes; if it
// overlaps an existing box the candidate is suppressed (returns false),
// otherwise it is recorded and the caller may draw.
func (c *RenderContext) tryPlaceText(box textBox) bool {
	for _, existing := range c.declutter {
		if box.overlaps(existing) {
			return false
		}
	}
	c.declutter = append(c.declutter, box)
	return true
}

// PlaceText is tryPlaceText's public entry point for a DisplayString
// anchored at pixel (x, y). When declutter is disabled every candidate is
// accepted unconditionally.
func (c *RenderContext) PlaceText(x, y int, d DisplayString) bool {
	box := textBox{
		x0: x + d.XOffset, y0: y + d.YOffset,
		x1: x + d.XOffset + d.Width, y1: y + d.YOffset + d.Height,
	}
	if !c.Settings.DeclutterText {
		return true
	}
	return c.tryPlaceText(box)
}

// DrawingFor allocates (or the caller reuses) a DrawingContext sized to one
// tile.
func DrawingFor() *raster.DrawingContext {
	return raster.New(coord.TileSize, coord.TileSize)
}
