// Package raster implements the 256x256 tile DrawingContext S-52 rule
// execution paints into: pixel/line/triangle/arc primitives with clipping,
// alpha blending, dash stencils, and a check-only mode for feature-info hit
// testing (spec.md §4.5).
//
// No direct teacher analog exists — the teacher only parses chart geometry,
// never rasterizes it — so this package follows the teacher's own
// geometry-heavy style (`internal/parser/geometry.go`'s explicit coordinate
// manipulation, `internal/parser/topology.go`'s ring walking) applied to
// pixel space, with the PNG encoding boundary grounded on
// `pspoerri-geotiff2pmtiles/internal/encode/png.go`.
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// alphaLUT precomputes alpha/255 once per byte value so blending avoids a
// division per pixel — the "256-entry alpha blend table" spec.md §4.5 calls
// for.
var alphaLUT [256]float32

func init() {
	for i := range alphaLUT {
		alphaLUT[i] = float32(i) / 255
	}
}

// DashStencil decides, for a given cumulative distance along a line, whether
// a pixel should be painted — nil means solid.
type DashStencil func(distance float64) bool

// SolidDash is the no-op dash stencil (always paint).
func SolidDash(float64) bool { return true }

// DashPattern builds a DashStencil from alternating on/off run lengths in
// pixels (e.g. DashPattern(6, 4) for a 6-on/4-off dash).
func DashPattern(on, off float64) DashStencil {
	period := on + off
	return func(d float64) bool {
		if period <= 0 {
			return true
		}
		m := mod(d, period)
		return m < on
	}
}

func mod(a, m float64) float64 {
	r := a - float64(int64(a/m))*m
	if r < 0 {
		r += m
	}
	return r
}

// Orientation selects which side of a line drawThickLine's off-axis pixels
// are biased toward when the stroke width is even.
type Orientation int

const (
	Clockwise Orientation = iota
	CounterClockwise
)

// PatternSpec stipples a filled area with a repeating pattern tile, laid
// out relative to the enclosing tile's world origin so adjacent tiles'
// patterns line up seamlessly at shared edges (spec.md §4.5, testable
// property 3).
type PatternSpec struct {
	W, H    int // pattern repeat cell size in pixels
	Gap     int // inter-cell gap in pixels
	Stagger bool
	// XOffset/YOffset are the tile's world-space origin, converted to pixel
	// units at the render scale — the phase the pattern cell is offset by
	// so that two tiles rendering the same AP rule agree on cell placement.
	XOffset, YOffset int
	// Pixel returns the pattern's colour at local cell coordinate (x, y),
	// 0 <= x < W, 0 <= y < H. ok=false means transparent (no paint).
	Pixel func(x, y int) (c color.RGBA, ok bool)
}

// at reports whether tile-relative pixel (x, y) falls inside this pattern's
// drawn cell, and if so what colour to paint — implementing spec.md §4.5's
// exact stagger/modulo formula.
func (p PatternSpec) at(x, y int) (color.RGBA, bool) {
	cell := p.W + p.Gap
	rowCell := p.H + p.Gap
	if cell <= 0 || rowCell <= 0 {
		return color.RGBA{}, false
	}
	xp := mod(float64(x+p.XOffset), float64(cell))
	if p.Stagger {
		row := int(mod(float64(y+p.YOffset), float64(rowCell*2)) / float64(rowCell))
		if row == 1 {
			xp = mod(xp+float64(cell)/2, float64(cell))
		}
	}
	yp := mod(float64(y+p.YOffset), float64(rowCell))
	if int(xp) >= p.W || int(yp) >= p.H {
		return color.RGBA{}, false
	}
	if p.Pixel == nil {
		return color.RGBA{}, false
	}
	return p.Pixel(int(xp), int(yp))
}

// DrawingContext is a fixed-size RGBA raster with clipped draw primitives.
type DrawingContext struct {
	img       *image.RGBA
	w, h      int
	checkOnly bool
	hasDrawn  bool
}

// New allocates a transparent w x h DrawingContext.
func New(w, h int) *DrawingContext {
	return &DrawingContext{img: image.NewRGBA(image.Rect(0, 0, w, h)), w: w, h: h}
}

// SetCheckOnly switches all draw operations to set HasDrawn only, without
// touching the backing image — used by feature-info hit testing to detect
// whether an object would produce visible ink in a pixel box (spec.md §4.5).
func (d *DrawingContext) SetCheckOnly(v bool) { d.checkOnly = v }

// HasDrawn reports whether any draw call has painted or attempted to paint
// a pixel since the context was created or last reset.
func (d *DrawingContext) HasDrawn() bool { return d.hasDrawn }

// ResetHasDrawn clears the has-drawn flag for reuse across features.
func (d *DrawingContext) ResetHasDrawn() { d.hasDrawn = false }

// Image returns the backing image for encoding or further compositing.
func (d *DrawingContext) Image() *image.RGBA { return d.img }

// EncodePNG renders the context to PNG bytes, grounded on
// pspoerri-geotiff2pmtiles/internal/encode/png.go's image/png + BestSpeed.
func (d *DrawingContext) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, d.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *DrawingContext) inBounds(x, y int) bool {
	return x >= 0 && x < d.w && y >= 0 && y < d.h
}

// SetPix paints (x, y) with c at the given alpha (0-255), clipping silently
// if out of bounds (testable property 10: no OOB writes regardless of
// input coordinates).
func (d *DrawingContext) SetPix(x, y int, c color.RGBA, alpha uint8) {
	if !d.inBounds(x, y) {
		return
	}
	d.hasDrawn = true
	if d.checkOnly {
		return
	}
	d.blend(x, y, c, alpha)
}

func (d *DrawingContext) blend(x, y int, c color.RGBA, alpha uint8) {
	if alpha == 0 {
		return
	}
	if alpha == 255 {
		d.img.SetRGBA(x, y, color.RGBA{c.R, c.G, c.B, 255})
		return
	}
	a := alphaLUT[alpha]
	dst := d.img.RGBAAt(x, y)
	blend := func(s, bg uint8) uint8 {
		return uint8(float32(s)*a + float32(bg)*(1-a))
	}
	d.img.SetRGBA(x, y, color.RGBA{
		R: blend(c.R, dst.R),
		G: blend(c.G, dst.G),
		B: blend(c.B, dst.B),
		A: 255,
	})
}

// DrawHLine paints the horizontal run y, x0..x1 inclusive (x0 may exceed
// x1; order is normalized), clipped to the context bounds.
func (d *DrawingContext) DrawHLine(y, x0, x1 int, c color.RGBA, alpha uint8, dash DashStencil) {
	if dash == nil {
		dash = SolidDash
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		if dash(float64(x - x0)) {
			d.SetPix(x, y, c, alpha)
		}
	}
}

// DrawVLine is DrawHLine's vertical counterpart.
func (d *DrawingContext) DrawVLine(x, y0, y1 int, c color.RGBA, alpha uint8, dash DashStencil) {
	if dash == nil {
		dash = SolidDash
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		if dash(float64(y - y0)) {
			d.SetPix(x, y, c, alpha)
		}
	}
}

// DrawLine draws a Bresenham line from (x0,y0) to (x1,y1). Every pixel is
// clipped individually through SetPix, so an endpoint far outside the
// context (spec.md scenario S3) still produces exactly the in-bounds
// portion of the line.
func (d *DrawingContext) DrawLine(x0, y0, x1, y1 int, c color.RGBA, alpha uint8, dash DashStencil) {
	if dash == nil {
		dash = SolidDash
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	dist := 0.0
	for {
		if dash(dist) {
			d.SetPix(x, y, c, alpha)
		}
		dist++
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

// DrawAaLine draws a Wu-style anti-aliased line: each pixel straddling the
// ideal line gets painted at coverage-weighted alpha instead of a single
// hard pixel per step.
func (d *DrawingContext) DrawAaLine(x0, y0, x1, y1 int, c color.RGBA, alpha uint8) {
	fx0, fy0, fx1, fy1 := float64(x0), float64(y0), float64(x1), float64(y1)
	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		fx0, fy0 = fy0, fx0
		fx1, fy1 = fy1, fx1
	}
	if fx0 > fx1 {
		fx0, fx1 = fx1, fx0
		fy0, fy1 = fy1, fy0
	}
	dx := fx1 - fx0
	dy := fy1 - fy0
	gradient := 1.0
	if dx != 0 {
		gradient = dy / dx
	}

	plot := func(x int, y float64, weight float64) {
		yi := int(y)
		frac := y - float64(yi)
		a1 := uint8(clampF((1-frac)*weight, 0, 1) * float64(alpha))
		a2 := uint8(clampF(frac*weight, 0, 1) * float64(alpha))
		if steep {
			d.SetPix(yi, x, c, a1)
			d.SetPix(yi+1, x, c, a2)
		} else {
			d.SetPix(x, yi, c, a1)
			d.SetPix(x, yi+1, c, a2)
		}
	}

	y := fy0
	for x := int(fx0); x <= int(fx1); x++ {
		plot(x, y, 1.0)
		y += gradient
	}
}

// DrawThickLine strokes a fixed-width line by offsetting parallel copies of
// DrawLine along the line's normal. When width is even, orientation picks
// which side receives the extra pixel of stroke.
func (d *DrawingContext) DrawThickLine(x0, y0, x1, y1, width int, orientation Orientation, c color.RGBA, alpha uint8, dash DashStencil) {
	if width <= 1 {
		d.DrawLine(x0, y0, x1, y1, c, alpha, dash)
		return
	}
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	length := hypot(dx, dy)
	if length == 0 {
		d.SetPix(x0, y0, c, alpha)
		return
	}
	nx, ny := -dy/length, dx/length

	half := width / 2
	start := -half
	end := half
	if width%2 == 0 {
		if orientation == Clockwise {
			end--
		} else {
			start++
		}
	}
	for off := start; off <= end; off++ {
		ox := int(nx * float64(off))
		oy := int(ny * float64(off))
		d.DrawLine(x0+ox, y0+oy, x1+ox, y1+oy, c, alpha, dash)
	}
}

// Point is an integer pixel coordinate.
type Point struct{ X, Y int }

// DrawTriangle fills a triangle via a per-row edge walk, optionally
// stippled with pattern (spec.md §4.5's seamless-tiling formula).
func (d *DrawingContext) DrawTriangle(p0, p1, p2 Point, c color.RGBA, alpha uint8, pattern *PatternSpec) {
	minY := min3(p0.Y, p1.Y, p2.Y)
	maxY := max3(p0.Y, p1.Y, p2.Y)
	if minY < 0 {
		minY = 0
	}
	if maxY >= d.h {
		maxY = d.h - 1
	}

	edges := [3][2]Point{{p0, p1}, {p1, p2}, {p2, p0}}

	for y := minY; y <= maxY; y++ {
		var xs []int
		fy := float64(y) + 0.5
		for _, e := range edges {
			a, b := e[0], e[1]
			if a.Y == b.Y {
				continue
			}
			ylo, yhi := float64(a.Y), float64(b.Y)
			xlo, xhi := float64(a.X), float64(b.X)
			if ylo > yhi {
				ylo, yhi = yhi, ylo
				xlo, xhi = xhi, xlo
			}
			if fy < ylo || fy >= yhi {
				continue
			}
			t := (fy - ylo) / (yhi - ylo)
			xs = append(xs, int(xlo+t*(xhi-xlo)))
		}
		if len(xs) < 2 {
			continue
		}
		x0, x1 := minInts(xs), maxInts(xs)
		for x := x0; x <= x1; x++ {
			if pattern != nil {
				pc, ok := pattern.at(x, y)
				if !ok {
					continue
				}
				d.SetPix(x, y, pc, pc.A)
				continue
			}
			d.SetPix(x, y, c, alpha)
		}
	}
}

// DrawPolygon fills an arbitrary closed ring via a per-row edge walk using
// the even-odd rule, generalizing DrawTriangle to the N-vertex polygons
// S-57 area geometry actually carries (the teacher's parser never
// tessellates areas into triangles — spec.md §4.5's "triangles of an area's
// tessellation" is this package's ring-fill equivalent). The last point
// need not repeat the first; the ring is closed implicitly.
func (d *DrawingContext) DrawPolygon(pts []Point, c color.RGBA, alpha uint8, pattern *PatternSpec) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= d.h {
		maxY = d.h - 1
	}

	n := len(pts)
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		var xs []int
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			ylo, yhi := float64(a.Y), float64(b.Y)
			xlo, xhi := float64(a.X), float64(b.X)
			if ylo == yhi {
				continue
			}
			if ylo > yhi {
				ylo, yhi = yhi, ylo
				xlo, xhi = xhi, xlo
			}
			if fy < ylo || fy >= yhi {
				continue
			}
			t := (fy - ylo) / (yhi - ylo)
			xs = append(xs, int(math.Round(xlo+t*(xhi-xlo))))
		}
		if len(xs) < 2 {
			continue
		}
		sortInts(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := xs[i], xs[i+1]
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= d.w {
				x1 = d.w - 1
			}
			for x := x0; x <= x1; x++ {
				if pattern != nil {
					pc, ok := pattern.at(x, y)
					if !ok {
						continue
					}
					d.SetPix(x, y, pc, pc.A)
					continue
				}
				d.SetPix(x, y, c, alpha)
			}
		}
	}
}

// PointInPolygon reports whether (x, y) lies inside the closed ring pts
// under the even-odd rule, the same winding test DrawPolygon's scanline
// fill applies per row — factored out standalone for feature-info's
// no-area-fill-rule fallback (spec.md §4.9 step 2), which needs the test
// at one point rather than filled across every row of a tile.
func PointInPolygon(pts []Point, x, y int) bool {
	if len(pts) < 3 {
		return false
	}
	fy := float64(y) + 0.5
	inside := false
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		ylo, yhi := float64(a.Y), float64(b.Y)
		xlo, xhi := float64(a.X), float64(b.X)
		if ylo == yhi {
			continue
		}
		if ylo > yhi {
			ylo, yhi = yhi, ylo
			xlo, xhi = xhi, xlo
		}
		if fy < ylo || fy >= yhi {
			continue
		}
		t := (fy - ylo) / (yhi - ylo)
		crossX := xlo + t*(xhi-xlo)
		if float64(x) < crossX {
			inside = !inside
		}
	}
	return inside
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// DrawSymbol blits an RGBA sub-image with its top-left at (x, y), alpha
// blending each source pixel by its own alpha channel combined with alpha.
func (d *DrawingContext) DrawSymbol(x, y int, img *image.RGBA, alpha uint8) {
	b := img.Bounds()
	for sy := b.Min.Y; sy < b.Max.Y; sy++ {
		for sx := b.Min.X; sx < b.Max.X; sx++ {
			sc := img.RGBAAt(sx, sy)
			if sc.A == 0 {
				continue
			}
			combined := uint16(sc.A) * uint16(alpha) / 255
			d.SetPix(x+sx-b.Min.X, y+sy-b.Min.Y, color.RGBA{sc.R, sc.G, sc.B, 255}, uint8(combined))
		}
	}
}

// DrawGlyph blits a grayscale coverage mask (e.g. rendered text) in colour c,
// using each mask pixel's value as the paint alpha.
func (d *DrawingContext) DrawGlyph(x, y int, mask *image.Alpha, c color.RGBA) {
	b := mask.Bounds()
	for sy := b.Min.Y; sy < b.Max.Y; sy++ {
		for sx := b.Min.X; sx < b.Max.X; sx++ {
			a := mask.AlphaAt(sx, sy).A
			if a == 0 {
				continue
			}
			d.SetPix(x+sx-b.Min.X, y+sy-b.Min.Y, c, a)
		}
	}
}

// DrawArc paints the annular band between innerR and outerR (innerR=0 means
// a filled disc/outline-free sector), restricted to the [startDeg,endDeg]
// angular range (0°=east, CCW-positive), filled counter-clockwise.
func (d *DrawingContext) DrawArc(cx, cy int, innerR, outerR float64, startDeg, endDeg float64, c color.RGBA, alpha uint8) {
	if outerR <= 0 {
		return
	}
	minX, maxX := cx-int(outerR)-1, cx+int(outerR)+1
	minY, maxY := cy-int(outerR)-1, cy+int(outerR)+1
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= d.w {
		maxX = d.w - 1
	}
	if maxY >= d.h {
		maxY = d.h - 1
	}

	span := normalizeSpan(startDeg, endDeg)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x - cx)
			dy := float64(y - cy)
			r := hypot(dx, dy)
			if r < innerR || r > outerR {
				continue
			}
			ang := angleDeg(dx, dy)
			if !span.contains(ang) {
				continue
			}
			d.SetPix(x, y, c, alpha)
		}
	}
}

type angleSpan struct {
	start, end float64 // end >= start, may exceed 360 for wraparound
}

func normalizeSpan(start, end float64) angleSpan {
	s := mod(start, 360)
	e := mod(end, 360)
	if e <= s {
		e += 360
	}
	return angleSpan{s, e}
}

func (a angleSpan) contains(deg float64) bool {
	d := mod(deg, 360)
	if d < a.start {
		d += 360
	}
	return d >= a.start && d <= a.end
}

// angleDeg converts a pixel-space offset to a 0°=east, CCW-positive angle.
// Pixel y grows downward, so CCW-positive (from a viewer's perspective)
// means negating dy before calling atan2.
func angleDeg(dx, dy float64) float64 {
	return mod(math.Atan2(-dy, dx)*180/math.Pi, 360)
}

func hypot(dx, dy float64) float64 { return math.Hypot(dx, dy) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minInts(xs []int) int {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxInts(xs []int) int {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
