// Package coord implements the fixed-precision integer world-coordinate model
// used to place chart features and tiles on a shared grid.
//
// The earth is projected with spherical Mercator into a signed integer "world
// coordinate" fixed at a reference zoom level with sub-pixel precision. Unlike
// a plain XYZ tile scheme, values are shifted so the origin sits at the centre
// of the representable range (lon=0, lat=0), with two extra high bits of
// headroom reserved so that antimeridian-crossing geometry can be tested both
// at its native position and shifted by a full world width without overflow.
package coord

import "math"

const (
	// RefZoom is the zoom level at which world coordinates carry full precision.
	RefZoom = 20

	// TileSizeBits is log2 of the tile dimension in pixels (256 = 2^8).
	TileSizeBits = 8

	// TileSize is the tile edge length in pixels.
	TileSize = 1 << TileSizeBits

	// SubPixelBits is the number of fractional bits retained below one pixel.
	SubPixelBits = 1

	// reservedWrapBits gives headroom above the ±half-world range so a box can
	// be shifted by a full WorldShift without its Xmax/Xmin saturating.
	reservedWrapBits = 2

	// MaxLat is the Mercator projection's latitude clamp (spec.md §4.1).
	MaxLat = 85.0511
)

var maxLatMerc = math.Log(math.Tan(math.Pi/4 + (MaxLat*math.Pi/180)/2))

// bitsPerPixel returns the number of world-coordinate bits represented by one
// pixel at the given zoom: REF_ZOOM - zoom + SUB_PIXEL_BITS.
func bitsPerPixel(zoom int) uint {
	return uint(RefZoom - zoom + SubPixelBits)
}

// bitsPerTile returns the number of world-coordinate bits spanned by one tile
// at the given zoom.
func bitsPerTile(zoom int) uint {
	return bitsPerPixel(zoom) + TileSizeBits
}

// half is half of the representable world width at RefZoom, i.e. the world
// coordinate of the antimeridian (lon=±180, before centring).
var half = int64(1) << (RefZoom + TileSizeBits + SubPixelBits - 1)

// WorldShift is the full world width in world-coordinate units; adding or
// subtracting it from an X coordinate moves geometry by exactly 360° of
// longitude, used when probing antimeridian-crossing charts (spec.md §4.3).
var WorldShift = half * 2

// Limits bounds valid world-coordinate values, including the reserved wrap
// headroom. Values outside this range indicate a programmer error upstream.
var Limits = struct {
	Min, Max int64
}{
	Min: -half << reservedWrapBits,
	Max: (half << reservedWrapBits) - 1,
}

// AddSat adds b to a, saturating at Limits instead of overflowing.
func AddSat(a, b int64) int64 {
	sum := a + b
	// Overflow check via sign bits, then clamp to the documented range.
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return Limits.Max
		}
		return Limits.Min
	}
	if sum > Limits.Max {
		return Limits.Max
	}
	if sum < Limits.Min {
		return Limits.Min
	}
	return sum
}

// wrapLon normalizes a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// LonToWorldX converts a longitude in degrees to a world X coordinate. If
// clip is true the longitude is first wrapped into [-180, 180); otherwise a
// caller-supplied out-of-range value is scaled as-is (used for antimeridian
// continuity checks).
func LonToWorldX(lon float64, clip bool) int64 {
	if clip {
		lon = wrapLon(lon)
	}
	return int64(math.Round(lon / 360.0 * float64(WorldShift)))
}

// WorldXToLon is the inverse of LonToWorldX (with clip=true semantics).
func WorldXToLon(x int64) float64 {
	return float64(x) / float64(WorldShift) * 360.0
}

// LatToWorldY converts a latitude in degrees (clipped to ±MaxLat) to a world
// Y coordinate via the spherical Mercator projection.
func LatToWorldY(lat float64) int64 {
	if lat > MaxLat {
		lat = MaxLat
	}
	if lat < -MaxLat {
		lat = -MaxLat
	}
	rad := lat * math.Pi / 180
	merc := math.Log(math.Tan(math.Pi/4 + rad/2))
	return int64(math.Round(-merc / maxLatMerc * float64(half)))
}

// WorldYToLat is the inverse of LatToWorldY.
func WorldYToLat(y int64) float64 {
	merc := -float64(y) / float64(half) * maxLatMerc
	rad := 2 * (math.Atan(math.Exp(merc)) - math.Pi/4)
	return rad * 180 / math.Pi
}

// WorldToPixel converts a world coordinate to an absolute pixel coordinate at
// the given zoom, preserving sign (arithmetic right shift).
func WorldToPixel(v int64, zoom int) int64 {
	return v >> bitsPerPixel(zoom)
}

// PixelToWorld is the inverse of WorldToPixel.
func PixelToWorld(p int64, zoom int) int64 {
	return p << bitsPerPixel(zoom)
}

// Point is a world-coordinate pair.
type Point struct {
	X, Y int64
}

// wrapWorldX reduces x modulo WorldShift into [-half, half).
func wrapWorldX(x int64) int64 {
	x = (x + half) % WorldShift
	if x < 0 {
		x += WorldShift
	}
	return x - half
}

func clampWorldY(y int64) int64 {
	if y < -half {
		return -half
	}
	if y >= half {
		return half - 1
	}
	return y
}

// WorldPointToTile returns the tile (x, y) at the given zoom that contains p.
// The X coordinate wraps around the antimeridian; Y is clipped to the poles.
func WorldPointToTile(p Point, zoom int) (tx, ty int64) {
	x := wrapWorldX(p.X)
	y := clampWorldY(p.Y)
	tb := bitsPerTile(zoom)
	tx = (x + half) >> tb
	ty = (y + half) >> tb
	return
}

// Box is a world-coordinate axis-aligned bounding box. Box values are not
// tagged with a zoom; TileBox adds that where per-tile pixel conversion is
// needed.
type Box struct {
	Xmin, Ymin, Xmax, Ymax int64
}

// Empty reports whether the box contains no area.
func (b Box) Empty() bool {
	return b.Xmax < b.Xmin || b.Ymax < b.Ymin
}

// Intersects reports whether b and other share any point.
func (b Box) Intersects(other Box) bool {
	if b.Empty() || other.Empty() {
		return false
	}
	return !(other.Xmax < b.Xmin || other.Xmin > b.Xmax ||
		other.Ymax < b.Ymin || other.Ymin > b.Ymax)
}

// Includes reports whether the point p lies within b (inclusive).
func (b Box) Includes(p Point) bool {
	return p.X >= b.Xmin && p.X <= b.Xmax && p.Y >= b.Ymin && p.Y <= b.Ymax
}

// Shift translates the box by (dx, dy), saturating at the representable range.
func (b Box) Shift(dx, dy int64) Box {
	return Box{
		Xmin: AddSat(b.Xmin, dx),
		Ymin: AddSat(b.Ymin, dy),
		Xmax: AddSat(b.Xmax, dx),
		Ymax: AddSat(b.Ymax, dy),
	}
}

// Expand grows the box by margin on every side, saturating at the
// representable range.
func (b Box) Expand(margin int64) Box {
	return Box{
		Xmin: AddSat(b.Xmin, -margin),
		Ymin: AddSat(b.Ymin, -margin),
		Xmax: AddSat(b.Xmax, margin),
		Ymax: AddSat(b.Ymax, margin),
	}
}

// Extend grows b to also cover other. It panics if the union would span more
// than one world width (WorldShift) on the X axis — that ambiguity (which
// way does the box wrap?) is a programmer error the caller must resolve by
// choosing an explicit antimeridian-shifted variant instead (spec.md §9).
func (b Box) Extend(other Box) Box {
	if other.Empty() {
		return b
	}
	if b.Empty() {
		return other
	}
	xmin, xmax := min64(b.Xmin, other.Xmin), max64(b.Xmax, other.Xmax)
	if xmax-xmin > WorldShift {
		panic("coord: Box.Extend would span more than one world width; resolve antimeridian wrap explicitly")
	}
	return Box{
		Xmin: xmin,
		Ymin: min64(b.Ymin, other.Ymin),
		Xmax: xmax,
		Ymax: max64(b.Ymax, other.Ymax),
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// TileBox is a Box tagged with the zoom level it was derived for, providing
// per-tile pixel conversions.
type TileBox struct {
	Box
	Z int
}

// TileToBox returns the world-coordinate box covering tile (z, x, y). An
// optional pixelBorder (in pixels, at this zoom) expands the box, used by
// the catalog to find charts that merely touch a tile's edge.
func TileToBox(z int, x, y int64, pixelBorder int) TileBox {
	tb := bitsPerTile(z)
	xmin := (x << tb) - half
	ymin := (y << tb) - half
	xmax := xmin + (int64(1)<<tb - 1)
	ymax := ymin + (int64(1)<<tb - 1)
	box := Box{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax}
	if pixelBorder > 0 {
		box = box.Expand(int64(pixelBorder) << bitsPerPixel(z))
	}
	return TileBox{Box: box, Z: z}
}

// WorldToPixel converts a world X or Y coordinate to a pixel position
// relative to this tile's origin, in [0, TileSize) for in-tile coordinates
// (values outside that range indicate the coordinate lies outside the tile).
func (t TileBox) WorldToPixel(v int64) int {
	return int(WorldToPixel(v, t.Z) - WorldToPixel(t.Xmin, t.Z))
}

// WorldToPixelY is WorldToPixel for the Y axis (kept distinct in case future
// projections need asymmetric handling; currently identical math).
func (t TileBox) WorldToPixelY(v int64) int {
	return int(WorldToPixel(v, t.Z) - WorldToPixel(t.Ymin, t.Z))
}

// RelPixelToWorld converts a pixel position relative to this tile's origin
// back to an absolute world coordinate.
func (t TileBox) RelPixelToWorld(px int) int64 {
	return AddSat(t.Xmin, PixelToWorld(int64(px), t.Z))
}

// RelPixelToWorldY is RelPixelToWorld for the Y axis.
func (t TileBox) RelPixelToWorldY(py int) int64 {
	return AddSat(t.Ymin, PixelToWorld(int64(py), t.Z))
}

// Bounds is a geographic (longitude/latitude, decimal degrees) bounding box,
// used by the chart-set catalog where it is more convenient than world
// coordinates (chart extents are naturally expressed in lon/lat).
type Bounds struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Intersects reports whether b and other overlap.
func (b Bounds) Intersects(other Bounds) bool {
	return !(other.MaxLon < b.MinLon || other.MinLon > b.MaxLon ||
		other.MaxLat < b.MinLat || other.MinLat > b.MaxLat)
}

// Union returns the smallest Bounds containing both b and other.
func (b Bounds) Union(other Bounds) Bounds {
	if b == (Bounds{}) {
		return other
	}
	if other == (Bounds{}) {
		return b
	}
	return Bounds{
		MinLon: math.Min(b.MinLon, other.MinLon),
		MinLat: math.Min(b.MinLat, other.MinLat),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
	}
}

// ToWorldBox converts a geographic Bounds to a world-coordinate Box.
func (b Bounds) ToWorldBox() Box {
	return Box{
		Xmin: LonToWorldX(b.MinLon, true),
		Xmax: LonToWorldX(b.MaxLon, true),
		Ymin: LatToWorldY(b.MaxLat), // north has the smaller world Y
		Ymax: LatToWorldY(b.MinLat),
	}
}
