// Package symbol implements the S-52 symbol cache: base vector symbols
// rasterized once from their HPGL definition, plus rotation/scale variants
// cached on demand within a tolerance so a slowly-sweeping sector light
// doesn't thrash the cache with a new bitmap every frame (spec.md §4.6).
package symbol

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/chartkit/enctiles/internal/metrics"
)

// key identifies one cached rasterization of a base symbol.
type key struct {
	name        string
	rotationBin int // rotation quantized to ToleranceDeg buckets
	scaleBin    int // scale quantized to ToleranceScale buckets
}

// Cache rasterizes and caches symbol bitmaps, bounded to maxEntries with
// FIFO eviction — the same bounded-cache shape as
// pspoerri-geotiff2pmtiles/internal/cog/tilecache.go's TileCache, generalized
// from decoded source tiles to rotated/scaled symbol bitmaps.
type Cache struct {
	mu      sync.Mutex
	base    map[string]*Symbol
	derived map[key]*image.RGBA
	order   []key
	maxSize int

	// ToleranceDeg/ToleranceScale bucket rotation and scale so that nearby
	// requests reuse the same cached bitmap instead of rerasterizing.
	ToleranceDeg   float64
	ToleranceScale float64
}

// NewCache creates a symbol cache with room for maxEntries derived bitmaps.
// Base symbols (as registered via Register) are never evicted.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	return &Cache{
		base:           make(map[string]*Symbol),
		derived:        make(map[key]*image.RGBA, maxEntries),
		order:          make([]key, 0, maxEntries),
		maxSize:        maxEntries,
		ToleranceDeg:   1,
		ToleranceScale: 0.02,
	}
}

// Symbol is a base S-52 point symbol: a rasterized RGBA image plus its pivot
// (the symbol's own reference point, per its HPGL PIVOT definition).
type Symbol struct {
	Name      string
	Image     *image.RGBA
	PivotX    int
	PivotY    int
}

// Register adds a base symbol (already rasterized from its HPGL program via
// Interpret) to the cache under its name.
func (c *Cache) Register(s *Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base[s.Name] = s
}

// Get returns the bitmap for name rotated by rotationDeg and scaled by
// scale, rasterizing and caching it if not already present at this
// (rotation, scale) bucket.
func (c *Cache) Get(name string, rotationDeg float64, scale float64) (*Symbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, ok := c.base[name]
	if !ok {
		metrics.RecordSymbolCacheResult("miss")
		return nil, false
	}
	if rotationDeg == 0 && scale == 1 {
		metrics.RecordSymbolCacheResult("base")
		return base, true
	}

	k := key{
		name:        name,
		rotationBin: bucket(rotationDeg, c.ToleranceDeg),
		scaleBin:    bucket(scale, c.ToleranceScale),
	}
	if img, ok := c.derived[k]; ok {
		metrics.RecordSymbolCacheResult("derived")
		return &Symbol{Name: name, Image: img, PivotX: base.PivotX, PivotY: base.PivotY}, true
	}

	img := transform(base.Image, rotationDeg, scale)
	c.put(k, img)
	metrics.RecordSymbolCacheResult("computed")
	return &Symbol{Name: name, Image: img, PivotX: scalePivot(base.PivotX, scale), PivotY: scalePivot(base.PivotY, scale)}, true
}

func (c *Cache) put(k key, img *image.RGBA) {
	if _, ok := c.derived[k]; ok {
		return
	}
	for len(c.derived) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.derived, oldest)
	}
	c.derived[k] = img
	c.order = append(c.order, k)
}

func scalePivot(v int, scale float64) int {
	return int(math.Round(float64(v) * scale))
}

func bucket(v, tolerance float64) int {
	if tolerance <= 0 {
		return 0
	}
	return int(math.Round(v / tolerance))
}

// transform scales then rotates src using bilinear sampling, grounded on
// pspoerri-geotiff2pmtiles/internal/tile/resample.go's bilinearSampleCached
// four-corner lerp.
func transform(src *image.RGBA, rotationDeg, scale float64) *image.RGBA {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	dstW := int(math.Ceil(float64(srcW) * scale))
	dstH := int(math.Ceil(float64(srcH) * scale))
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	theta := rotationDeg * math.Pi / 180
	sinT, cosT := math.Sin(theta), math.Cos(theta)

	cx, cy := float64(dstW)/2, float64(dstH)/2
	scx, scy := float64(srcW)/2, float64(srcH)/2

	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for dy := 0; dy < dstH; dy++ {
		for dx := 0; dx < dstW; dx++ {
			// Map destination pixel back to source space: undo rotation,
			// then undo scale, centered on each image's own midpoint.
			x := float64(dx) - cx
			y := float64(dy) - cy
			rx := x*cosT + y*sinT
			ry := -x*sinT + y*cosT
			sx := rx/scale + scx
			sy := ry/scale + scy

			c, ok := bilinearSample(src, sx, sy)
			if ok {
				out.SetRGBA(dx, dy, c)
			}
		}
	}
	return out
}

func bilinearSample(src *image.RGBA, fx, fy float64) (color.RGBA, bool) {
	b := src.Bounds()
	if fx < -1 || fy < -1 || fx > float64(b.Dx()) || fy > float64(b.Dy()) {
		return color.RGBA{}, false
	}
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1, y1 := x0+1, y0+1
	dx := fx - math.Floor(fx)
	dy := fy - math.Floor(fy)

	p00 := clampedAt(src, x0, y0)
	p10 := clampedAt(src, x1, y0)
	p01 := clampedAt(src, x0, y1)
	p11 := clampedAt(src, x1, y1)

	lerp := func(a, b, t float64) float64 { return a*(1-t) + b*t }
	mix := func(f func(color.RGBA) uint8) uint8 {
		top := lerp(float64(f(p00)), float64(f(p10)), dx)
		bot := lerp(float64(f(p01)), float64(f(p11)), dx)
		return uint8(clamp255(lerp(top, bot, dy)))
	}
	c := color.RGBA{
		R: mix(func(c color.RGBA) uint8 { return c.R }),
		G: mix(func(c color.RGBA) uint8 { return c.G }),
		B: mix(func(c color.RGBA) uint8 { return c.B }),
		A: mix(func(c color.RGBA) uint8 { return c.A }),
	}
	return c, c.A > 0
}

func clampedAt(src *image.RGBA, x, y int) color.RGBA {
	b := src.Bounds()
	if x < b.Min.X {
		x = b.Min.X
	}
	if x >= b.Max.X {
		x = b.Max.X - 1
	}
	if y < b.Min.Y {
		y = b.Min.Y
	}
	if y >= b.Max.Y {
		y = b.Max.Y - 1
	}
	return src.RGBAAt(x, y)
}

func clamp255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
