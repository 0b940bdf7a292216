package symbol

import (
	"image"
	"image/color"
	"testing"
)

func solidSquare(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCacheGetBaseSymbolNoTransform(t *testing.T) {
	c := NewCache(8)
	base := &Symbol{Name: "LIGHTS81", Image: solidSquare(4, color.RGBA{R: 255, A: 255}), PivotX: 2, PivotY: 2}
	c.Register(base)

	got, ok := c.Get("LIGHTS81", 0, 1)
	if !ok {
		t.Fatal("expected the base symbol to be found")
	}
	if got.Image != base.Image {
		t.Fatal("expected rotation=0/scale=1 to return the exact base image, not a derived copy")
	}
}

func TestCacheGetMissingSymbol(t *testing.T) {
	c := NewCache(8)
	if _, ok := c.Get("NOPE", 0, 1); ok {
		t.Fatal("expected a miss for an unregistered symbol")
	}
}

func TestCacheGetReusesWithinTolerance(t *testing.T) {
	c := NewCache(8)
	c.ToleranceDeg = 2
	c.Register(&Symbol{Name: "S", Image: solidSquare(8, color.RGBA{G: 255, A: 255}), PivotX: 4, PivotY: 4})

	a, ok := c.Get("S", 10.0, 1)
	if !ok {
		t.Fatal("expected a hit")
	}
	b, ok := c.Get("S", 10.9, 1) // within the 2-degree tolerance bucket
	if !ok {
		t.Fatal("expected a hit")
	}
	if a.Image != b.Image {
		t.Fatal("expected rotations within tolerance to share the same cached bitmap")
	}
}

func TestCacheEvictsOldestDerivedEntriesWhenFull(t *testing.T) {
	c := NewCache(2)
	c.Register(&Symbol{Name: "S", Image: solidSquare(4, color.RGBA{B: 255, A: 255}), PivotX: 2, PivotY: 2})

	c.Get("S", 10, 1)
	c.Get("S", 20, 1)
	c.Get("S", 30, 1) // evicts the 10-degree entry

	if len(c.derived) > 2 {
		t.Fatalf("expected the derived cache to stay bounded at 2 entries, got %d", len(c.derived))
	}
	oldest := key{name: "S", rotationBin: bucket(10, c.ToleranceDeg), scaleBin: bucket(1, c.ToleranceScale)}
	if _, ok := c.derived[oldest]; ok {
		t.Fatal("expected the 10-degree entry, the oldest, to be the one evicted")
	}
}

func TestTransformScalesSolidSquare(t *testing.T) {
	src := solidSquare(10, color.RGBA{R: 255, A: 255})
	out := transform(src, 0, 2)
	b := out.Bounds()
	if b.Dx() < 18 || b.Dy() < 18 {
		t.Fatalf("expected roughly a 20x20 output for 2x scale, got %+v", b)
	}
	if out.RGBAAt(b.Dx()/2, b.Dy()/2).A == 0 {
		t.Fatal("expected the center of a scaled solid square to remain opaque")
	}
}
