package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DisplayString is a render object's pre-measured TX/TE output: the glyph
// coverage mask plus the pixel box it occupies relative to its anchor
// point, computed once at LUP-bind time (spec.md §4.4 "Render-object
// expansion" — "eagerly expand text rules producing measured
// DisplayStrings").
type DisplayString struct {
	Text    string
	Mask    *image.Alpha
	Width   int
	Height  int
	XOffset int // pixel offset from anchor to the mask's top-left, after HJust/VJust
	YOffset int
}

// glyphFace is the bitmap font used for all TX/TE rendering. No pack
// example repo rasterizes text of its own — phanxgames-willow references
// golang.org/x/image/font only from its example/ directory (gofont/
// goregular), never its library code, and golang.org/x/image is already an
// indirect dependency of the module closure — so this is the ecosystem's
// standard minimal bitmap face rather than a pack-internal pattern; see
// DESIGN.md.
var glyphFace = basicfont.Face7x13

// measureText returns the pixel width/height basicfont.Face7x13 renders s
// at, using font.Drawer's advance measurement.
func measureText(s string) (w, h int) {
	d := &font.Drawer{Face: glyphFace}
	adv := d.MeasureString(s)
	return adv.Ceil(), glyphFace.Height
}

// renderGlyphMask rasterizes s into a tightly-sized alpha coverage mask.
// basicfont is a fixed bitmap face (no anti-aliasing), so the mask is
// binary coverage — DrawGlyph still blends it through the normal alpha
// path, so a future AA-capable face drops in without changing callers.
func renderGlyphMask(s string) *image.Alpha {
	w, h := measureText(s)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  maskDrawTarget{mask},
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: glyphFace,
		Dot:  fixed.P(0, glyphFace.Ascent),
	}
	d.DrawString(s)
	return mask
}

// maskDrawTarget adapts *image.Alpha to draw.Image so font.Drawer (which
// wants an RGBA-capable Set) can paint into a plain alpha buffer.
type maskDrawTarget struct{ m *image.Alpha }

func (t maskDrawTarget) ColorModel() color.Model { return t.m.ColorModel() }
func (t maskDrawTarget) Bounds() image.Rectangle { return t.m.Bounds() }
func (t maskDrawTarget) At(x, y int) color.Color { return t.m.At(x, y) }
func (t maskDrawTarget) Set(x, y int, c color.Color) {
	_, _, _, a := c.RGBA()
	if a == 0 {
		return
	}
	t.m.SetAlpha(x, y, color.Alpha{A: uint8(a >> 8)})
}

var _ draw.Image = maskDrawTarget{}

// NewDisplayString builds a DisplayString for text, placed per S-52's
// horizontal/vertical justification codes (1=centre/middle, 2=right/bottom,
// 3=left/top — HJust/VJust use the S-52 CHART LOOKUP convention) offset by
// (xOffset, yOffset) pixels, taken unscaled from TextArgs' XOffset/YOffset
// fields (spec.md §4.4's TX/TE rule table).
func NewDisplayString(text string, hJust, vJust, xOffset, yOffset int) DisplayString {
	mask := renderGlyphMask(text)
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	dx := 0
	switch hJust {
	case 1: // centre
		dx = -w / 2
	case 2: // right
		dx = -w
	}
	dy := 0
	switch vJust {
	case 1: // middle
		dy = -h / 2
	case 2: // bottom
		dy = -h
	}

	return DisplayString{
		Text:    text,
		Mask:    mask,
		Width:   w,
		Height:  h,
		XOffset: dx + xOffset,
		YOffset: dy + yOffset,
	}
}
