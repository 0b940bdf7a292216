package symbol

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// hpglScale converts raw HPGL plotter units into pixels at a given S-52
// library scale, per spec.md §4.6: all HPGL coordinates are multiplied by
// (32 * scale) / 810.
func hpglScale(scale float64) float64 {
	return (32 * scale) / 810
}

// Op is one parsed HPGL instruction: a two-letter opcode plus its
// comma-separated numeric arguments.
type Op struct {
	Code string
	Args []float64
}

// ParseHPGL splits a ';'-separated HPGL program into opcodes, each a
// two-letter mnemonic followed by comma-separated numeric arguments (e.g.
// "PU10,20;PD30,40,50,60;CI15").
func ParseHPGL(program string) ([]Op, error) {
	var ops []Op
	for _, stmt := range strings.Split(program, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if len(stmt) < 2 {
			return nil, fmt.Errorf("symbol: malformed HPGL statement %q", stmt)
		}
		code := stmt[:2]
		rest := strings.TrimSpace(stmt[2:])
		var args []float64
		if rest != "" {
			for _, tok := range strings.Split(rest, ",") {
				v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
				if err != nil {
					return nil, fmt.Errorf("symbol: bad HPGL argument %q in %q: %w", tok, stmt, err)
				}
				args = append(args, v)
			}
		}
		ops = append(ops, Op{Code: code, Args: args})
	}
	return ops, nil
}

// PenStyle supplies the colour and width a pen index draws with. Colour
// resolution against the active S-52 colour scheme is the caller's
// responsibility (symbol definitions only reference pen indices).
type PenStyle struct {
	Colour color.RGBA
	Width  int
}

// Interpret rasterizes an HPGL program into a base Symbol at the given
// library scale (the S-52 symbol's own authoring scale — not the dynamic
// render-time rotation/scale the Cache applies on top). A first pass walks
// every referenced coordinate to size the bounding box; a second pass
// replays the program into a correctly-sized buffer (spec.md §4.6).
func Interpret(name, program string, scale float64, pens map[int]PenStyle) (*Symbol, error) {
	ops, err := ParseHPGL(program)
	if err != nil {
		return nil, err
	}
	factor := hpglScale(scale)

	minX, minY, maxX, maxY := boundingBox(ops, factor)
	w := int(math.Ceil(maxX-minX)) + 1
	h := int(math.Ceil(maxY-minY)) + 1
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	interp := &interpreter{
		img:     img,
		pens:    pens,
		originX: minX,
		originY: minY,
		factor:  factor,
		pen:     1,
		width:   1,
	}
	if err := interp.run(ops); err != nil {
		return nil, err
	}

	return &Symbol{
		Name:   name,
		Image:  img,
		PivotX: w / 2,
		PivotY: h / 2,
	}, nil
}

func boundingBox(ops []Op, factor float64) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	seen := false
	visitPoints(ops, func(x, y float64) {
		x *= factor
		y *= factor
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
		seen = true
	})
	if !seen {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// visitPoints calls fn for every (x, y) coordinate pair referenced by PU,
// PD (which may carry a multi-point polyline), and CI (expanded to two
// opposite corners of its bounding square around the current pen position) — it
// tracks pen position the same way run does, so the sizing pass agrees with
// the draw pass.
func visitPoints(ops []Op, fn func(x, y float64)) {
	var curX, curY float64
	for _, op := range ops {
		switch op.Code {
		case "PU":
			if len(op.Args) >= 2 {
				curX, curY = op.Args[0], op.Args[1]
				fn(curX, curY)
			}
		case "PD":
			for i := 0; i+1 < len(op.Args); i += 2 {
				curX, curY = op.Args[i], op.Args[i+1]
				fn(curX, curY)
			}
		case "CI":
			if len(op.Args) >= 1 {
				r := op.Args[0]
				fn(curX-r, curY-r)
				fn(curX+r, curY+r)
			}
		}
	}
}

type interpreter struct {
	img           *image.RGBA
	pens          map[int]PenStyle
	originX       float64
	originY       float64
	factor        float64
	pen           int
	width         int
	transparent   bool
	curX, curY    float64
	havePos       bool
	polygonMode   bool
	polygon       []point
}

type point struct{ X, Y float64 }

func (in *interpreter) toPixel(x, y float64) (int, int) {
	return int(math.Round(x*in.factor - in.originX)), int(math.Round(y*in.factor - in.originY))
}

func (in *interpreter) run(ops []Op) error {
	for _, op := range ops {
		switch op.Code {
		case "SP": // set pen (colour index)
			if len(op.Args) > 0 {
				in.pen = int(op.Args[0])
			}
		case "SW": // set pen width
			if len(op.Args) > 0 {
				in.width = int(op.Args[0])
			}
		case "ST": // set transparency
			if len(op.Args) > 0 {
				in.transparent = op.Args[0] != 0
			}
		case "PU": // pen up: move without drawing
			if len(op.Args) >= 2 {
				in.curX, in.curY = op.Args[0], op.Args[1]
				in.havePos = true
			}
		case "PD": // pen down: draw a (possibly multi-point) polyline
			if err := in.penDown(op.Args); err != nil {
				return err
			}
		case "CI": // circle, centered at the current pen position
			if len(op.Args) >= 1 {
				in.circle(op.Args[0])
			}
		case "PM": // polygon mode: 0 starts, 2 closes (S-52's reduced subset)
			if len(op.Args) > 0 && op.Args[0] == 0 {
				in.polygonMode = true
				in.polygon = nil
				if in.havePos {
					in.polygon = append(in.polygon, point{in.curX, in.curY})
				}
			} else {
				in.polygonMode = false
			}
		case "FP": // fill polygon accumulated since the last PM
			in.fillPolygon()
		default:
			return fmt.Errorf("symbol: unsupported HPGL opcode %q", op.Code)
		}
	}
	return nil
}

func (in *interpreter) penDown(args []float64) error {
	if len(args) == 0 {
		return nil
	}
	if len(args)%2 != 0 {
		return fmt.Errorf("symbol: PD requires an even number of coordinates, got %d", len(args))
	}
	for i := 0; i+1 < len(args); i += 2 {
		x, y := args[i], args[i+1]
		if in.havePos {
			in.drawLine(in.curX, in.curY, x, y)
		}
		in.curX, in.curY = x, y
		in.havePos = true
		if in.polygonMode {
			in.polygon = append(in.polygon, point{x, y})
		}
	}
	return nil
}

func (in *interpreter) penStyle() PenStyle {
	if s, ok := in.pens[in.pen]; ok {
		return s
	}
	return PenStyle{Colour: color.RGBA{A: 255}, Width: 1}
}

func (in *interpreter) drawLine(x0, y0, x1, y1 float64) {
	style := in.penStyle()
	px0, py0 := in.toPixel(x0, y0)
	px1, py1 := in.toPixel(x1, y1)
	bresenhamLine(in.img, px0, py0, px1, py1, style.Colour)
}

func (in *interpreter) circle(radius float64) {
	style := in.penStyle()
	cx, cy := in.toPixel(in.curX, in.curY)
	r := radius * in.factor
	midpointCircle(in.img, cx, cy, r, style.Colour)
}

func (in *interpreter) fillPolygon() {
	if len(in.polygon) < 3 {
		return
	}
	style := in.penStyle()
	pts := make([]point, len(in.polygon))
	for i, p := range in.polygon {
		x, y := in.toPixel(p.X, p.Y)
		pts[i] = point{float64(x), float64(y)}
	}
	fillPolygonScanline(in.img, pts, style.Colour)
}

// bresenhamLine clips to img's bounds implicitly via the bounds check per
// pixel, matching internal/raster's clipped-primitive approach.
func bresenhamLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	b := img.Bounds()
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	x, y := x0, y0
	for {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
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

func midpointCircle(img *image.RGBA, cx, cy int, radius float64, c color.RGBA) {
	b := img.Bounds()
	r := int(math.Round(radius))
	x, y := r, 0
	err := 0
	plot := func(px, py int) {
		if image.Pt(px, py).In(b) {
			img.SetRGBA(px, py, c)
		}
	}
	for x >= y {
		plot(cx+x, cy+y)
		plot(cx+y, cy+x)
		plot(cx-y, cy+x)
		plot(cx-x, cy+y)
		plot(cx-x, cy-y)
		plot(cx-y, cy-x)
		plot(cx+y, cy-x)
		plot(cx+x, cy-y)
		y++
		if err <= 0 {
			err += 2*y + 1
		}
		if err > 0 {
			x--
			err -= 2*x + 1
		}
	}
}

func fillPolygonScanline(img *image.RGBA, pts []point, c color.RGBA) {
	b := img.Bounds()
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	y0 := int(math.Floor(minY))
	y1 := int(math.Ceil(maxY))
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}

	n := len(pts)
	for y := y0; y <= y1; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i := 0; i < n; i++ {
			a, bp := pts[i], pts[(i+1)%n]
			if (a.Y <= fy && bp.Y > fy) || (bp.Y <= fy && a.Y > fy) {
				t := (fy - a.Y) / (bp.Y - a.Y)
				xs = append(xs, a.X+t*(bp.X-a.X))
			}
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(math.Ceil(xs[i]))
			x1 := int(math.Floor(xs[i+1]))
			if x0 < b.Min.X {
				x0 = b.Min.X
			}
			if x1 >= b.Max.X {
				x1 = b.Max.X - 1
			}
			for x := x0; x <= x1; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func sortFloats(xs []float64) {
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

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
