package render

import (
	"fmt"

	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/raster"
	"github.com/chartkit/enctiles/internal/s52"
)

// RuleStep is the render pass a compiled rule belongs to (spec.md §4.7:
// "selects the step matching the pass (AC, then AP, then LUP's own step
// which is one of {AREA2, LINE, POINT})").
type RuleStep int

const (
	StepAreaColour RuleStep = iota // AC
	StepAreaPattern                // AP
	StepLine                       // LS, LC
	StepPoint                      // SY, TX, TE, MP, SS, CA
	stepCount
)

// MaxPasses is the number of render passes a chart group iterates
// (spec.md §4.7 step 5).
const MaxPasses = int(stepCount)

func ruleStep(r s52.Rule) RuleStep {
	switch r.Kind {
	case s52.RuleAC:
		return StepAreaColour
	case s52.RuleAP:
		return StepAreaPattern
	case s52.RuleLS, s52.RuleLC:
		return StepLine
	default:
		return StepPoint
	}
}

// RenderObject wraps one immutable parser.Feature with its resolved LUP,
// expanded rule list, measured text strings, and pixel extent — computed
// once per chart (spec.md §3 "Render object"), reused across every tile
// that chart contributes to.
type RenderObject struct {
	Feature  *parser.Feature
	LUP      *s52.LUP
	Rules    s52.RuleList
	Category s52.DisplayCategory // effective category, possibly overridden by SDC
	Priority int                 // LUP.DisplayPriority, used for the SCAMIN override gate

	Text []TextInstance

	// Extent is the feature's world-coordinate bounding box, used to test
	// intersection against a tile's box before any per-pixel work.
	Extent coord.Box
}

// TextInstance pairs a compiled TX/TE rule's resolved string with its
// measured DisplayString, built eagerly at bind time.
type TextInstance struct {
	Args    *s52.TextArgs
	Display DisplayString
}

// objectKey is the stable per-feature identifier the RuleCreator memoizes
// CS-rule expansion against (spec.md §3's "stable key", generalized from a
// single rule key to the feature identity that key must be scoped by —
// see internal/s52's memoization fix documented in DESIGN.md).
func objectKey(f *parser.Feature) string {
	return fmt.Sprintf("%s#%d", f.ObjectClass, f.ID)
}

// BindRenderObject resolves feature's LUP, expands its CS rules through rc,
// eagerly renders its TX/TE text, and computes its world-coordinate extent
// — spec.md §4.4's "Render-object expansion".
func BindRenderObject(tables *s52.Tables, rc *s52.RuleCreator, feature *parser.Feature, cond s52.RuleConditions) (*RenderObject, error) {
	attrs := s52.AttrSet(feature.Attributes)
	candidates := tables.Candidates(feature.ObjectClass)
	lup := s52.Match(candidates, attrs)
	if lup == nil {
		return nil, fmt.Errorf("render: no LUP for object class %q", feature.ObjectClass)
	}

	compiled, err := lup.Compiled()
	if err != nil {
		return nil, fmt.Errorf("render: compiling LUP for %q: %w", feature.ObjectClass, err)
	}

	expanded, err := rc.Expand(compiled, objectKey(feature), attrs, cond)
	if err != nil {
		return nil, fmt.Errorf("render: expanding rules for %q: %w", feature.ObjectClass, err)
	}

	obj := &RenderObject{
		Feature:  feature,
		LUP:      lup,
		Rules:    expanded,
		Category: lup.Category,
		Priority: lup.DisplayPriority,
		Extent:   geometryExtent(feature.Geometry),
	}

	for _, r := range expanded {
		switch r.Kind {
		case s52.RuleTX:
			text := r.TX.Literal
			obj.Text = append(obj.Text, buildTextInstance(r.TX, text))
		case s52.RuleTE:
			text := formatAttrText(attrs, r.TX.Attr)
			if text != "" {
				obj.Text = append(obj.Text, buildTextInstance(r.TX, text))
			}
		case s52.RuleSDC:
			obj.Category = s52.DisplayBase
		}
	}

	return obj, nil
}

// EvaluateHit drives obj's rules through the rasterizer in check-only mode
// across all render passes (spec.md §4.9 step 2's "execute the four render
// steps [...]; if any step sets hasDrawn, the object is considered a
// hit"), leaving no pixels painted either way.
func EvaluateHit(obj *RenderObject, rctx *RenderContext, drawing *raster.DrawingContext, tile coord.TileBox) bool {
	drawing.SetCheckOnly(true)
	defer drawing.SetCheckOnly(false)
	drawing.ResetHasDrawn()
	for pass := 0; pass < MaxPasses; pass++ {
		for _, r := range obj.Rules {
			if ruleStep(r) != RuleStep(pass) {
				continue
			}
			drawRule(obj, r, rctx, drawing, tile)
		}
	}
	return drawing.HasDrawn()
}

// HasAreaFillRule reports whether obj carries an area-colour (AC) or
// area-pattern (AP) rule, the condition feature-info uses to decide an
// area object needs the point-in-polygon fallback instead (spec.md §4.9
// step 2: "for area objects with no area-fill rule...").
func HasAreaFillRule(obj *RenderObject) bool {
	for _, r := range obj.Rules {
		if r.Kind == s52.RuleAC || r.Kind == s52.RuleAP {
			return true
		}
	}
	return false
}

func buildTextInstance(args *s52.TextArgs, text string) TextInstance {
	return TextInstance{
		Args:    args,
		Display: NewDisplayString(text, args.HJust, args.VJust, args.XOffset, args.YOffset),
	}
}

// formatAttrText implements TE's minimal attribute-formatting grammar: a
// comma-separated list of attribute names, joined with a space (S-52's
// printf-style format strings are external presentation-library data not
// reproduced here; object attribute values are used verbatim).
func formatAttrText(attrs s52.AttrSet, spec string) string {
	if spec == "" {
		return ""
	}
	out := ""
	start := 0
	for i := 0; i <= len(spec); i++ {
		if i == len(spec) || spec[i] == ',' {
			name := spec[start:i]
			start = i + 1
			if name == "" {
				continue
			}
			if v, ok := attrs.String(name); ok && v != "" {
				if out != "" {
					out += " "
				}
				out += v
			}
		}
	}
	return out
}

// geometryExtent computes the world-coordinate bounding box of a feature's
// geometry (lon/lat coordinate pairs, per parser.Geometry's GeoJSON
// convention).
func geometryExtent(g parser.Geometry) coord.Box {
	if len(g.Coordinates) == 0 {
		return coord.Box{Xmax: -1, Ymax: -1} // Empty()
	}
	first := g.Coordinates[0]
	box := coord.Box{
		Xmin: coord.LonToWorldX(first[0], true),
		Xmax: coord.LonToWorldX(first[0], true),
		Ymin: coord.LatToWorldY(first[1]),
		Ymax: coord.LatToWorldY(first[1]),
	}
	for _, c := range g.Coordinates[1:] {
		x := coord.LonToWorldX(c[0], true)
		y := coord.LatToWorldY(c[1])
		if x < box.Xmin {
			box.Xmin = x
		}
		if x > box.Xmax {
			box.Xmax = x
		}
		if y < box.Ymin {
			box.Ymin = y
		}
		if y > box.Ymax {
			box.Ymax = y
		}
	}
	return box
}
