package s52

// RuleConditions carries the render-time, chart-independent inputs a
// conditional-rule function needs beyond the feature's own attributes:
// current mariner settings and a handful of derived facts about the
// feature's place in the chart (spec.md §4.4/§4.5).
type RuleConditions struct {
	// SafetyContour is the mariner's chosen safety depth, in metres.
	SafetyContour float64
	// ShallowContour and DeepContour bound DEPARE's three-shade fill bands.
	ShallowContour float64
	DeepContour    float64
	// TwoShades selects the simplified two-colour depth scheme (shallow/safe
	// vs. deep) over the default four-colour scheme.
	TwoShades bool

	// DepthUnits is "metres" or "feet"; soundings and contour attributes are
	// converted to metres before comparison when it is "feet" (§9 Open
	// Question decision, see DESIGN.md).
	DepthUnits string

	// NextSafetyContourValue is the native DRVAL1 of the next deeper contour
	// ring outward from this one, used by DEPCNT02 to decide whether a
	// contour line is the safety contour itself.
	NextSafetyContourValue float64
	HasNextSafetyContour   bool

	// HasFloatingBase reports whether a light/beacon's platform is a buoy
	// or other floating structure (from the feature's own geometry/
	// association, resolved by the caller before invoking the rule).
	HasFloatingBase bool

	// QuaposAccuracy carries the resolved quality-of-position category for
	// QUAPOS01 (derived from the feature's QUAPOS/CATZOC attributes by the
	// caller, which may need sibling-feature context this function doesn't
	// have).
	QuaposAccuracy int
}

func feetToMetres(v float64) float64 { return v * 0.3048 }

func (c RuleConditions) toMetres(v float64) float64 {
	if c.DepthUnits == "feet" {
		return feetToMetres(v)
	}
	return v
}

// ConditionalFunc computes a rule string for a CS instruction, given the
// feature's attributes and the current render conditions. Returning ("", nil)
// means the feature produces no symbology under these conditions (the CS
// rule contributes nothing).
type ConditionalFunc func(attrs AttrSet, c RuleConditions) (string, error)

// DefaultConditionals returns the standard S-52 conditional-symbology
// procedures this engine implements, keyed by their S-52 procedure name.
// Names and behavior follow the S-52 Presentation Library chapter 6 as
// summarized in spec.md §4.4. TOPMAR01, RESTRN01 and QUAPOS01 are registered
// although no DefaultTables LUP rule string invokes them.
func DefaultConditionals() map[string]ConditionalFunc {
	return map[string]ConditionalFunc{
		"DEPARE02": depare02,
		"DEPCNT02": depcnt02,
		"LIGHTS06": lights06,
		"WRECKS02": wrecks02,
		"OBSTRN04": obstrn04,
		"TOPMAR01": topmar01,
		"RESARE02": resare02,
		"RESTRN01": restrn01,
		"SLCONS03": slcons03,
		"QUAPOS01": quapos01,
		"SOUNDG02": soundg02,
		"DATCVR01": datcvr01,
	}
}

// depare02 picks a DEPARE area's fill colour from its DRVAL1/DRVAL2 depth
// range against the mariner's safety/shallow/deep contour settings. Two
// independent colour schemes: "two shades" (shallow vs. safe) or the
// default four-band scheme (spec.md scenario S6 is the two-shades=false,
// DRVAL1=3,DRVAL2=4, safety=5, shallow=2, deep=10 case → AC(DEPMS)).
func depare02(attrs AttrSet, c RuleConditions) (string, error) {
	drval1, ok1 := attrs.Float("DRVAL1")
	if !ok1 {
		drval1 = 0
	}
	drval2, ok2 := attrs.Float("DRVAL2")
	if !ok2 {
		drval2 = drval1
	}
	drval1 = c.toMetres(drval1)
	drval2 = c.toMetres(drval2)

	if c.TwoShades {
		if drval2 <= c.SafetyContour {
			return "AC(DEPVS)", nil
		}
		return "AC(DEPDW)", nil
	}

	switch {
	case drval2 <= c.ShallowContour:
		return "AC(DEPVS)", nil
	case drval1 >= c.SafetyContour && drval2 > c.SafetyContour:
		if drval1 >= c.DeepContour {
			return "AC(DEPDW)", nil
		}
		return "AC(DEPMD)", nil
	case drval1 < c.SafetyContour && drval2 > c.SafetyContour:
		return "AC(DEPMS)", nil
	case drval2 <= c.SafetyContour:
		return "AC(DEPMS)", nil
	default:
		return "AC(DEPDW)", nil
	}
}

// depcnt02 draws a depth-contour line, switching to the bold safety-contour
// line style when this contour's DRVAL1 equals the mariner's safety depth
// (within the next-contour gap the caller resolved into NextSafetyContourValue).
func depcnt02(attrs AttrSet, c RuleConditions) (string, error) {
	drval1, _ := attrs.Float("DRVAL1")
	drval1 = c.toMetres(drval1)
	if drval1 >= c.SafetyContour && (!c.HasNextSafetyContour || c.toMetres(c.NextSafetyContourValue) > c.SafetyContour) {
		return "LS(DASH,2,DEPSC)", nil
	}
	return "LS(SOLID,1,DEPCN)", nil
}

// lights06 resolves a light's sector/colour symbology; a light with no
// sector attributes gets a plain all-round light symbol.
func lights06(attrs AttrSet, c RuleConditions) (string, error) {
	if attrs.Has("SECTR1") && attrs.Has("SECTR2") {
		return "CA(LITRD,LITRD,15,SECTR1,SECTR2)", nil
	}
	colour, _ := attrs.Int("COLOUR")
	switch colour {
	case 3: // red
		return "SY(LIGHTS82)", nil
	case 4: // green
		return "SY(LIGHTS83)", nil
	default:
		return "SY(LIGHTS81)", nil
	}
}

// wrecks02 distinguishes dangerous wrecks (shallower than the safety
// contour, or of unknown depth and marked dangerous) from non-dangerous ones.
func wrecks02(attrs AttrSet, c RuleConditions) (string, error) {
	catwrk, _ := attrs.Int("CATWRK")
	valsou, hasDepth := attrs.Float("VALSOU")
	if hasDepth && c.toMetres(valsou) <= c.SafetyContour {
		return "SY(DANGER01);TE('%4.1lf',VALSOU,2,1,3,'15110',2,-2,CHBLK,21)", nil
	}
	if catwrk == 1 || catwrk == 2 {
		return "SY(DANGER01)", nil
	}
	return "SY(WRECKS05)", nil
}

// obstrn04 mirrors wrecks02's safety-contour dangerous/non-dangerous split
// for generic obstructions, with an additional underwater-rock symbol for
// CATOBS==6.
func obstrn04(attrs AttrSet, c RuleConditions) (string, error) {
	catobs, _ := attrs.Int("CATOBS")
	if catobs == 6 {
		return "SY(UWTROC04)", nil
	}
	valsou, hasDepth := attrs.Float("VALSOU")
	if hasDepth && c.toMetres(valsou) <= c.SafetyContour {
		return "SY(DANGER01)", nil
	}
	return "SY(OBSTRN01)", nil
}

// topmar01 picks a topmark symbol from the feature's own COLOUR/shape
// attributes; this is a thin example since full topmark symbol selection
// depends on the tables of a beacon/buoy's associated TOPMAR object, which
// the caller resolves before invoking this rule.
func topmar01(attrs AttrSet, c RuleConditions) (string, error) {
	cattopmark, ok := attrs.Int("CATTOM")
	if !ok {
		return "", nil
	}
	switch cattopmark {
	case 1:
		return "SY(TOPMAR02)", nil
	case 2:
		return "SY(TOPMAR10)", nil
	default:
		return "SY(TOPMAR01)", nil
	}
}

// resare02 symbolizes a restricted area, using an entry-restriction pattern
// when the area's RESTRN attribute names an entry/anchoring prohibition.
func resare02(attrs AttrSet, c RuleConditions) (string, error) {
	restrn, _ := attrs.Int("RESTRN")
	switch restrn {
	case 1, 2: // entry restricted / entry prohibited
		return "AP(ACHRES01);LS(DASH,2,CHMGD)", nil
	default:
		return "AP(RSRD01);LS(DASH,1,CHMGD)", nil
	}
}

// restrn01 is RESARE02's line-only counterpart, used for restricted-area
// boundaries that are not themselves filled areas (e.g. cable/pipeline
// protection zones represented as a line object).
func restrn01(attrs AttrSet, c RuleConditions) (string, error) {
	restrn, _ := attrs.Int("RESTRN")
	if restrn == 0 {
		return "LS(DASH,1,CHMGD)", nil
	}
	return "LS(DASH,2,CHMGD)", nil
}

// slcons03 distinguishes a shoreline construction's line style by its
// CATSLC (category of slope/construction) attribute — walls draw solid,
// unsurveyed/unknown draw dashed.
func slcons03(attrs AttrSet, c RuleConditions) (string, error) {
	catslc, ok := attrs.Int("CATSLC")
	if !ok {
		return "LS(DASH,1,CSTLN)", nil
	}
	if catslc == 100 { // designates "unknown/not surveyed" in spec.md's reduced catalogue
		return "LS(DASH,1,CSTLN)", nil
	}
	return "LS(SOLID,2,CSTLN)", nil
}

// quapos01 symbolizes low-confidence positional accuracy with a dotted
// overlay; the caller resolves CATZOC/QUAPOS into QuaposAccuracy (lower is
// worse) before invoking this rule.
func quapos01(attrs AttrSet, c RuleConditions) (string, error) {
	if c.QuaposAccuracy > 0 && c.QuaposAccuracy <= 3 {
		return "SY(LOWACC01)", nil
	}
	return "", nil
}

// soundg02 classifies a single sounding as shallower or deeper than the
// safety contour, selecting the colour used by the MP/SS rule that follows
// it in a rule string.
func soundg02(attrs AttrSet, c RuleConditions) (string, error) {
	depth, ok := attrs.Float("VALSOU")
	if !ok {
		return "", nil
	}
	if c.toMetres(depth) <= c.SafetyContour {
		return "SS(DEPVS,DEPDW)", nil
	}
	return "SS(DEPDW,DEPVS)", nil
}

// datcvr01 flags a data-coverage (M_COVR) object's own chart boundary as
// either in-force (CATCOV==1, drawn) or an overlap placeholder (not drawn).
func datcvr01(attrs AttrSet, c RuleConditions) (string, error) {
	catcov, _ := attrs.Int("CATCOV")
	if catcov == 1 {
		return "LS(DOT,1,CHGRF)", nil
	}
	return "", nil
}
