package s52

// RuleKind tags the variant payload carried by a Rule. Replaces the
// open-ended rule-class hierarchy the original design used with a single
// tagged struct, per spec.md §9's "Rule polymorphism" redesign note.
type RuleKind int

const (
	RuleAC  RuleKind = iota // area colour
	RuleAP                  // area pattern
	RuleLS                  // simple line
	RuleLC                  // line with symbol
	RuleSY                  // point symbol
	RuleTX                  // literal text
	RuleTE                  // formatted-attribute text
	RuleMP                  // multipoint sounding
	RuleSS                  // single sounding
	RuleCA                  // arc / sector light
	RuleCS                  // conditional (deferred expansion)
	RuleSDC                 // private: set display category to DISPLAYBASE
)

func (k RuleKind) String() string {
	names := [...]string{"AC", "AP", "LS", "LC", "SY", "TX", "TE", "MP", "SS", "CA", "CS", "SDC"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// LineStyle selects the stroke pattern for LS/LC rules.
type LineStyle int

const (
	LineSolid LineStyle = iota
	LineDashed
	LineDotted
)

// AreaColourArgs is the AC rule payload: fill an area's tessellation with a
// solid colour token (resolved against the active colour scheme by the
// rasterizer/renderer, not by this package).
type AreaColourArgs struct {
	ColourToken   string
	Transparency  int // 0-4, S-52 transparency index
}

// AreaPatternArgs is the AP rule payload: stipple an area's tessellation
// with a named pattern symbol.
type AreaPatternArgs struct {
	Pattern string
	Stagger bool
}

// LineArgs is the LS rule payload: a styled poly-line.
type LineArgs struct {
	ColourToken string
	Width       int
	Style       LineStyle
}

// LineSymbolArgs is the LC rule payload: a named line-symbol repeated along
// the line's segments, with gaps filled by a default-coloured line.
type LineSymbolArgs struct {
	SymbolName  string
	ColourToken string
}

// SymbolArgs is the SY rule payload: a point symbol, optionally rotated by
// the numeric bearing given as the rule's second argument (a non-numeric
// argument such as an attribute name yields 0).
type SymbolArgs struct {
	SymbolName  string
	RotationDeg float64
	HasRotation bool
}

// TextArgs is the TX/TE rule payload.
type TextArgs struct {
	// Literal holds the TX rule's fixed string; Attr names the attribute(s)
	// a TE rule formats (comma-separated per S-52's TE grammar).
	Literal     string
	Attr        string
	Weight      int // font weight/size class
	HJust       int
	VJust       int
	XOffset     int
	YOffset     int
	ColourToken string
}

// MultipointArgs is the MP rule payload: depth-value labels for a set of
// soundings, coloured by whether each falls shallower or deeper than the
// safety contour.
type MultipointArgs struct {
	ShallowColourToken string
	DeepColourToken    string
}

// SoundingArgs is the private single-sounding rule payload (as MP, for one
// value instead of a multipoint geometry).
type SoundingArgs struct {
	ShallowColourToken string
	DeepColourToken    string
}

// ArcArgs is the private CA rule payload: a sector light's outline, arc, and
// two sector bearing lines.
type ArcArgs struct {
	OutlineColourToken string
	ArcColourToken      string
	RadiusPx            int
	SectorStartDeg      float64
	SectorEndDeg        float64
}

// ConditionalArgs is the CS rule payload: the name of a registered
// conditional-rule function to invoke at render time.
type ConditionalArgs struct {
	FuncName string
}

// Rule is a single tagged S-52 draw/control instruction. The pointer field
// matching Kind carries its payload (TE uses TX; SDC has none) and the
// others are nil. Key is a stable identifier, the compile prefix plus the
// instruction's position, used to memoize conditional-rule expansions
// (spec.md §3, testable property 5). Keys are not unique across features:
// LUPs sharing a Table and TypeCode, and every expansion of one CS rule,
// produce the same keys, so RuleCreator pairs Key with the feature's
// objectKey.
type Rule struct {
	Kind RuleKind
	Key  string

	AC *AreaColourArgs
	AP *AreaPatternArgs
	LS *LineArgs
	LC *LineSymbolArgs
	SY *SymbolArgs
	TX *TextArgs
	MP *MultipointArgs
	SS *SoundingArgs
	CA *ArcArgs
	CS *ConditionalArgs
}

// RuleList is a compiled, ordered sequence of Rules.
type RuleList []Rule

// DisplayCategory classifies an object's (or LUP's) visibility tier.
type DisplayCategory int

const (
	DisplayBase DisplayCategory = iota
	Standard
	Other
	MarinersStandard
)

func (c DisplayCategory) String() string {
	switch c {
	case DisplayBase:
		return "DisplayBase"
	case Standard:
		return "Standard"
	case Other:
		return "Other"
	case MarinersStandard:
		return "MarinersStandard"
	default:
		return "Unknown"
	}
}
