package s52

import (
	"fmt"
	"strings"
)

// CompileRuleString parses an S-52 rule string — instructions separated by
// ';', instruction groups separated by the ASCII group-separator '\037' —
// into a RuleList. keyPrefix seeds each Rule's stable Key (keyPrefix plus
// the instruction's position), so the same rule string compiled twice
// produces identically-keyed Rules (spec.md §3, testable property 5).
func CompileRuleString(ruleString string, keyPrefix string) (RuleList, error) {
	raw := strings.ReplaceAll(ruleString, "\037", ";")
	parts := splitNonEmpty(raw, ';')

	out := make(RuleList, 0, len(parts))
	for i, p := range parts {
		r, err := compileInstruction(strings.TrimSpace(p), fmt.Sprintf("%s#%d", keyPrefix, i))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// compileInstruction parses one "OP(arg,arg,...)" instruction.
func compileInstruction(s string, key string) (Rule, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Rule{}, fmt.Errorf("s52: malformed rule instruction %q", s)
	}
	op := strings.TrimSpace(s[:open])
	args := splitArgs(s[open+1 : len(s)-1])

	switch op {
	case "AC":
		r := Rule{Kind: RuleAC, Key: key, AC: &AreaColourArgs{ColourToken: arg(args, 0)}}
		if len(args) > 1 {
			r.AC.Transparency = atoiDefault(args[1], 0)
		}
		return r, nil
	case "AP":
		r := Rule{Kind: RuleAP, Key: key, AP: &AreaPatternArgs{Pattern: arg(args, 0)}}
		if len(args) > 1 {
			r.AP.Stagger = args[1] == "1"
		}
		return r, nil
	case "LS":
		if len(args) < 3 {
			return Rule{}, fmt.Errorf("s52: LS requires 3 args, got %v", args)
		}
		return Rule{Kind: RuleLS, Key: key, LS: &LineArgs{
			Style:       parseLineStyle(args[0]),
			Width:       atoiDefault(args[1], 1),
			ColourToken: args[2],
		}}, nil
	case "LC":
		if len(args) < 1 {
			return Rule{}, fmt.Errorf("s52: LC requires at least 1 arg")
		}
		return Rule{Kind: RuleLC, Key: key, LC: &LineSymbolArgs{
			SymbolName:  args[0],
			ColourToken: arg(args, 1),
		}}, nil
	case "SY":
		r := Rule{Kind: RuleSY, Key: key, SY: &SymbolArgs{SymbolName: arg(args, 0)}}
		if len(args) > 1 {
			r.SY.RotationDeg = atofDefault(args[1], 0)
			r.SY.HasRotation = true
		}
		return r, nil
	case "TX":
		return Rule{Kind: RuleTX, Key: key, TX: parseTextArgs(args, true)}, nil
	case "TE":
		return Rule{Kind: RuleTE, Key: key, TX: parseTextArgs(args, false)}, nil
	case "MP":
		return Rule{Kind: RuleMP, Key: key, MP: &MultipointArgs{
			ShallowColourToken: arg(args, 0),
			DeepColourToken:    arg(args, 1),
		}}, nil
	case "SS":
		return Rule{Kind: RuleSS, Key: key, SS: &SoundingArgs{
			ShallowColourToken: arg(args, 0),
			DeepColourToken:    arg(args, 1),
		}}, nil
	case "CA":
		return Rule{Kind: RuleCA, Key: key, CA: &ArcArgs{
			OutlineColourToken: arg(args, 0),
			ArcColourToken:     arg(args, 1),
			RadiusPx:           atoiDefault(arg(args, 2), 15),
			SectorStartDeg:     atofDefault(arg(args, 3), 0),
			SectorEndDeg:       atofDefault(arg(args, 4), 360),
		}}, nil
	case "CS":
		if len(args) < 1 {
			return Rule{}, fmt.Errorf("s52: CS requires a procedure name")
		}
		return Rule{Kind: RuleCS, Key: key, CS: &ConditionalArgs{FuncName: args[0]}}, nil
	case "SDC":
		return Rule{Kind: RuleSDC, Key: key}, nil
	default:
		return Rule{}, fmt.Errorf("s52: unknown rule op %q", op)
	}
}

func parseTextArgs(args []string, literal bool) *TextArgs {
	t := &TextArgs{}
	if literal {
		t.Literal = strings.Trim(arg(args, 0), "'\"")
	} else {
		t.Attr = strings.Trim(arg(args, 1), "'\"")
	}
	t.Weight = atoiDefault(arg(args, 2), 1)
	t.HJust = atoiDefault(arg(args, 3), 1)
	t.VJust = atoiDefault(arg(args, 4), 1)
	t.XOffset = atoiDefault(arg(args, 6), 0)
	t.YOffset = atoiDefault(arg(args, 7), 0)
	t.ColourToken = arg(args, 8)
	if t.ColourToken == "" {
		t.ColourToken = "CHBLK"
	}
	return t
}

func parseLineStyle(s string) LineStyle {
	switch s {
	case "DASH":
		return LineDashed
	case "DOT":
		return LineDotted
	default:
		return LineSolid
	}
}

// splitArgs splits a comma-separated argument list, respecting single-quoted
// strings so a quoted literal containing a comma isn't split apart.
func splitArgs(s string) []string {
	var out []string
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if start <= len(s) {
		rest := strings.TrimSpace(s[start:])
		if rest != "" || len(out) > 0 {
			out = append(out, rest)
		}
	}
	return out
}

func arg(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

func atoiDefault(s string, def int) int {
	v, ok := parseFloat(s)
	if !ok {
		return def
	}
	return int(v)
}

func atofDefault(s string, def float64) float64 {
	v, ok := parseFloat(s)
	if !ok {
		return def
	}
	return v
}

// RuleCreator expands a feature's LUP-bound RuleList into its final draw
// sequence, resolving any CS rules against a Tables' conditional registry.
// Spec.md §5 requires one RuleCreator per chart (not shared across render
// threads); it memoizes each CS rule's expansion by (objectKey, CS rule Key),
// so repeated renders of the same object under unchanged conditions reuse
// the identical compiled sub-list (testable property 5) instead of
// recompiling the conditional's returned rule string every time.
type RuleCreator struct {
	tables *Tables
	cache  map[string]RuleList
}

// NewRuleCreator returns a RuleCreator bound to tables. Callers must create
// one per chart/render-thread; RuleCreator is not safe for concurrent use.
func NewRuleCreator(tables *Tables) *RuleCreator {
	return &RuleCreator{tables: tables, cache: make(map[string]RuleList)}
}

// Expand walks rules, replacing each CS instruction with its conditional
// function's compiled output and passing all other rules through unchanged.
// objectKey identifies the feature being rendered (e.g. its S-57 record
// identifier); memoization is keyed by (objectKey, CS rule Key) so that two
// different features bound to the same LUP — and therefore sharing the same
// static CS rule Key — don't share a cached conditional result that in fact
// depends on each feature's own attributes.
func (rc *RuleCreator) Expand(rules RuleList, objectKey string, attrs AttrSet, cond RuleConditions) (RuleList, error) {
	out := make(RuleList, 0, len(rules))
	for _, r := range rules {
		if r.Kind != RuleCS {
			out = append(out, r)
			continue
		}
		sub, err := rc.expandConditional(r, objectKey, attrs, cond)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func (rc *RuleCreator) expandConditional(r Rule, objectKey string, attrs AttrSet, cond RuleConditions) (RuleList, error) {
	cacheKey := objectKey + "|" + r.Key
	if cached, ok := rc.cache[cacheKey]; ok {
		return cached, nil
	}
	fn, ok := rc.tables.Conditional(r.CS.FuncName)
	if !ok {
		return nil, fmt.Errorf("s52: no conditional rule registered for %q", r.CS.FuncName)
	}
	ruleStr, err := fn(attrs, cond)
	if err != nil {
		return nil, fmt.Errorf("s52: conditional %q: %w", r.CS.FuncName, err)
	}
	if ruleStr == "" {
		rc.cache[cacheKey] = nil
		return nil, nil
	}
	compiled, err := CompileRuleString(ruleStr, r.Key)
	if err != nil {
		return nil, fmt.Errorf("s52: conditional %q produced unparsable rule string %q: %w", r.CS.FuncName, ruleStr, err)
	}
	rc.cache[cacheKey] = compiled
	return compiled, nil
}
