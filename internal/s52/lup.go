package s52

import "sync"

// AttrRequirement is one (name, value) entry in an LUP's attribute-match
// list. Value follows S-52's wildcard convention: "", " ", and "?" all
// match any (or absent) attribute value.
type AttrRequirement struct {
	Name  string
	Value string
}

// LUP is one S-52 Look-Up table entry: indexed by (table, feature-type-code),
// it resolves to a display priority, radar priority, attribute-match list,
// rule string, and display category (spec.md §3).
type LUP struct {
	Table           string
	TypeCode        string
	DisplayPriority int
	RadarPriority   int
	AttrMatch       []AttrRequirement
	RuleString      string
	Category        DisplayCategory

	compileOnce sync.Once
	compiled    RuleList
	compileErr  error
}

// Compiled lazily compiles RuleString into a RuleList, once, and returns
// the same slice on every subsequent call — an LUP's static rule list is
// identical for every feature that binds to it, so compiling once and
// sharing is both correct and avoids re-parsing the rule string per
// feature.
func (l *LUP) Compiled() (RuleList, error) {
	l.compileOnce.Do(func() {
		l.compiled, l.compileErr = CompileRuleString(l.RuleString, l.Table+":"+l.TypeCode)
	})
	return l.compiled, l.compileErr
}

// Tables indexes LUPs by feature-type-code for fast candidate lookup.
type Tables struct {
	mu  sync.RWMutex
	lup map[string][]*LUP
	cs  map[string]ConditionalFunc
}

// NewTables creates an empty table set.
func NewTables() *Tables {
	return &Tables{lup: make(map[string][]*LUP), cs: make(map[string]ConditionalFunc)}
}

// LoadLUPs registers LUPs, grouped by their TypeCode, into the table set.
// This is the entry point the (external, non-core) S-52 XML loader feeds:
// the core never parses the XML itself (spec.md §4.4 EXPANSION).
func (t *Tables) LoadLUPs(lups []*LUP) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range lups {
		t.lup[l.TypeCode] = append(t.lup[l.TypeCode], l)
	}
}

// RegisterConditional adds a conditional-rule function under name (e.g.
// "DEPARE02"), invoked when a CS rule naming it is expanded.
func (t *Tables) RegisterConditional(name string, fn ConditionalFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cs[name] = fn
}

// Conditional looks up a registered conditional-rule function by name.
func (t *Tables) Conditional(name string) (ConditionalFunc, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.cs[name]
	return fn, ok
}

// Candidates returns the LUPs registered for typeCode, for Match to score.
func (t *Tables) Candidates(typeCode string) []*LUP {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lup[typeCode]
}

// Match implements spec.md §4.4's LUP matching: score each candidate by its
// count of attribute-equality matches (a candidate with any non-matching
// required attribute is disqualified outright); the highest-scoring
// candidate wins, ties broken by table registration order (first wins).
// If no candidate with an attribute list qualifies, the first LUP with no
// attribute list at all is used as the fallback; a qualifying candidate
// whose requirements are all wildcards (score 0) still wins over it.
func Match(candidates []*LUP, attrs AttrSet) *LUP {
	var best *LUP
	bestScore := -1
	var fallback *LUP
	for _, lup := range candidates {
		if len(lup.AttrMatch) == 0 {
			if fallback == nil {
				fallback = lup
			}
			continue
		}
		score, ok := scoreMatch(lup, attrs)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = lup
		}
	}
	if best != nil {
		return best
	}
	return fallback
}

// scoreMatch returns the number of non-wildcard attribute requirements that
// matched, and false if any requirement failed outright.
func scoreMatch(lup *LUP, attrs AttrSet) (int, bool) {
	score := 0
	for _, req := range lup.AttrMatch {
		actual, present := attrs.String(req.Name)
		if !equalsWildcard(req.Value, actual, present) {
			return 0, false
		}
		switch req.Value {
		case "", " ", "?":
			// wildcard: doesn't add to the match count
		default:
			score++
		}
	}
	return score, true
}
