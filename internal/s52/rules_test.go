package s52

import "testing"

func TestCompileRuleStringParsesMixedInstructions(t *testing.T) {
	rules, err := CompileRuleString("AC(DEPVS);LS(DASH,2,CHGRD)\037SY(LIGHTS81,45)", "k")
	if err != nil {
		t.Fatalf("CompileRuleString: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 instructions, got %d: %+v", len(rules), rules)
	}
	if rules[0].Kind != RuleAC || rules[0].AC.ColourToken != "DEPVS" {
		t.Fatalf("unexpected first rule: %+v", rules[0])
	}
	if rules[1].Kind != RuleLS || rules[1].LS.Style != LineDashed || rules[1].LS.Width != 2 || rules[1].LS.ColourToken != "CHGRD" {
		t.Fatalf("unexpected second rule: %+v", rules[1])
	}
	if rules[2].Kind != RuleSY || rules[2].SY.SymbolName != "LIGHTS81" || !rules[2].SY.HasRotation || rules[2].SY.RotationDeg != 45 {
		t.Fatalf("unexpected third rule: %+v", rules[2])
	}
}

func TestCompileRuleStringKeysAreStablePerPosition(t *testing.T) {
	a, err := CompileRuleString("AC(DEPVS);LS(DASH,1,CHGRD)", "prefix")
	if err != nil {
		t.Fatalf("CompileRuleString: %v", err)
	}
	b, err := CompileRuleString("AC(DEPVS);LS(DASH,1,CHGRD)", "prefix")
	if err != nil {
		t.Fatalf("CompileRuleString (second): %v", err)
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			t.Fatalf("expected identical keys for identical rule strings, got %q vs %q", a[i].Key, b[i].Key)
		}
	}
}

func TestCompileRuleStringRejectsMalformed(t *testing.T) {
	if _, err := CompileRuleString("AC(DEPVS", "k"); err == nil {
		t.Fatal("expected an error for an unterminated instruction")
	}
	if _, err := CompileRuleString("NOTANOP(X)", "k"); err == nil {
		t.Fatal("expected an error for an unknown op")
	}
}

func attrs(kv ...interface{}) AttrSet {
	a := AttrSet{}
	for i := 0; i+1 < len(kv); i += 2 {
		a[kv[i].(string)] = kv[i+1]
	}
	return a
}

// TestScenarioS6DepareTwoShadesOff is spec.md scenario S6: DEPARE02 with
// two_shades=false, safety=5, shallow=2, deep=10 and DRVAL1=3, DRVAL2=4 must
// yield AC(DEPMS) (medium shallow).
func TestScenarioS6DepareTwoShadesOff(t *testing.T) {
	cond := RuleConditions{
		TwoShades:      false,
		SafetyContour:  5,
		ShallowContour: 2,
		DeepContour:    10,
	}
	got, err := depare02(attrs("DRVAL1", 3.0, "DRVAL2", 4.0), cond)
	if err != nil {
		t.Fatalf("depare02: %v", err)
	}
	if got != "AC(DEPMS)" {
		t.Fatalf("expected AC(DEPMS), got %q", got)
	}
}

func TestDepare02TwoShades(t *testing.T) {
	cond := RuleConditions{TwoShades: true, SafetyContour: 5}
	shallow, err := depare02(attrs("DRVAL1", 0.0, "DRVAL2", 3.0), cond)
	if err != nil {
		t.Fatalf("depare02: %v", err)
	}
	if shallow != "AC(DEPVS)" {
		t.Fatalf("expected AC(DEPVS) for a depth range under the safety contour, got %q", shallow)
	}

	deep, err := depare02(attrs("DRVAL1", 10.0, "DRVAL2", 20.0), cond)
	if err != nil {
		t.Fatalf("depare02: %v", err)
	}
	if deep != "AC(DEPDW)" {
		t.Fatalf("expected AC(DEPDW) for a depth range over the safety contour, got %q", deep)
	}
}

func TestDepare02ConvertsFeetToMetres(t *testing.T) {
	cond := RuleConditions{
		TwoShades:      false,
		SafetyContour:  5,
		ShallowContour: 2,
		DeepContour:    10,
		DepthUnits:     "feet",
	}
	// 3m/4m expressed in feet: 9.84ft / 13.12ft.
	got, err := depare02(attrs("DRVAL1", 9.84, "DRVAL2", 13.12), cond)
	if err != nil {
		t.Fatalf("depare02: %v", err)
	}
	if got != "AC(DEPMS)" {
		t.Fatalf("expected AC(DEPMS) after feet-to-metres conversion, got %q", got)
	}
}

// TestRuleMemoizationInvariant is testable property 5: expanding the same
// CS rule for the same feature twice under unchanged conditions returns an
// identical (here: ==-comparable by content) compiled sub-list both times,
// and the conditional function runs only once.
func TestRuleMemoizationInvariant(t *testing.T) {
	calls := 0
	tables := NewTables()
	tables.RegisterConditional("COUNTER01", func(a AttrSet, c RuleConditions) (string, error) {
		calls++
		return "AC(DEPMS)", nil
	})

	lup := &LUP{Table: "t", TypeCode: "DEPARE", RuleString: "CS(COUNTER01)"}
	compiled, err := lup.Compiled()
	if err != nil {
		t.Fatalf("Compiled: %v", err)
	}

	rc := NewRuleCreator(tables)
	a := AttrSet{}
	cond := RuleConditions{}

	first, err := rc.Expand(compiled, "feature-1", a, cond)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	second, err := rc.Expand(compiled, "feature-1", a, cond)
	if err != nil {
		t.Fatalf("Expand (second): %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected the conditional function to run exactly once, ran %d times", calls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].Key != second[0].Key {
		t.Fatalf("expected identical memoized sub-lists, got %+v and %+v", first, second)
	}
}

// TestRuleMemoizationDoesNotLeakAcrossFeatures ensures two different
// features bound to the same LUP (and so sharing a static CS rule Key)
// don't share a cached conditional result that depends on their own
// attributes.
func TestRuleMemoizationDoesNotLeakAcrossFeatures(t *testing.T) {
	tables := DefaultTables()
	lup := &LUP{Table: "t", TypeCode: "DEPARE", RuleString: "CS(DEPARE02)"}
	compiled, err := lup.Compiled()
	if err != nil {
		t.Fatalf("Compiled: %v", err)
	}

	rc := NewRuleCreator(tables)
	cond := RuleConditions{SafetyContour: 5, ShallowContour: 2, DeepContour: 10}

	shallow, err := rc.Expand(compiled, "feature-shallow", attrs("DRVAL1", 0.0, "DRVAL2", 1.0), cond)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	deep, err := rc.Expand(compiled, "feature-deep", attrs("DRVAL1", 20.0, "DRVAL2", 30.0), cond)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}

	if shallow[0].AC.ColourToken == deep[0].AC.ColourToken {
		t.Fatalf("expected different features to get different AC colours, both got %q", shallow[0].AC.ColourToken)
	}
}
