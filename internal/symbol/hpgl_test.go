package symbol

import (
	"image/color"
	"testing"
)

var blackPen = map[int]PenStyle{1: {Colour: color.RGBA{A: 255}, Width: 1}}

func TestParseHPGLSplitsOpsAndArgs(t *testing.T) {
	ops, err := ParseHPGL("PU10,20;PD30,40,50,60;CI15")
	if err != nil {
		t.Fatalf("ParseHPGL: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("expected 3 ops, got %d", len(ops))
	}
	if ops[0].Code != "PU" || len(ops[0].Args) != 2 || ops[0].Args[0] != 10 || ops[0].Args[1] != 20 {
		t.Fatalf("unexpected PU op: %+v", ops[0])
	}
	if ops[1].Code != "PD" || len(ops[1].Args) != 4 {
		t.Fatalf("unexpected PD op: %+v", ops[1])
	}
	if ops[2].Code != "CI" || ops[2].Args[0] != 15 {
		t.Fatalf("unexpected CI op: %+v", ops[2])
	}
}

func TestParseHPGLRejectsMalformedArgument(t *testing.T) {
	if _, err := ParseHPGL("PU10,xx"); err == nil {
		t.Fatal("expected an error for a non-numeric argument")
	}
}

func TestInterpretDrawsLineIntoSizedBuffer(t *testing.T) {
	sym, err := Interpret("TESTLINE", "PU0,0;PD100,0", 1, blackPen)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	b := sym.Image.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		t.Fatalf("expected a non-degenerate buffer, got %+v", b)
	}
	// Some pixel along the line should be painted.
	found := false
	for x := b.Min.X; x < b.Max.X; x++ {
		if sym.Image.RGBAAt(x, b.Min.Y).A > 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected at least one painted pixel along the drawn line")
	}
}

func TestInterpretUnsupportedOpcodeErrors(t *testing.T) {
	if _, err := Interpret("BAD", "XX1,2", 1, blackPen); err == nil {
		t.Fatal("expected an error for an unsupported opcode")
	}
}

func TestInterpretFillsPolygon(t *testing.T) {
	// A 10x10 square traced as a polygon, filled solid. Scale 20 (rather
	// than a typical library scale of 1) keeps the rasterized square large
	// enough in pixels for a robust interior-fill check.
	sym, err := Interpret("SQUARE", "PU0,0;PM0;PD10,0,10,10,0,10,0,0;FP", 20, blackPen)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	b := sym.Image.Bounds()
	cx, cy := (b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2
	if sym.Image.RGBAAt(cx, cy).A == 0 {
		t.Fatal("expected the polygon's interior to be filled")
	}
}
