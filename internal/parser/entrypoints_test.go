package parser

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// TestParseBytesReachesDecoder proves ParseBytes actually hands its input to
// the ISO 8211 decoder (by spilling to a temp file and delegating to
// ParseWithOptions) rather than failing before ever reaching it. Garbage
// input can't produce a valid Chart without a real ISO 8211 fixture, but it
// must fail inside the decode step, not at the temp-file plumbing.
func TestParseBytesReachesDecoder(t *testing.T) {
	p := NewParser()
	_, err := p.ParseBytes([]byte("not an iso 8211 stream"))
	if err == nil {
		t.Fatal("expected an error decoding non-ISO-8211 bytes")
	}
	if strings.Contains(err.Error(), "no such file") {
		t.Fatalf("expected a decode error, got a missing-file error: %v", err)
	}
}

// TestParseReaderSpillsAndCleansUp exercises the io.Reader entrypoint the
// same way, and checks that ParseReaderWithOptions doesn't leak its temp
// file on the error path.
func TestParseReaderSpillsAndCleansUp(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	p := NewParser()
	_, err := p.ParseReader(bytes.NewReader([]byte{0x00, 0x01, 0x02}))
	if err == nil {
		t.Fatal("expected an error decoding non-ISO-8211 bytes")
	}
	if left, _ := os.ReadDir(tmp); len(left) != 0 {
		t.Fatalf("expected the spilled temp file to be removed, found %d entries", len(left))
	}
}

// TestParseBytesWithOptionsRejectsEmptyInput checks that
// ParseBytesWithOptions, called with ApplyUpdates set, returns a decode error
// for empty input instead of panicking.
func TestParseBytesWithOptionsRejectsEmptyInput(t *testing.T) {
	p := &defaultParser{}
	opts := DefaultParseOptions()
	opts.ApplyUpdates = true
	// parseBaseFile fails on empty input before findUpdateFiles would ever
	// run, so whether ApplyUpdates was overridden is not observable here.
	if _, err := p.ParseBytesWithOptions(nil, opts); err == nil {
		t.Fatal("expected an error decoding empty input")
	}
}
