// Package render implements the Renderer: the orchestration that turns a
// weighted list of charts for one tile into a composited 256x256 PNG,
// tying together internal/coord, internal/chartset, internal/chartcache,
// internal/s52, internal/raster, and internal/symbol (spec.md §4.7).
//
// No direct teacher analog exists (the teacher only parses charts); the
// package follows the teacher's layering style — small, single-purpose
// files per concern (settings, colour, text, object, context, render) the
// way internal/parser splits feature.go/geometry.go/topology.go — applied
// to the render pipeline's own concerns.
package render

import (
	"crypto/md5"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// DisplayCategory mirrors s52.DisplayCategory for settings purposes without
// importing the s52 package into every settings consumer (kept as a
// distinct small type since RenderSettings is a pure data snapshot).
type DisplayCategory int

const (
	DisplayBase DisplayCategory = iota
	Standard
	Other
	MarinersStandard
)

// RenderSettings is the immutable snapshot of mariner-configurable options
// spec.md §3 names: colour scheme, depth bands, display category, text and
// object visibility toggles, and symbol tolerances. Settings carry a stable
// MD5 and a monotonic sequence number used as cache keys (tile cache,
// symbol/rule cache invalidation).
type RenderSettings struct {
	Sequence uint64
	MD5      [16]byte

	ColourScheme string // e.g. "DAY", "DUSK", "NIGHT" — resolved by colour.go

	SafetyContour  float64
	ShallowContour float64
	DeepContour    float64
	TwoShades      bool
	DepthUnitsFeet bool

	SymbolizedBoundaries bool
	Category             DisplayCategory

	DeclutterText bool
	ShowText      bool
	ShowSoundings bool
	ShowLights    bool
	ShowAnchorage bool
	ShowMeta      bool
	UseSCAMIN     bool

	// FeatureVisibility overrides individual object-class visibility,
	// consulted only when Category is MarinersStandard (spec.md §4.4).
	FeatureVisibility map[string]bool

	SymbolScaleTolerance    float64
	SymbolRotationTolerance float64

	Scale int32 // current render scale denominator (1:Scale)
}

// computeMD5 derives a stable content hash over the fields that affect
// rendered output, excluding Sequence and the MD5 field itself (the
// sequence number is an allocation counter, not content).
func (s *RenderSettings) computeMD5() [16]byte {
	buf := fmt.Sprintf("%s|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v|%v",
		s.ColourScheme, s.SafetyContour, s.ShallowContour, s.DeepContour,
		s.TwoShades, s.DepthUnitsFeet, s.SymbolizedBoundaries, s.Category,
		s.DeclutterText, s.ShowText, s.ShowSoundings, s.ShowLights,
		s.ShowAnchorage, s.ShowMeta, s.UseSCAMIN, s.Scale)
	keys := make([]string, 0, len(s.FeatureVisibility))
	for k := range s.FeatureVisibility {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf += fmt.Sprintf("|%s=%v", k, s.FeatureVisibility[k])
	}
	return md5.Sum([]byte(buf))
}

// SettingsPublisher holds the active RenderSettings behind an atomic
// pointer so readers (renderer goroutines) never observe a torn snapshot
// while the single settings-update thread (spec.md §5) swaps in a new one.
type SettingsPublisher struct {
	current atomic.Pointer[RenderSettings]
	mu      sync.Mutex // serializes Publish against concurrent updaters
	seq     uint64
}

// NewSettingsPublisher seeds the publisher with an initial snapshot at
// sequence 1 (0 is reserved to mean "no settings published yet").
func NewSettingsPublisher(initial RenderSettings) *SettingsPublisher {
	p := &SettingsPublisher{}
	initial.Sequence = 1
	initial.MD5 = initial.computeMD5()
	p.seq = 1
	p.current.Store(&initial)
	return p
}

// Current returns the active settings snapshot. Safe for concurrent use
// with Publish.
func (p *SettingsPublisher) Current() *RenderSettings {
	return p.current.Load()
}

// Publish installs next as the active settings, bumping the sequence
// number and recomputing its MD5. Settings bumps are totally ordered
// (spec.md §5): concurrent Publish calls serialize through mu so the
// sequence counter never skips or repeats a value.
func (p *SettingsPublisher) Publish(next RenderSettings) *RenderSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	next.Sequence = p.seq
	next.MD5 = next.computeMD5()
	p.current.Store(&next)
	return &next
}
