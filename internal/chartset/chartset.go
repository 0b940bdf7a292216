// Package chartset implements the chart-set catalog: directory-scoped
// collections of ChartInfo headers, their spatial index, and the
// tile→chart lookup the renderer and feature-info path both depend on.
//
// Grounded on the teacher's pkg/s57/index.go (rtreego-backed ChartIndex,
// scale/edition/update priority sort) and pkg/s57/catalog.go (set
// lifecycle, directory scan), generalized from a one-shot "load everything
// then query" library into a long-lived catalog of independently
// add/remove-able sets, each queried by world-coordinate tile rather than
// geographic Bounds directly (the teacher never rasterizes tiles).
package chartset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/chartkit/enctiles/internal/coord"
)

// Status is a ChartSet's lifecycle state (spec.md §3).
type Status int

const (
	StatusInit Status = iota
	StatusReady
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusInit:
		return "INIT"
	case StatusReady:
		return "READY"
	case StatusDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// ChartInfo is the lightweight header for one chart file within a set.
// Owned exclusively by its ChartSet.
type ChartInfo struct {
	Name         string      // chart/cell name, unique within its ChartSet
	Size         int64       // bytes, for the persisted-cache mtime/size key
	ModTime      time.Time   // for the persisted-cache mtime/size key
	NativeScale  int32       // compilation scale denominator; also the tile-lookup "weight"
	Extent       coord.Bounds
	Edition      int
	UpdateNumber int
	IssueDate    string
	UsageBand    int
	ErrorCount   int32 // not updated by the chart cache; chartcache.Cache.Degraded tracks open failures per key
}

// chartSpatial adapts a *ChartInfo to rtreego.Spatial, mirroring the
// teacher's ChartEntry.Bounds() method exactly (lon/lat point + lengths).
type chartSpatial struct {
	info *ChartInfo
}

func (c chartSpatial) Bounds() rtreego.Rect {
	b := c.info.Extent
	point := rtreego.Point{b.MinLon, b.MinLat}
	lengths := []float64{
		nonNegative(b.MaxLon - b.MinLon),
		nonNegative(b.MaxLat - b.MinLat),
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

func nonNegative(v float64) float64 {
	if v <= 0 {
		return 1e-9 // rtreego rejects zero-length rectangles
	}
	return v
}

// ChartSet is a mapping from a stable key (derived from an absolute
// directory path) to metadata and member ChartInfos. At most one ChartSet
// exists per directory; mutated only by the catalog thread.
type ChartSet struct {
	Key string
	Dir string

	mu     sync.RWMutex
	status Status
	charts map[string]*ChartInfo
	rtree  *rtreego.Rtree
	extent coord.Bounds
}

// NewChartSet creates a set in the INIT state with no member charts.
func NewChartSet(key, dir string) *ChartSet {
	return &ChartSet{Key: key, Dir: dir, status: StatusInit}
}

// SetCharts replaces the set's member charts, rebuilds the spatial index,
// recomputes the bounding extent, and transitions the set to READY.
func (s *ChartSet) SetCharts(infos []*ChartInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	charts := make(map[string]*ChartInfo, len(infos))
	rtree := rtreego.NewTree(2, 25, 50)
	var extent coord.Bounds
	for _, info := range infos {
		charts[info.Name] = info
		rtree.Insert(chartSpatial{info: info})
		extent = extent.Union(info.Extent)
	}
	s.charts = charts
	s.rtree = rtree
	s.extent = extent
	s.status = StatusReady
}

// Disable marks the set unavailable without removing it (e.g. a directory
// that disappeared but whose tile-cache entries should still be cleanable
// via its stable key).
func (s *ChartSet) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusDisabled
}

// Status returns the set's current lifecycle state.
func (s *ChartSet) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Extent returns the union of all member chart extents.
func (s *ChartSet) Extent() coord.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extent
}

// Chart looks up a member ChartInfo by name.
func (s *ChartSet) Chart(name string) (*ChartInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.charts[name]
	return info, ok
}

// Charts returns a snapshot slice of all member ChartInfos.
func (s *ChartSet) Charts() []*ChartInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ChartInfo, 0, len(s.charts))
	for _, info := range s.charts {
		out = append(out, info)
	}
	return out
}

func (s *ChartSet) query(b coord.Bounds) []*ChartInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusReady || s.rtree == nil {
		return nil
	}
	width := nonNegative(b.MaxLon - b.MinLon)
	height := nonNegative(b.MaxLat - b.MinLat)
	rect, err := rtreego.NewRect(rtreego.Point{b.MinLon, b.MinLat}, []float64{width, height})
	if err != nil {
		return nil
	}
	hits := s.rtree.SearchIntersect(rect)
	out := make([]*ChartInfo, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(chartSpatial).info)
	}
	return out
}

// Catalog owns the set of active ChartSets and answers tile→chart queries
// across all of them. Safe for concurrent use; AddSet/RemoveSet/Disable run
// on the dedicated catalog thread per spec.md §3, queries run on renderer
// and feature-info goroutines.
type Catalog struct {
	mu   sync.RWMutex
	sets map[string]*ChartSet
	log  *slog.Logger
}

// NewCatalog creates an empty catalog.
func NewCatalog(log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{sets: make(map[string]*ChartSet), log: log.With("component", "chartset")}
}

// AddSet registers or replaces a set under its key.
func (c *Catalog) AddSet(set *ChartSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[set.Key] = set
}

// RemoveSet drops a set from the catalog entirely (as opposed to Disable,
// which keeps the key reachable for tile-cache invalidation).
func (c *Catalog) RemoveSet(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, key)
}

// Set looks up a set by key.
func (c *Catalog) Set(key string) (*ChartSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sets[key]
	return s, ok
}

// Sets returns a point-in-time snapshot of all registered sets. Because the
// slice is copied under the catalog lock, a concurrent AddSet/RemoveSet
// never invalidates an in-progress iteration (spec.md §4.3's "never leaves
// callers iterating freed memory").
func (c *Catalog) Sets() []*ChartSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ChartSet, 0, len(c.sets))
	for _, s := range c.sets {
		out = append(out, s)
	}
	return out
}

// WeightedChart is one match from FindChartsForTile: a chart whose extent
// intersects the query tile, the weight used to order it (native scale),
// and the tile box variant (possibly antimeridian-shifted) that produced
// the match, which the renderer must use for this chart's pixel math.
type WeightedChart struct {
	Weight int32
	SetKey string
	Info   *ChartInfo
	Tile   coord.TileBox
}

// antimeridianLonShifts are the longitude shifts tried when building the
// query bounds, per spec.md §4.3 rule 4 ("also try the tile box shifted by
// ±worldShift"). A tile box near the dateline converts to a lon/lat Bounds
// whose raw MinLon/MaxLon may need a ±360° shift to overlap a chart extent
// recorded on the other side of the cut.
var antimeridianLonShifts = []float64{0, -360, 360}

// FindChartsForTile returns the charts from active (READY) sets whose
// extent intersects tile, each tagged with its lookup weight and the tile
// box variant that matched. Results are sorted ascending by weight (largest
// native scale first, i.e. finest detail first), ties broken by chart name.
//
// If allLower is false, charts whose native scale is far coarser than the
// finest match are dropped — a chart an order of magnitude coarser than the
// best-covering chart for this tile would be fully painted over anyway, so
// rendering skips it. allLower=true (feature-info's query mode) keeps the
// full stack regardless, since a coarser chart's object can still be the
// answer to "what's under the cursor" where the finer chart has a gap.
// (The "allLower" predicate is not fully specified by spec.md §4.3 rule 5;
// this order-of-magnitude cutoff is this implementation's concrete choice —
// see DESIGN.md.)
func (c *Catalog) FindChartsForTile(tile coord.TileBox, pixelBorder int, allLower bool) []WeightedChart {
	box := tile.Box
	if pixelBorder > 0 {
		box = box.Expand(int64(pixelBorder) << uint(coord.RefZoom-tile.Z+coord.SubPixelBits))
	}

	seen := make(map[string]bool)
	var matches []WeightedChart

	for _, set := range c.Sets() {
		if set.Status() != StatusReady {
			continue
		}
		for _, shift := range antimeridianLonShifts {
			qb := coord.Bounds{
				MinLon: coord.WorldXToLon(box.Xmin) + shift,
				MaxLon: coord.WorldXToLon(box.Xmax) + shift,
				MinLat: coord.WorldYToLat(box.Ymax), // Y grows southward
				MaxLat: coord.WorldYToLat(box.Ymin),
			}
			if qb.MinLon > qb.MaxLon {
				continue // degenerate after shift; the shift=0 or opposite-sign case covers it
			}
			hits := set.query(qb)
			for _, info := range hits {
				dedupeKey := set.Key + "/" + info.Name
				if seen[dedupeKey] {
					continue
				}
				seen[dedupeKey] = true
				matches = append(matches, WeightedChart{
					Weight: info.NativeScale,
					SetKey: set.Key,
					Info:   info,
					Tile:   coord.TileBox{Box: box.Shift(coord.LonToWorldX(shift, false), 0), Z: tile.Z},
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Weight != matches[j].Weight {
			return matches[i].Weight < matches[j].Weight
		}
		return matches[i].Info.Name < matches[j].Info.Name
	})

	if allLower || len(matches) == 0 {
		return matches
	}
	finest := matches[0].Weight
	const coarseCutoffFactor = 10
	out := matches[:0:0]
	for _, m := range matches {
		if int64(m.Weight) <= int64(finest)*coarseCutoffFactor {
			out = append(out, m)
		}
	}
	return out
}

// chartInfoCacheEntry is the JSON-serializable persisted form of a
// ChartInfo, keyed by file size and mtime so unchanged files skip re-parse
// on the next startup (spec.md §6 "Persisted state").
type chartInfoCacheEntry struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"mod_time"`
	NativeScale  int32     `json:"native_scale"`
	Extent       coord.Bounds `json:"extent"`
	Edition      int       `json:"edition"`
	UpdateNumber int       `json:"update_number"`
	IssueDate    string    `json:"issue_date"`
	UsageBand    int       `json:"usage_band"`
}

// SaveChartInfoCache writes set's member ChartInfos to path as JSON.
func SaveChartInfoCache(set *ChartSet, path string) error {
	infos := set.Charts()
	entries := make([]chartInfoCacheEntry, len(infos))
	for i, info := range infos {
		entries[i] = chartInfoCacheEntry{
			Name: info.Name, Size: info.Size, ModTime: info.ModTime,
			NativeScale: info.NativeScale, Extent: info.Extent,
			Edition: info.Edition, UpdateNumber: info.UpdateNumber,
			IssueDate: info.IssueDate, UsageBand: info.UsageBand,
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("chartset: marshal cache: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadChartInfoCache reads a previously saved cache. The caller is
// responsible for validating each entry's Size/ModTime against the current
// directory listing before trusting it (a changed file must be reparsed).
func LoadChartInfoCache(path string) (map[string]*ChartInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chartset: read cache: %w", err)
	}
	var entries []chartInfoCacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("chartset: unmarshal cache: %w", err)
	}
	out := make(map[string]*ChartInfo, len(entries))
	for _, e := range entries {
		out[e.Name] = &ChartInfo{
			Name: e.Name, Size: e.Size, ModTime: e.ModTime,
			NativeScale: e.NativeScale, Extent: e.Extent,
			Edition: e.Edition, UpdateNumber: e.UpdateNumber,
			IssueDate: e.IssueDate, UsageBand: e.UsageBand,
		}
	}
	return out, nil
}

// IsUnchanged reports whether a cached entry still matches a file's current
// size and modification time.
func (e *ChartInfo) IsUnchanged(size int64, modTime time.Time) bool {
	return e.Size == size && e.ModTime.Equal(modTime)
}
