// Package chartcache caches fully-parsed charts in memory under an
// approximate-memory-size LRU budget, with single-flight loading so that
// concurrent requests for the same chart share one parse instead of racing
// to parse it N times.
//
// Grounded on the teacher's pkg/v1/cache.go ChartCache (container/list LRU +
// sync.RWMutex), extended with single-flight in-flight builds, a Pending
// return path for non-blocking callers, in-use refcounting so a checked-out
// chart is never evicted out from under a render in progress, and per-key
// error-count tracking so a chart that fails to open repeatedly can be
// reported as degraded rather than retried forever.
package chartcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chartkit/enctiles/internal/metrics"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrPending is returned by Acquire when block is false and another
// goroutine is already building the requested entry. The caller should
// retry later (or await the Handle it was given via a blocking Acquire
// elsewhere) rather than starting a duplicate build.
var ErrPending = errors.New("chartcache: build in progress")

// Loader parses or otherwise produces the chart for key, along with an
// approximate in-memory size in bytes used for the cache's memory budget.
type Loader func(ctx context.Context, key string) (chart *parser.Chart, memSize int64, err error)

// Handle is a checked-out reference to a cached chart. Release must be
// called exactly once when the caller is done using the chart, or the entry
// will never become eligible for eviction.
type Handle struct {
	Chart *parser.Chart
	key   string
	cache *Cache
}

// Release decrements the entry's in-use refcount, making it eligible for
// eviction again once it reaches zero.
func (h *Handle) Release() {
	if h == nil || h.cache == nil {
		return
	}
	h.cache.release(h.key)
}

type cacheEntry struct {
	key          string
	chart        *parser.Chart
	err          error
	memSize      int64
	element      *list.Element
	refCount     int
	lastAccessed time.Time
	accessCount  int
	building     bool
	ready        chan struct{}
}

// errStats tracks a key's recent open-failure history, kept even after a
// failed entry is evicted so repeated failures can be reported as degraded.
type errStats struct {
	count        int
	lastErr      error
	lastAttempt  time.Time
}

// Cache is a concurrency-safe, memory-budgeted LRU cache of parsed charts.
type Cache struct {
	maxMemory  int64
	usedMemory int64
	entries    map[string]*cacheEntry
	lru        *list.List
	errors     map[string]*errStats
	mu         sync.Mutex
	log        *slog.Logger

	// DegradedThreshold is the consecutive-failure count at which a key is
	// reported by Degraded as unhealthy. Zero disables degraded reporting.
	DegradedThreshold int

	// Tracer spans each loader call (a cache miss) when set; nil means no
	// tracing (tracing.NoopTracer is used instead).
	Tracer trace.Tracer
}

// New creates a cache with the given approximate memory budget in bytes.
// A budget of zero disables eviction (unlimited size).
func New(maxMemoryBytes int64, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		maxMemory:         maxMemoryBytes,
		entries:           make(map[string]*cacheEntry),
		lru:               list.New(),
		errors:            make(map[string]*errStats),
		log:               log.With("component", "chartcache"),
		DegradedThreshold: 3,
	}
}

// Acquire returns a Handle for key, loading it with loader on a cache miss.
//
// If another goroutine is already loading key, Acquire either waits for that
// build to finish (block=true) or returns ErrPending immediately (block=false)
// so non-blocking callers (e.g. a tile-fill sweep that would rather move on)
// don't stack up behind a slow open.
func (c *Cache) Acquire(ctx context.Context, key string, block bool, loader Loader) (*Handle, error) {
	for {
		c.mu.Lock()
		entry, ok := c.entries[key]
		if ok {
			if entry.building {
				ready := entry.ready
				c.mu.Unlock()
				if !block {
					return nil, ErrPending
				}
				select {
				case <-ready:
					continue // re-check under lock: entry may now be ready or gone (on error)
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			entry.refCount++
			entry.lastAccessed = time.Now()
			entry.accessCount++
			c.lru.MoveToFront(entry.element)
			c.mu.Unlock()
			metrics.RecordChartCacheResult("hit")
			return &Handle{Chart: entry.chart, key: key, cache: c}, nil
		}

		// Miss: this goroutine becomes the builder.
		building := &cacheEntry{
			key:      key,
			building: true,
			ready:    make(chan struct{}),
		}
		c.entries[key] = building
		c.mu.Unlock()

		loadCtx, span := tracing.StartSpan(ctx, c.Tracer, "chartcache.load",
			trace.WithAttributes(attribute.String("key", key)))
		chart, memSize, err := loader(loadCtx, key)
		if err != nil {
			tracing.RecordError(loadCtx, err)
		}
		span.End()

		c.mu.Lock()
		c.recordAttempt(key, err)
		if err != nil {
			delete(c.entries, key)
			close(building.ready)
			c.mu.Unlock()
			metrics.RecordChartCacheResult("error")
			return nil, err
		}

		building.chart = chart
		building.memSize = memSize
		building.building = false
		building.refCount = 1
		building.lastAccessed = time.Now()
		building.accessCount = 1
		building.element = c.lru.PushFront(building)
		c.usedMemory += memSize
		c.evictUnlocked(key)
		close(building.ready)
		usedMemory := c.usedMemory
		c.mu.Unlock()
		metrics.RecordChartCacheResult("miss")
		metrics.SetChartCacheBytes(usedMemory)
		return &Handle{Chart: chart, key: key, cache: c}, nil
	}
}

// recordAttempt updates per-key error history. Must be called with c.mu held.
func (c *Cache) recordAttempt(key string, err error) {
	if err == nil {
		delete(c.errors, key)
		return
	}
	st, ok := c.errors[key]
	if !ok {
		st = &errStats{}
		c.errors[key] = st
	}
	st.count++
	st.lastErr = err
	st.lastAttempt = time.Now()
}

// release decrements the refcount for key, called from Handle.Release.
func (c *Cache) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.refCount == 0 {
		return
	}
	entry.refCount--
}

// evictUnlocked evicts least-recently-used, not-in-use entries until the
// cache is back under budget. The just-inserted key is never evicted by its
// own insertion (it already counts toward usedMemory). Must be called with
// c.mu held.
func (c *Cache) evictUnlocked(justInserted string) {
	if c.maxMemory <= 0 {
		return
	}
	elem := c.lru.Back()
	for c.usedMemory > c.maxMemory && elem != nil {
		entry := elem.Value.(*cacheEntry)
		prev := elem.Prev()
		if entry.refCount > 0 || entry.key == justInserted {
			elem = prev
			continue
		}
		c.lru.Remove(elem)
		delete(c.entries, entry.key)
		c.usedMemory -= entry.memSize
		c.log.Debug("evicted chart", "key", entry.key, "freed_bytes", entry.memSize)
		metrics.RecordChartCacheEviction("budget")
		elem = prev
	}
}

// Remove explicitly drops key from the cache regardless of LRU order. It is
// a no-op if the entry is currently in use.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || entry.building || entry.refCount > 0 {
		return
	}
	c.lru.Remove(entry.element)
	delete(c.entries, key)
	c.usedMemory -= entry.memSize
}

// Clear drops every not-in-use entry from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.building || entry.refCount > 0 {
			continue
		}
		c.lru.Remove(entry.element)
		delete(c.entries, key)
		c.usedMemory -= entry.memSize
	}
}

// EvictIdle drops every not-in-use entry whose last access is older than
// maxAge, regardless of memory pressure — the HouseKeeper's periodic sweep
// (spec.md §4.2 point 6), never violating the in-use invariant Remove and
// Clear already honour.
func (c *Cache) EvictIdle(maxAge time.Duration, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key, entry := range c.entries {
		if entry.building || entry.refCount > 0 {
			continue
		}
		if now.Sub(entry.lastAccessed) < maxAge {
			continue
		}
		c.lru.Remove(entry.element)
		delete(c.entries, key)
		c.usedMemory -= entry.memSize
		evicted++
		metrics.RecordChartCacheEviction("idle")
	}
	if evicted > 0 {
		metrics.SetChartCacheBytes(c.usedMemory)
	}
	return evicted
}

// Stats summarizes current cache occupancy.
type Stats struct {
	ChartCount int
	UsedMemory int64
	MaxMemory  int64
}

// Stats returns a snapshot of cache occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ChartCount: len(c.entries),
		UsedMemory: c.usedMemory,
		MaxMemory:  c.maxMemory,
	}
}

// Degraded returns the set of keys whose most recent consecutive open
// attempts have failed DegradedThreshold or more times in a row, along with
// the most recent error for each. A chart-set status collaborator can use
// this to mark individual cells unavailable without failing the whole set.
func (c *Cache) Degraded() map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DegradedThreshold <= 0 {
		return nil
	}
	out := make(map[string]error)
	for key, st := range c.errors {
		if st.count >= c.DegradedThreshold {
			out[key] = fmt.Errorf("chart %q failed %d consecutive opens: %w", key, st.count, st.lastErr)
		}
	}
	return out
}
