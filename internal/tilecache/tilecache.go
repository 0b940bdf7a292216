// Package tilecache caches encoded tile PNGs keyed by the chart-set token
// that produced them, the settings sequence they were rendered under, and
// the tile coordinate itself (spec.md §4.8).
//
// Grounded on internal/chartcache's container/list LRU-with-memory-budget
// shape (same eviction policy, a byte-slice value instead of a parsed
// chart), with clean/cleanBySettings invalidation generalized from
// NERVsystems-osmmcp/pkg/cache/cache.go's TTLCache.deleteExpired/Clear
// sweep pattern — a predicate walk over every entry rather than a single
// TTL check, since invalidation here is driven by chart-set and settings
// changes, not wall-clock expiry.
package tilecache

import (
	"container/list"
	"sync"
	"time"

	"github.com/chartkit/enctiles/internal/metrics"
)

// Key identifies one cached tile render.
type Key struct {
	SetToken      string
	SettingsSeq   uint64
	Z             int
	X, Y          int64
}

type entry struct {
	key      Key
	data     []byte
	size     int64
	lastUsed time.Time
	element  *list.Element
}

// Cache is a memory-budgeted LRU of encoded tile PNGs.
type Cache struct {
	mu         sync.Mutex
	maxMemory  int64
	usedMemory int64
	entries    map[Key]*entry
	lru        *list.List
}

// New creates a tile cache with the given approximate memory budget in
// bytes. A budget of zero disables eviction.
func New(maxMemoryBytes int64) *Cache {
	return &Cache{
		maxMemory: maxMemoryBytes,
		entries:   make(map[Key]*entry),
		lru:       list.New(),
	}
}

// Get returns the cached PNG bytes for key, promoting it to most-recently-used.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.RecordTileCacheResult(false)
		return nil, false
	}
	e.lastUsed = time.Now()
	c.lru.MoveToFront(e.element)
	metrics.RecordTileCacheResult(true)
	return e.data, true
}

// Put stores data under key, evicting least-recently-used entries until the
// memory budget is satisfied.
func (c *Cache) Put(key Key, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.usedMemory -= existing.size
		c.lru.Remove(existing.element)
		delete(c.entries, key)
	}

	e := &entry{key: key, data: data, size: int64(len(data)), lastUsed: time.Now()}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e
	c.usedMemory += e.size

	c.evictLocked()
	metrics.SetTileCacheEntries(len(c.entries))
}

func (c *Cache) evictLocked() {
	if c.maxMemory <= 0 {
		return
	}
	for c.usedMemory > c.maxMemory {
		back := c.lru.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry)
		c.lru.Remove(back)
		delete(c.entries, e.key)
		c.usedMemory -= e.size
	}
}

// Clean removes every entry whose SetToken equals setToken — spec.md §4.8's
// "on ChartSet change (add/remove/replace), clean(set-key) removes all
// entries for that set".
func (c *Cache) Clean(setToken string) {
	c.removeWhere(func(k Key) bool { return k.SetToken == setToken })
}

// CleanBySettings removes every entry whose SettingsSeq does not equal seq
// — spec.md §4.8's "on settings change, cleanBySettings(sequence) removes
// all entries not matching the new sequence", and testable property 8.
func (c *Cache) CleanBySettings(seq uint64) {
	c.removeWhere(func(k Key) bool { return k.SettingsSeq != seq })
}

func (c *Cache) removeWhere(match func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !match(key) {
			continue
		}
		c.lru.Remove(e.element)
		delete(c.entries, key)
		c.usedMemory -= e.size
	}
	metrics.SetTileCacheEntries(len(c.entries))
}

// Len reports the number of cached entries, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// EvictIdle removes every entry whose last use is older than maxAge — the
// per-entry half of the HouseKeeper sweep (spec.md §5's HouseKeeper role);
// the ticker driving this call lives in internal/housekeeper, not here.
func (c *Cache) EvictIdle(maxAge time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.Sub(e.lastUsed) < maxAge {
			continue
		}
		c.lru.Remove(e.element)
		delete(c.entries, key)
		c.usedMemory -= e.size
	}
	metrics.SetTileCacheEntries(len(c.entries))
}
