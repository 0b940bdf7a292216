// Package housekeeper runs the two fixed-cadence background threads
// spec.md §5 names outside the request path: the HouseKeeper (idle cache
// eviction) and the CacheFiller (opportunistic tile pre-render).
//
// Grounded on NERVsystems-osmmcp/pkg/cache/cache.go's
// startCleanupTimer/deleteExpired ticker loop (time.Ticker driving a
// periodic sweep over a channel-based stop signal), generalized from one
// cache's TTL sweep to two independently-configured sweepers over
// internal/chartcache and internal/tilecache.
package housekeeper

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/tilecache"
)

// HouseKeeper periodically evicts idle entries from the chart cache and the
// tile cache (spec.md §4.2 point 6, §5's "single HouseKeeper thread runs on
// a fixed interval").
type HouseKeeper struct {
	Interval time.Duration
	MaxIdle  time.Duration

	Charts *chartcache.Cache
	Tiles  *tilecache.Cache

	Log *slog.Logger
}

// Run blocks, sweeping every Interval until ctx is cancelled.
func (h *HouseKeeper) Run(ctx context.Context) {
	log := h.Log
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.sweep(now, log)
		}
	}
}

func (h *HouseKeeper) sweep(now time.Time, log *slog.Logger) {
	var evictedCharts, evictedTiles int
	if h.Charts != nil {
		evictedCharts = h.Charts.EvictIdle(h.MaxIdle, now)
	}
	if h.Tiles != nil {
		before := h.Tiles.Len()
		h.Tiles.EvictIdle(h.MaxIdle, now)
		evictedTiles = before - h.Tiles.Len()
	}
	if evictedCharts > 0 || evictedTiles > 0 {
		log.Debug("housekeeper sweep", "evicted_charts", evictedCharts, "evicted_tiles", evictedTiles)
	}
}

// FillJob is one candidate tile for the CacheFiller to opportunistically
// pre-render.
type FillJob struct {
	SetKey  string
	Z       int
	X, Y    int64
}

// CacheFiller opportunistically pre-renders popular tiles in the
// background, pausing while settings are being updated (spec.md §5's "must
// pause while settings are being updated") so it never races a settings
// publish with a stale render. Paused is owned by the settings-update
// collaborator: it sets Paused before calling SettingsPublisher.Publish and
// clears it after, a thin coordination flag rather than a full handshake.
type CacheFiller struct {
	Interval time.Duration
	Paused   *atomic.Bool

	// Jobs returns the current candidate list to pre-render, freshly
	// evaluated each tick (e.g. a popularity-ranked recent-tile-request log).
	Jobs func() []FillJob

	// Render renders and stores one job (typically Renderer.RenderTile
	// followed by a tilecache.Put) — injected so this package stays free of
	// a direct internal/render dependency.
	Render func(ctx context.Context, job FillJob) error

	Log *slog.Logger
}

// Run blocks, attempting a fill pass every Interval until ctx is cancelled.
func (f *CacheFiller) Run(ctx context.Context) {
	log := f.Log
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.fillOnce(ctx, log)
		}
	}
}

func (f *CacheFiller) fillOnce(ctx context.Context, log *slog.Logger) {
	if f.Jobs == nil || f.Render == nil {
		return
	}
	if f.paused() {
		return
	}
	for _, job := range f.Jobs() {
		if f.paused() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := f.Render(ctx, job); err != nil {
			log.Debug("cache filler render failed", "set_key", job.SetKey, "z", job.Z, "x", job.X, "y", job.Y, "err", err)
		}
	}
}

func (f *CacheFiller) paused() bool {
	return f.Paused != nil && f.Paused.Load()
}
