// Command tileserver is the thin net/http composition root that wires the
// core packages together into a runnable tile server (SPEC_FULL.md §5's
// "HTTP worker pool" row: "n/a — thin net/http wiring only"). It is
// deliberately minimal: CLI/config loading, HTTP routing conventions, and
// chart-set provisioning are all non-core collaborator concerns, so this
// main package does just enough of each to exercise the core end to end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chartkit/enctiles/internal/chartcache"
	"github.com/chartkit/enctiles/internal/chartload"
	"github.com/chartkit/enctiles/internal/chartset"
	"github.com/chartkit/enctiles/internal/coord"
	"github.com/chartkit/enctiles/internal/featureinfo"
	"github.com/chartkit/enctiles/internal/housekeeper"
	"github.com/chartkit/enctiles/internal/opener"
	"github.com/chartkit/enctiles/internal/parser"
	"github.com/chartkit/enctiles/internal/render"
	"github.com/chartkit/enctiles/internal/s52"
	"github.com/chartkit/enctiles/internal/symbol"
	"github.com/chartkit/enctiles/internal/tilecache"
)

const defaultSetKey = "default"

func main() {
	httpAddr := flag.String("http", ":8080", "HTTP listen address")
	openerAddr := flag.String("opener", "/run/opener.sock", "opener subprocess unix socket path")
	chartDir := flag.String("charts", "./charts", "directory of encrypted .oesu chart cells")
	openerWorkers := flag.Int("opener-workers", 4, "opener connection pool size")
	chartCacheBytes := flag.Int64("chart-cache-bytes", 512<<20, "chart cache memory budget")
	flag.Parse()

	log := slog.Default()

	dial := func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", *openerAddr)
	}
	pool := opener.New(dial, *openerWorkers, *openerWorkers*4, log)
	defer pool.Stop()

	resolve := func(key string) (string, opener.Opcode, error) {
		_, cell, ok := strings.Cut(key, "/")
		if !ok {
			return "", opener.CmdUnknown, fmt.Errorf("tileserver: malformed cache key %q", key)
		}
		return filepath.Join(*chartDir, cell+".oesu"), opener.CmdReadOESU, nil
	}
	loader := chartload.NewLoader(pool, resolve, parser.DefaultParseOptions())

	charts := chartcache.New(*chartCacheBytes, log)
	catalog := chartset.NewCatalog(log)
	if err := scanChartSet(context.Background(), catalog, charts, loader, *chartDir); err != nil {
		log.Error("initial chart-set scan failed", "dir", *chartDir, "err", err)
	}

	settings := render.NewSettingsPublisher(render.RenderSettings{
		ColourScheme:   "DAY",
		SafetyContour:  10,
		ShallowContour: 2,
		DeepContour:    20,
		Category:       render.Standard,
		ShowText:       true,
		ShowSoundings:  true,
		ShowLights:     true,
		ShowAnchorage:  true,
		Scale:          50000,
	})

	renderer := &render.Renderer{
		Catalog:  catalog,
		Charts:   charts,
		Tables:   s52.DefaultTables(),
		Colours:  render.DefaultColourSchemes(),
		Symbols:  symbol.NewCache(256),
		Settings: settings,
		Loader:   loader,
	}
	finder := &featureinfo.Finder{
		Catalog:  catalog,
		Charts:   charts,
		Loader:   loader,
		Renderer: renderer,
	}
	tiles := tilecache.New(256 << 20)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hk := &housekeeper.HouseKeeper{Interval: time.Minute, MaxIdle: 15 * time.Minute, Charts: charts, Tiles: tiles, Log: log}
	go hk.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/tiles/", tileHandler(renderer, tiles))
	mux.HandleFunc("/featureinfo/", featureInfoHandler(finder))

	srv := &http.Server{Addr: *httpAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("tileserver listening", "addr", *httpAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("tileserver exited", "err", err)
		os.Exit(1)
	}
}

// scanChartSet builds one ChartSet by decrypting and parsing every *.oesu
// cell under dir through loader, deriving each ChartInfo's extent from its
// parsed features. Real chart-set provisioning (incremental add/remove,
// persisted-cache reuse) is a deployment-time collaborator's job; this is
// the minimum needed to make FindChartsForTile return anything at startup.
func scanChartSet(ctx context.Context, catalog *chartset.Catalog, charts *chartcache.Cache, loader chartcache.Loader, dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.oesu"))
	if err != nil {
		return err
	}

	set := chartset.NewChartSet(defaultSetKey, dir)
	infos := make([]*chartset.ChartInfo, 0, len(matches))
	for _, path := range matches {
		cell := strings.TrimSuffix(filepath.Base(path), ".oesu")
		key := defaultSetKey + "/" + cell
		h, err := charts.Acquire(ctx, key, true, loader)
		if err != nil {
			slog.Default().Warn("skipping chart that failed to open", "cell", cell, "err", err)
			continue
		}
		infos = append(infos, chartInfoFor(cell, h.Chart))
		h.Release()
	}
	set.SetCharts(infos)
	catalog.AddSet(set)
	return nil
}

func chartInfoFor(name string, chart *parser.Chart) *chartset.ChartInfo {
	var extent coord.Bounds
	for i := range chart.Features {
		for _, c := range chart.Features[i].Geometry.Coordinates {
			extent = extent.Union(coord.Bounds{MinLon: c[0], MaxLon: c[0], MinLat: c[1], MaxLat: c[1]})
		}
	}
	edition, _ := strconv.Atoi(chart.Edition())
	update, _ := strconv.Atoi(chart.UpdateNumber())
	return &chartset.ChartInfo{
		Name:         name,
		NativeScale:  chart.CompilationScale(),
		Extent:       extent,
		Edition:      edition,
		UpdateNumber: update,
		IssueDate:    chart.IssueDate(),
	}
}

func tileHandler(renderer *render.Renderer, tiles *tilecache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setKey, z, x, y, err := parseTilePath(strings.TrimPrefix(r.URL.Path, "/tiles/"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		tileKey := tilecache.Key{SetToken: setKey, SettingsSeq: renderer.Settings.Current().Sequence, Z: z, X: x, Y: y}
		png, ok := tiles.Get(tileKey)
		if !ok {
			png, err = renderer.RenderTile(r.Context(), setKey, z, x, y)
			if err != nil {
				if err == render.ErrNoCharts {
					http.Error(w, "no charts cover this tile", http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			tiles.Put(tileKey, png)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}
}

func featureInfoHandler(finder *featureinfo.Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		setKey, z, x, y, err := parseTilePath(strings.TrimPrefix(r.URL.Path, "/featureinfo/"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		px, _ := strconv.Atoi(q.Get("px"))
		py, _ := strconv.Atoi(q.Get("py"))
		radius, _ := strconv.Atoi(q.Get("radius"))
		if radius <= 0 {
			radius = 3
		}
		click := featureinfo.ClickBox{X0: px - radius, Y0: py - radius, X1: px + radius, Y1: py + radius}

		descs, err := finder.Query(r.Context(), setKey, z, x, y, click)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(descs)
	}
}

// parseTilePath parses "{setKey}/{z}/{x}/{y}.png"-shaped paths.
func parseTilePath(path string) (setKey string, z int, x, y int64, err error) {
	path = strings.TrimSuffix(path, ".png")
	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("tileserver: expected {set}/{z}/{x}/{y}, got %q", path)
	}
	setKey = parts[0]
	zi, err1 := strconv.Atoi(parts[1])
	xi, err2 := strconv.ParseInt(parts[2], 10, 64)
	yi, err3 := strconv.ParseInt(parts[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", 0, 0, 0, fmt.Errorf("tileserver: non-numeric z/x/y in %q", path)
	}
	return setKey, zi, xi, yi, nil
}
