package chartcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chartkit/enctiles/internal/parser"
)

func chartOfSize(_ int64) *parser.Chart {
	return &parser.Chart{}
}

// property 6: cache budget — the cache never exceeds its memory budget once
// steady state is reached, and never evicts an entry that is still checked
// out (refcount > 0).
func TestCacheBudgetEviction(t *testing.T) {
	c := New(300, nil)
	loader := func(size int64) Loader {
		return func(ctx context.Context, key string) (*parser.Chart, int64, error) {
			return chartOfSize(size), size, nil
		}
	}

	h1, err := c.Acquire(context.Background(), "A", true, loader(100))
	if err != nil {
		t.Fatalf("acquire A: %v", err)
	}
	hB, err := c.Acquire(context.Background(), "B", true, loader(100))
	if err != nil {
		t.Fatalf("acquire B: %v", err)
	}
	hB.Release()
	hC, err := c.Acquire(context.Background(), "C", true, loader(100))
	if err != nil {
		t.Fatalf("acquire C: %v", err)
	}
	hC.Release()

	stats := c.Stats()
	if stats.UsedMemory > stats.MaxMemory {
		t.Fatalf("used memory %d exceeds max %d", stats.UsedMemory, stats.MaxMemory)
	}

	// A is still checked out (h1 not released); adding D should evict B or C
	// (the least-recently-used not-in-use entries), never A.
	if _, err := c.Acquire(context.Background(), "D", true, loader(100)); err != nil {
		t.Fatalf("acquire D: %v", err)
	}

	c.mu.Lock()
	_, aStillCached := c.entries["A"]
	c.mu.Unlock()
	if !aStillCached {
		t.Fatal("in-use entry A was evicted")
	}

	h1.Release()
	stats = c.Stats()
	if stats.UsedMemory > stats.MaxMemory {
		t.Fatalf("used memory %d exceeds max %d after eviction", stats.UsedMemory, stats.MaxMemory)
	}
}

func TestEvictIdleSparesInUseEntries(t *testing.T) {
	c := New(0, nil)
	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		return chartOfSize(0), 10, nil
	}

	h, err := c.Acquire(context.Background(), "hot", true, loader)
	if err != nil {
		t.Fatalf("acquire hot: %v", err)
	}
	if _, err := c.Acquire(context.Background(), "idle", true, loader); err != nil {
		t.Fatalf("acquire idle: %v", err)
	}

	evicted := c.EvictIdle(0, time.Now().Add(time.Hour))
	if evicted != 1 {
		t.Fatalf("expected exactly 1 idle entry evicted, got %d", evicted)
	}

	c.mu.Lock()
	_, hotStillCached := c.entries["hot"]
	_, idleStillCached := c.entries["idle"]
	c.mu.Unlock()
	if !hotStillCached {
		t.Fatal("in-use entry was evicted by the idle sweep")
	}
	if idleStillCached {
		t.Fatal("expected the not-in-use idle entry to be evicted")
	}
	h.Release()
}

// property 7: single-flight opens — concurrent Acquire calls for the same
// key invoke the loader exactly once, and all callers observe the same
// result.
func TestSingleFlightOpens(t *testing.T) {
	c := New(0, nil)
	var calls int32
	block := make(chan struct{})
	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		atomic.AddInt32(&calls, 1)
		<-block
		return &parser.Chart{}, 10, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*parser.Chart, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := c.Acquire(context.Background(), "shared", true, loader)
			errs[i] = err
			if h != nil {
				results[i] = h.Chart
			}
		}(i)
	}

	// give goroutines time to pile up behind the single in-flight build
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: unexpected error %v", i, err)
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different chart pointer than caller 0", i)
		}
	}
}

func TestAcquireNonBlockingReturnsPending(t *testing.T) {
	c := New(0, nil)
	block := make(chan struct{})
	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		<-block
		return &parser.Chart{}, 10, nil
	}

	done := make(chan struct{})
	go func() {
		c.Acquire(context.Background(), "k", true, loader)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := c.Acquire(context.Background(), "k", false, loader)
	if !errors.Is(err, ErrPending) {
		t.Fatalf("expected ErrPending, got %v", err)
	}

	close(block)
	<-done
}

func TestAcquireErrorNotCachedAndRetried(t *testing.T) {
	c := New(0, nil)
	var attempts int32
	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return nil, 0, fmt.Errorf("simulated open failure %d", n)
		}
		return &parser.Chart{}, 10, nil
	}

	for i := 0; i < 2; i++ {
		if _, err := c.Acquire(context.Background(), "flaky", true, loader); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	h, err := c.Acquire(context.Background(), "flaky", true, loader)
	if err != nil {
		t.Fatalf("final attempt should succeed: %v", err)
	}
	if h.Chart == nil {
		t.Fatal("expected a chart on success")
	}

	degraded := c.Degraded()
	if _, ok := degraded["flaky"]; ok {
		t.Fatal("key should not be degraded after a subsequent success cleared its error history")
	}
}

func TestDegradedAfterRepeatedFailures(t *testing.T) {
	c := New(0, nil)
	c.DegradedThreshold = 2
	loader := func(ctx context.Context, key string) (*parser.Chart, int64, error) {
		return nil, 0, errors.New("always fails")
	}
	for i := 0; i < 2; i++ {
		c.Acquire(context.Background(), "bad", true, loader)
	}
	degraded := c.Degraded()
	if _, ok := degraded["bad"]; !ok {
		t.Fatal("expected key 'bad' to be reported degraded")
	}
}
