package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/grammar"
)

// countingParser returns a fresh tree per call and counts invocations.
type countingParser struct {
	calls atomic.Int64
	delay time.Duration
}

func (p *countingParser) Parse(ctx context.Context, text string) (grammar.Result, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return grammar.Result{}, ctx.Err()
		}
	}
	return grammar.Result{Tree: &script.Tree{}}, nil
}

func cacheConfig() AnalysisCacheConfig {
	return AnalysisCacheConfig{
		TimeoutFloor:  time.Second,
		TimeoutPerKB:  time.Millisecond,
		TimeoutMax:    2 * time.Second,
		SweepInterval: time.Minute,
		IdleTTL:       30 * time.Minute,
	}
}

func TestGetOrParseVersionHit(t *testing.T) {
	parser := &countingParser{}
	c := NewAnalysisCache(parser, cacheConfig())
	ctx := context.Background()

	first, _, err := c.GetOrParse(ctx, "file:///a.fs", `print("x")`, 3)
	if err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}
	second, _, err := c.GetOrParse(ctx, "file:///a.fs", `print("x")`, 3)
	if err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}

	if first != second {
		t.Error("version-equal lookup returned a different tree pointer")
	}
	if n := parser.calls.Load(); n != 1 {
		t.Errorf("parser calls = %d, want 1", n)
	}
	if c.Hits() != 1 || c.Misses() != 1 {
		t.Errorf("hits = %d, misses = %d, want 1/1", c.Hits(), c.Misses())
	}
}

func TestGetOrParseVersionMiss(t *testing.T) {
	parser := &countingParser{}
	c := NewAnalysisCache(parser, cacheConfig())
	ctx := context.Background()

	v3, _, _ := c.GetOrParse(ctx, "file:///a.fs", "print(1)", 3)
	v4, _, _ := c.GetOrParse(ctx, "file:///a.fs", "print(2)", 4)

	if v3 == v4 {
		t.Error("different versions returned the same tree")
	}
	if n := parser.calls.Load(); n != 2 {
		t.Errorf("parser calls = %d, want 2", n)
	}
	if c.Misses() != 2 {
		t.Errorf("misses = %d, want 2", c.Misses())
	}
}

func TestCachedExactVersionOnly(t *testing.T) {
	c := NewAnalysisCache(&countingParser{}, cacheConfig())
	_, _, _ = c.GetOrParse(context.Background(), "file:///a.fs", "x()", 2)

	if _, ok := c.Cached("file:///a.fs", 2); !ok {
		t.Error("cached version not returned")
	}
	if _, ok := c.Cached("file:///a.fs", 1); ok {
		t.Error("stale version returned")
	}
	if _, ok := c.Cached("file:///other.fs", 2); ok {
		t.Error("unknown uri returned")
	}
	// Cached never moves the counters.
	if c.Hits() != 0 {
		t.Errorf("hits = %d, want 0", c.Hits())
	}
}

func TestInvalidate(t *testing.T) {
	c := NewAnalysisCache(&countingParser{}, cacheConfig())
	_, _, _ = c.GetOrParse(context.Background(), "file:///a.fs", "x()", 1)

	c.Invalidate("file:///a.fs")
	if _, ok := c.Cached("file:///a.fs", 1); ok {
		t.Error("entry survived invalidation")
	}
	if c.Len() != 0 {
		t.Errorf("len = %d, want 0", c.Len())
	}
}

func TestLateResultNeverRegressesVersion(t *testing.T) {
	c := NewAnalysisCache(&countingParser{}, cacheConfig())
	ctx := context.Background()

	_, _, _ = c.GetOrParse(ctx, "file:///a.fs", "new()", 5)
	// A parse for an older version still returns its own result but must
	// not replace the newer cached entry.
	if _, _, err := c.GetOrParse(ctx, "file:///a.fs", "old()", 3); err != nil {
		t.Fatalf("GetOrParse: %v", err)
	}

	if _, ok := c.Cached("file:///a.fs", 5); !ok {
		t.Error("newer entry was overwritten by an older result")
	}
	if _, ok := c.Cached("file:///a.fs", 3); ok {
		t.Error("older result was installed")
	}
}

func TestParseTimeout(t *testing.T) {
	cfg := cacheConfig()
	cfg.TimeoutFloor = 20 * time.Millisecond
	cfg.TimeoutMax = 30 * time.Millisecond
	c := NewAnalysisCache(&countingParser{delay: time.Second}, cfg)

	_, _, err := c.GetOrParse(context.Background(), "file:///a.fs", "x()", 1)
	if !errors.Is(err, ErrParseTimeout) {
		t.Fatalf("err = %v, want ErrParseTimeout", err)
	}
	if c.Len() != 0 {
		t.Error("timed-out parse was cached")
	}
}

func TestParseCancelled(t *testing.T) {
	c := NewAnalysisCache(&countingParser{delay: time.Second}, cacheConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.GetOrParse(ctx, "file:///a.fs", "x()", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	cfg := cacheConfig()
	cfg.IdleTTL = time.Minute
	c := NewAnalysisCache(&countingParser{}, cfg)
	_, _, _ = c.GetOrParse(context.Background(), "file:///a.fs", "x()", 1)

	c.sweep(time.Now())
	if c.Len() != 1 {
		t.Fatal("fresh entry evicted")
	}

	c.sweep(time.Now().Add(2 * time.Minute))
	if c.Len() != 0 {
		t.Error("idle entry survived the sweep")
	}
}

func TestParseObserver(t *testing.T) {
	c := NewAnalysisCache(&countingParser{}, cacheConfig())
	var observed atomic.Int64
	c.SetParseObserver(func(time.Duration) { observed.Add(1) })

	ctx := context.Background()
	_, _, _ = c.GetOrParse(ctx, "file:///a.fs", "x()", 1)
	_, _, _ = c.GetOrParse(ctx, "file:///a.fs", "x()", 1)

	// Only the fresh parse is observed, not the hit.
	if n := observed.Load(); n != 1 {
		t.Errorf("observed parses = %d, want 1", n)
	}
}
