package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/grammar"
)

// AnalysisCache caches parse results per document URI, keyed by document
// version. Editors re-request diagnostics on every navigation even when the
// document has not changed; a version-equal lookup returns the same tree
// pointer in O(1) and never returns a tree for a different version.
type AnalysisCache struct {
	parser grammar.Parser

	timeoutFloor time.Duration // minimum parse budget
	timeoutPerKB time.Duration // extra budget per KiB of source
	timeoutMax   time.Duration // upper bound for pathological documents

	sweepInterval time.Duration
	idleTTL       time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry

	hits   atomic.Int64
	misses atomic.Int64

	// onParse, when set, receives the duration of every fresh parse.
	onParse func(d time.Duration)
}

type cacheEntry struct {
	version    int
	tree       *script.Tree
	diags      []script.Diagnostic
	parseTime  time.Duration
	lastAccess atomic.Int64 // unix nanos
}

func (e *cacheEntry) touch() {
	e.lastAccess.Store(time.Now().UnixNano())
}

// AnalysisCacheConfig bundles the cache tuning knobs.
type AnalysisCacheConfig struct {
	TimeoutFloor  time.Duration
	TimeoutPerKB  time.Duration
	TimeoutMax    time.Duration
	SweepInterval time.Duration
	IdleTTL       time.Duration
}

// NewAnalysisCache creates a cache around the given parser.
func NewAnalysisCache(parser grammar.Parser, cfg AnalysisCacheConfig) *AnalysisCache {
	return &AnalysisCache{
		parser:        parser,
		timeoutFloor:  cfg.TimeoutFloor,
		timeoutPerKB:  cfg.TimeoutPerKB,
		timeoutMax:    cfg.TimeoutMax,
		sweepInterval: cfg.SweepInterval,
		idleTTL:       cfg.IdleTTL,
		entries:       make(map[string]*cacheEntry),
	}
}

// SetParseObserver registers a callback receiving fresh-parse durations.
func (c *AnalysisCache) SetParseObserver(fn func(d time.Duration)) {
	c.onParse = fn
}

// GetOrParse returns the tree and syntax diagnostics for (uri, version).
// A version-equal entry is a hit: the identical cached tree is returned and
// its last-access timestamp refreshed. Anything else parses text fresh under
// a size-scaled budget and replaces the entry wholesale.
func (c *AnalysisCache) GetOrParse(ctx context.Context, uri, text string, version int) (*script.Tree, []script.Diagnostic, error) {
	c.mu.Lock()
	if e, ok := c.entries[uri]; ok && e.version == version {
		c.mu.Unlock()
		e.touch()
		c.hits.Add(1)
		return e.tree, e.diags, nil
	}
	c.mu.Unlock()

	result, dur, err := c.parse(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	c.misses.Add(1)
	if c.onParse != nil {
		c.onParse(dur)
	}

	e := &cacheEntry{
		version:   version,
		tree:      result.Tree,
		diags:     result.Diagnostics,
		parseTime: dur,
	}
	e.touch()

	c.mu.Lock()
	// A newer version may have landed while we were parsing; never let a
	// late older result overwrite it.
	if old, ok := c.entries[uri]; !ok || old.version <= version {
		c.entries[uri] = e
	}
	c.mu.Unlock()

	return result.Tree, result.Diagnostics, nil
}

// Cached returns the tree for uri only when its version matches. It does not
// count as a hit or miss and never parses.
func (c *AnalysisCache) Cached(uri string, version int) (*script.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[uri]; ok && e.version == version {
		return e.tree, true
	}
	return nil, false
}

// Invalidate removes the entry for uri unconditionally (document close).
func (c *AnalysisCache) Invalidate(uri string) {
	c.mu.Lock()
	delete(c.entries, uri)
	c.mu.Unlock()
}

// Hits returns the monotonically increasing hit counter.
func (c *AnalysisCache) Hits() int64 { return c.hits.Load() }

// Misses returns the monotonically increasing miss counter.
func (c *AnalysisCache) Misses() int64 { return c.misses.Load() }

// Len returns the number of cached entries (for metrics and testing).
func (c *AnalysisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// parse runs the grammar off the request path under a size-scaled timeout:
// a floor plus a per-KiB allowance, capped, so oversized documents cannot
// monopolize a worker. On cancellation or timeout no cache write happens.
func (c *AnalysisCache) parse(ctx context.Context, text string) (grammar.Result, time.Duration, error) {
	budget := c.timeoutFloor + time.Duration(len(text)/1024)*c.timeoutPerKB
	if budget > c.timeoutMax {
		budget = c.timeoutMax
	}
	parseCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		result grammar.Result
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		r, err := c.parser.Parse(parseCtx, text)
		done <- outcome{result: r, err: err}
	}()

	select {
	case o := <-done:
		return o.result, time.Since(start), o.err
	case <-parseCtx.Done():
		if ctx.Err() != nil {
			return grammar.Result{}, 0, ctx.Err()
		}
		return grammar.Result{}, 0, ErrParseTimeout
	}
}

// RunSweeper evicts entries idle longer than the TTL on a fixed interval.
// Pure TTL on last access, independent of any LRU ordering. Blocks until ctx
// is done.
func (c *AnalysisCache) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *AnalysisCache) sweep(now time.Time) {
	cutoff := now.Add(-c.idleTTL).UnixNano()
	c.mu.Lock()
	defer c.mu.Unlock()
	for uri, e := range c.entries {
		if e.lastAccess.Load() < cutoff {
			delete(c.entries, uri)
			slog.Debug("analysis cache evicted", "uri", uri)
		}
	}
}
