package service

import (
	"log/slog"
	"sync"
	"time"
)

// SessionGuard tracks which connection owns which document and throttles
// per-connection request rates. Ownership is advisory: it gates operations,
// not the text itself. Both ownership maps are updated under one coarse
// mutex so a reader never observes one map updated and the other stale.
type SessionGuard struct {
	mu     sync.Mutex
	owned  map[string]map[string]struct{} // connection -> owned URIs
	owner  map[string]string              // URI -> owning connection
	bucket map[string]*tokenBucket        // connection -> rate bucket

	capacity int
	interval time.Duration
	now      func() time.Time // for testing
}

// tokenBucket refills to full capacity after the interval elapses, a coarse
// whole-bucket policy rather than a continuous trickle.
type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewSessionGuard creates a guard with per-connection buckets of the given
// capacity that refill after interval.
func NewSessionGuard(capacity int, interval time.Duration) *SessionGuard {
	return &SessionGuard{
		owned:    make(map[string]map[string]struct{}),
		owner:    make(map[string]string),
		bucket:   make(map[string]*tokenBucket),
		capacity: capacity,
		interval: interval,
		now:      time.Now,
	}
}

// RegisterDocument records conn as the sole owner of uri. A later
// registration silently takes ownership from any prior owner; last
// registration wins.
func (g *SessionGuard) RegisterDocument(conn, uri string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.owner[uri]; ok && prev != conn {
		delete(g.owned[prev], uri)
	}
	set, ok := g.owned[conn]
	if !ok {
		set = make(map[string]struct{})
		g.owned[conn] = set
	}
	set[uri] = struct{}{}
	g.owner[uri] = conn
}

// ValidateAccess reports whether conn may operate on uri: unregistered
// documents are granted implicitly on first use; registered documents only
// to their owner. Callers must refuse the operation on false.
func (g *SessionGuard) ValidateAccess(conn, uri string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	owner, ok := g.owner[uri]
	return !ok || owner == conn
}

// CleanupConnection releases every document conn owned and removes its rate
// bucket. Called exactly once, on disconnect.
func (g *SessionGuard) CleanupConnection(conn string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for uri := range g.owned[conn] {
		delete(g.owner, uri)
	}
	delete(g.owned, conn)
	delete(g.bucket, conn)
	slog.Debug("session cleaned up", "connection", conn)
}

// OwnedCount returns how many documents conn owns (for metrics and testing).
func (g *SessionGuard) OwnedCount(conn string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.owned[conn])
}

// TryAcquire takes one token from conn's bucket, lazily creating it at full
// capacity and refilling it to full once the interval has elapsed. A false
// return is terminal for the request; callers must not silently downgrade.
func (g *SessionGuard) TryAcquire(conn string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	b, ok := g.bucket[conn]
	if !ok {
		b = &tokenBucket{tokens: g.capacity, lastRefill: now}
		g.bucket[conn] = b
	} else if now.Sub(b.lastRefill) >= g.interval {
		b.tokens = g.capacity
		b.lastRefill = now
	}

	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}
