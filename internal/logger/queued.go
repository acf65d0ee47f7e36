package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records on shutdown.
type Closer interface {
	Close()
}

// nopCloser is the Closer for the synchronous path.
type nopCloser struct{}

func (nopCloser) Close() {}

// QueuedHandler decouples record emission from serialization so logging on
// the analysis path never blocks on stdout. Handle enqueues and returns;
// worker goroutines feed the wrapped handler. A full queue drops the record
// and counts it.
type QueuedHandler struct {
	next    slog.Handler
	queue   chan slog.Record
	drained *sync.WaitGroup
	lost    *atomic.Int64
}

// NewQueuedHandler wraps next with a queue of the given depth and worker
// count, both taken from the logging config. Values below one are clamped.
func NewQueuedHandler(next slog.Handler, depth, workers int) *QueuedHandler {
	if depth < 1 {
		depth = 1
	}
	if workers < 1 {
		workers = 1
	}
	h := &QueuedHandler{
		next:    next,
		queue:   make(chan slog.Record, depth),
		drained: &sync.WaitGroup{},
		lost:    &atomic.Int64{},
	}
	for range workers {
		h.drained.Add(1)
		go h.pump()
	}
	return h
}

func (h *QueuedHandler) pump() {
	defer h.drained.Done()
	for rec := range h.queue {
		_ = h.next.Handle(context.Background(), rec)
	}
}

// Enabled delegates to the wrapped handler.
func (h *QueuedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle enqueues the record. A full queue drops it.
func (h *QueuedHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec:
	default:
		h.lost.Add(1)
	}
	return nil
}

// WithAttrs wraps a derived handler over the shared queue.
func (h *QueuedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &QueuedHandler{
		next:    h.next.WithAttrs(attrs),
		queue:   h.queue,
		drained: h.drained,
		lost:    h.lost,
	}
}

// WithGroup wraps a derived handler over the shared queue.
func (h *QueuedHandler) WithGroup(name string) slog.Handler {
	return &QueuedHandler{
		next:    h.next.WithGroup(name),
		queue:   h.queue,
		drained: h.drained,
		lost:    h.lost,
	}
}

// Dropped returns the number of records lost to a full queue.
func (h *QueuedHandler) Dropped() int64 {
	return h.lost.Load()
}

// Close stops intake and blocks until the workers drain the queue.
func (h *QueuedHandler) Close() {
	close(h.queue)
	h.drained.Wait()
}
