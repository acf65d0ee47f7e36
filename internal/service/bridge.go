package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/ScriptForge/internal/port/broadcast"
)

// EventProtocol is the transport event type carrying host output frames.
const EventProtocol = "protocol"

// ProtocolHost is the analysis host seen as two opaque streams.
type ProtocolHost interface {
	// Push feeds one frame into the host's input stream.
	Push(ctx context.Context, connID string, frame []byte) error
	// Output is the stream of frames the host emits.
	Output() <-chan []byte
}

// Bridge is the singleton duplex pipe between the message transport and the
// analysis host. It is constructed before the host exists: the transport
// layer and the host are wired by different subsystems, and the bridge is
// the only component that sees both. Until Initialize is called,
// ForwardToHost is a safe no-op.
type Bridge struct {
	hub broadcast.Broadcaster

	mu   sync.RWMutex
	host ProtocolHost
}

// NewBridge creates a bridge publishing host output to hub subscribers.
func NewBridge(hub broadcast.Broadcaster) *Bridge {
	return &Bridge{hub: hub}
}

// Initialize binds the host. Callable exactly once, after the host has been
// constructed.
func (b *Bridge) Initialize(host ProtocolHost) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.host != nil {
		return fmt.Errorf("bridge already initialized")
	}
	b.host = host
	slog.Info("protocol bridge initialized")
	return nil
}

// ForwardToHost pushes an inbound transport frame onto the host's input
// stream. Frames arriving in the window between process start and host
// construction are dropped silently.
func (b *Bridge) ForwardToHost(ctx context.Context, connID string, frame []byte) {
	b.mu.RLock()
	host := b.host
	b.mu.RUnlock()
	if host == nil {
		return
	}
	if err := host.Push(ctx, connID, frame); err != nil {
		slog.Warn("bridge forward failed", "connection", connID, "error", err)
	}
}

// Run republishes every frame the host emits to all transport subscribers.
// Blocks until ctx is done. Must be called after Initialize.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.RLock()
	host := b.host
	b.mu.RUnlock()
	if host == nil {
		return fmt.Errorf("bridge not initialized")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-host.Output():
			// The broadcast callback mutates nothing shared; no extra
			// locking is needed even though forwarding runs concurrently.
			b.hub.BroadcastEvent(ctx, EventProtocol, json.RawMessage(frame))
		}
	}
}
