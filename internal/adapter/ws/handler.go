// Package ws implements the WebSocket adapter carrying editor traffic: the
// duplex protocol stream plus the custom trigger channel.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Strob0t/ScriptForge/internal/service"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// conn wraps a single WebSocket connection.
type conn struct {
	id     string
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub manages active connections, routes inbound messages, and implements
// the broadcast port. Every connection gets an opaque ID at accept time;
// that ID is the ownership handle the services see.
type Hub struct {
	bridge   *service.Bridge
	triggers *service.TriggerService
	guard    *service.SessionGuard

	mu    sync.RWMutex
	conns map[string]*conn
}

// NewHub creates a WebSocket hub. bridge, triggers, and guard may be nil in
// tests; the corresponding message types are then dropped.
func NewHub(bridge *service.Bridge, triggers *service.TriggerService, guard *service.SessionGuard) *Hub {
	return &Hub{
		bridge:   bridge,
		triggers: triggers,
		guard:    guard,
		conns:    make(map[string]*conn),
	}
}

// SetBridge binds the protocol bridge. The hub is constructed before the
// bridge because the bridge broadcasts through the hub; call this once
// during wiring, before the server accepts connections.
func (h *Hub) SetBridge(b *service.Bridge) {
	h.bridge = b
}

// HandleWS upgrades the request and runs the connection's read loop.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS handled by middleware
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{id: uuid.NewString(), ws: ws, cancel: cancel}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	slog.Info("websocket connected", "conn_id", c.id, "remote", r.RemoteAddr)

	go func() {
		defer func() {
			h.remove(c.id)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			h.route(ctx, c, data)
		}
	}()
}

// route dispatches one inbound frame by envelope type.
func (h *Hub) route(ctx context.Context, c *conn, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.SendTo(ctx, c.id, EventError, ErrorEvent{Code: ErrCodeInvalid, Message: "malformed message envelope"})
		return
	}

	switch msg.Type {
	case MessageProtocol:
		if h.bridge != nil {
			h.bridge.ForwardToHost(ctx, c.id, msg.Payload)
		}
	case MessageTrigger:
		h.handleTrigger(ctx, c, msg.Payload)
	default:
		slog.Debug("unknown message type", "conn_id", c.id, "type", msg.Type)
	}
}

// handleTrigger resolves a trigger request and answers only the originating
// connection. No reply means no picker action.
func (h *Hub) handleTrigger(ctx context.Context, c *conn, payload json.RawMessage) {
	if h.triggers == nil {
		return
	}

	var req service.TriggerRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.SendTo(ctx, c.id, EventError, ErrorEvent{Code: ErrCodeInvalid, Message: "malformed trigger request"})
		return
	}

	cmd, err := h.triggers.Resolve(ctx, c.id, req)
	if err != nil {
		h.SendTo(ctx, c.id, EventError, triggerError(err))
		return
	}
	if cmd == nil {
		return
	}
	h.SendTo(ctx, c.id, EventPicker, cmd)
}

func triggerError(err error) ErrorEvent {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		return ErrorEvent{Code: ErrCodeAccessDenied, Message: "document owned by another connection"}
	case errors.Is(err, service.ErrRateLimited):
		return ErrorEvent{Code: ErrCodeRateLimited, Message: "too many requests"}
	default:
		return ErrorEvent{Code: ErrCodeInvalid, Message: err.Error()}
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, c := range h.conns {
		if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed", "conn_id", id, "error", err)
			go h.remove(id)
		}
	}
}

// BroadcastEvent marshals a typed payload and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
}

// SendTo sends a typed payload to one connection. Unknown IDs are ignored.
func (h *Hub) SendTo(ctx context.Context, connID, eventType string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}
	frame, err := json.Marshal(Message{Type: eventType, Payload: json.RawMessage(data)})
	if err != nil {
		slog.Error("websocket marshal failed", "error", err)
		return
	}

	if err := c.ws.Write(ctx, websocket.MessageText, frame); err != nil {
		slog.Debug("websocket write failed", "conn_id", connID, "error", err)
		go h.remove(connID)
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if ok {
		c.cancel()
		delete(h.conns, connID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	if h.guard != nil {
		h.guard.CleanupConnection(connID)
	}
	slog.Info("websocket disconnected", "conn_id", connID)
}
