// Package host implements the protocol host: it accepts framed protocol
// messages on an input stream, dispatches them to registered request
// handlers, and emits framed results on an output stream. Everything outside
// this package treats both streams as opaque; the bridge only moves frames.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
)

// Handler serves one request method. The connection ID of the transport
// connection the request arrived on is carried in ctx (see WithConnection).
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// NotificationHandler serves one notification method (no response).
type NotificationHandler func(ctx context.Context, params json.RawMessage)

type connKey struct{}

// WithConnection tags ctx with the originating transport connection ID.
func WithConnection(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connKey{}, connID)
}

// ConnectionFrom returns the connection ID carried in ctx, if any.
func ConnectionFrom(ctx context.Context) string {
	id, _ := ctx.Value(connKey{}).(string)
	return id
}

// inbound pairs an input frame with its originating connection.
type inbound struct {
	connID string
	frame  []byte
}

// Host is an in-process protocol host consumed through two opaque streams:
// Push feeds the input stream, Output exposes everything the host emits.
// Each inbound request is dispatched on its own goroutine.
type Host struct {
	handlers      map[string]Handler
	notifications map[string]NotificationHandler
	in            chan inbound
	out           chan []byte
}

// New creates a host with buffered streams.
func New() *Host {
	return &Host{
		handlers:      make(map[string]Handler),
		notifications: make(map[string]NotificationHandler),
		in:            make(chan inbound, 128),
		out:           make(chan []byte, 128),
	}
}

// Handle registers a request handler. Must be called before Run.
func (h *Host) Handle(method string, fn Handler) {
	h.handlers[method] = fn
}

// HandleNotification registers a notification handler. Must be called before Run.
func (h *Host) HandleNotification(method string, fn NotificationHandler) {
	h.notifications[method] = fn
}

// Push feeds one frame into the host's input stream. connID identifies the
// transport connection the frame arrived on; it may be empty for stdio.
func (h *Host) Push(ctx context.Context, connID string, frame []byte) error {
	select {
	case h.in <- inbound{connID: connID, frame: frame}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Output returns the host's output stream of framed messages.
func (h *Host) Output() <-chan []byte {
	return h.out
}

// Notify emits a server-initiated notification on the output stream
// (e.g. textDocument/publishDiagnostics).
func (h *Host) Notify(method string, params any) {
	raw, err := json.Marshal(params)
	if err != nil {
		slog.Error("host notify marshal failed", "method", method, "error", err)
		return
	}
	msg := Message{JSONRPC: "2.0", Method: method, Params: raw}
	h.emit(msg)
}

// Run consumes the input stream until ctx is done. Requests run on their own
// goroutines; notifications run inline in arrival order.
func (h *Host) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-h.in:
			h.dispatch(ctx, in)
		}
	}
}

func (h *Host) dispatch(ctx context.Context, in inbound) {
	var msg Message
	if err := json.Unmarshal(in.frame, &msg); err != nil {
		h.emit(Message{JSONRPC: "2.0", Error: &ResponseError{Code: CodeParseError, Message: "parse error"}})
		return
	}

	reqCtx := WithConnection(ctx, in.connID)

	if msg.ID == nil {
		if fn, ok := h.notifications[msg.Method]; ok {
			h.safeNotify(reqCtx, msg.Method, fn, msg.Params)
		} else {
			slog.Debug("host notification ignored", "method", msg.Method)
		}
		return
	}

	fn, ok := h.handlers[msg.Method]
	if !ok {
		h.emit(Message{JSONRPC: "2.0", ID: msg.ID, Error: &ResponseError{
			Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", msg.Method)}})
		return
	}

	go h.serve(reqCtx, msg, fn)
}

// serve runs one request handler. Internal faults are recovered here and
// degrade to a null result; a broken hover must never crash the serving loop.
func (h *Host) serve(ctx context.Context, msg Message, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("host handler panic", "method", msg.Method, "panic", r,
				"stack", string(debug.Stack()))
			h.emit(Message{JSONRPC: "2.0", ID: msg.ID, Result: json.RawMessage("null")})
		}
	}()

	result, err := fn(ctx, msg.Params)
	if err != nil {
		h.emit(Message{JSONRPC: "2.0", ID: msg.ID, Error: toResponseError(err)})
		return
	}
	if result == nil {
		result = json.RawMessage("null")
	}
	h.emit(Message{JSONRPC: "2.0", ID: msg.ID, Result: result})
}

// CodedError lets handlers choose the wire error code for a failure.
type CodedError struct {
	Code int
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }
func (e *CodedError) Unwrap() error { return e.Err }

func toResponseError(err error) *ResponseError {
	var ce *CodedError
	if errors.As(err, &ce) {
		return &ResponseError{Code: ce.Code, Message: ce.Err.Error()}
	}
	return &ResponseError{Code: CodeInternalError, Message: err.Error()}
}

func (h *Host) safeNotify(ctx context.Context, method string, fn NotificationHandler, params json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("host notification panic", "method", method, "panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn(ctx, params)
}

func (h *Host) emit(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("host emit marshal failed", "error", err)
		return
	}
	select {
	case h.out <- data:
	default:
		slog.Warn("host output stream full, frame dropped", "method", msg.Method)
	}
}

// RunStdio attaches the host to a framed byte stream (editor over stdio):
// inbound frames are pushed onto the input stream, and every output frame is
// written back. Blocks until the stream closes or ctx is done.
func (h *Host) RunStdio(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := NewFrameConn(rwc)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-h.out:
				if err := conn.WriteFrame(frame); err != nil {
					slog.Warn("stdio write failed", "error", err)
					return
				}
			}
		}
	}()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return err
		}
		if err := h.Push(ctx, "stdio", frame); err != nil {
			return err
		}
	}
}
