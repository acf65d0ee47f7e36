package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Strob0t/ScriptForge/internal/adapter/host"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// Wire DTOs for the editor protocol surface the host dispatches.

type textDocumentItem struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type versionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []ChangeEvent                   `json:"contentChanges"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type positionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     script.Position        `json:"position"`
}

// RegisterHostHandlers wires the document lifecycle and language features
// onto the protocol host. Request handlers are rate limited per connection;
// lifecycle notifications are not, so a paste storm cannot sever a session.
func RegisterHostHandlers(h *host.Host, docs *DocumentService, guard *SessionGuard) {
	h.Handle("initialize", func(_ context.Context, _ json.RawMessage) (any, error) {
		return map[string]any{
			"capabilities": map[string]any{
				"textDocumentSync":      1, // full
				"hoverProvider":         true,
				"completionProvider":    map[string]any{"triggerCharacters": []string{"(", ",", "\""}},
				"signatureHelpProvider": map[string]any{"triggerCharacters": []string{"(", ","}},
			},
			"serverInfo": map[string]string{"name": "scriptforge"},
		}, nil
	})

	h.HandleNotification("textDocument/didOpen", func(ctx context.Context, raw json.RawMessage) {
		var p didOpenParams
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Warn("didOpen: bad params", "error", err)
			return
		}
		conn := host.ConnectionFrom(ctx)
		if err := docs.Open(ctx, conn, p.TextDocument.URI, p.TextDocument.Text, p.TextDocument.Version); err != nil {
			slog.Warn("didOpen rejected", "uri", p.TextDocument.URI, "error", err)
		}
	})

	h.HandleNotification("textDocument/didChange", func(ctx context.Context, raw json.RawMessage) {
		var p didChangeParams
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Warn("didChange: bad params", "error", err)
			return
		}
		conn := host.ConnectionFrom(ctx)
		err := docs.Change(ctx, conn, p.TextDocument.URI, p.TextDocument.Version, p.ContentChanges)
		if err != nil {
			slog.Warn("didChange rejected", "uri", p.TextDocument.URI, "error", err)
		}
	})

	h.HandleNotification("textDocument/didClose", func(ctx context.Context, raw json.RawMessage) {
		var p didCloseParams
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Warn("didClose: bad params", "error", err)
			return
		}
		conn := host.ConnectionFrom(ctx)
		if err := docs.Close(conn, p.TextDocument.URI); err != nil {
			slog.Warn("didClose rejected", "uri", p.TextDocument.URI, "error", err)
		}
	})

	h.Handle("textDocument/hover", guarded(guard, func(ctx context.Context, p positionParams) (any, error) {
		if hover := docs.Hover(ctx, p.TextDocument.URI, p.Position); hover != nil {
			return hover, nil
		}
		return nil, nil
	}))

	h.Handle("textDocument/completion", guarded(guard, func(ctx context.Context, p positionParams) (any, error) {
		return docs.Complete(ctx, p.TextDocument.URI, p.Position), nil
	}))

	h.Handle("textDocument/signatureHelp", guarded(guard, func(ctx context.Context, p positionParams) (any, error) {
		if sig := docs.Signature(ctx, p.TextDocument.URI, p.Position); sig != nil {
			return sig, nil
		}
		return nil, nil
	}))
}

// guarded wraps a position-based request with per-connection rate limiting
// and document access control. A failed acquire is terminal for the request.
func guarded(guard *SessionGuard, fn func(ctx context.Context, p positionParams) (any, error)) host.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p positionParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &host.CodedError{Code: host.CodeInvalidParams, Err: err}
		}
		if p.Position.Line < 0 || p.Position.Character < 0 {
			return nil, &host.CodedError{Code: host.CodeInvalidParams, Err: errors.New("negative position")}
		}
		conn := host.ConnectionFrom(ctx)
		if !guard.TryAcquire(conn) {
			return nil, &host.CodedError{Code: host.CodeRateLimited, Err: ErrRateLimited}
		}
		if !guard.ValidateAccess(conn, p.TextDocument.URI) {
			return nil, &host.CodedError{Code: host.CodeAccessDenied, Err: ErrAccessDenied}
		}
		result, err := fn(ctx, p)
		if err != nil {
			if errors.Is(err, ErrParseTimeout) {
				return nil, &host.CodedError{Code: host.CodeTimeout, Err: err}
			}
			return nil, err
		}
		return result, nil
	}
}
