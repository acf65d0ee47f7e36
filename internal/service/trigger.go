package service

import (
	"context"
	"fmt"
	"log/slog"

	sfotel "github.com/Strob0t/ScriptForge/internal/adapter/otel"
	"github.com/Strob0t/ScriptForge/internal/analysis"
	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// TriggerRequest is the custom (non-protocol) trigger input sent when the
// editor types a trigger character and wants to know whether to open a
// picker instead of a plain text suggestion.
type TriggerRequest struct {
	URI         string          `json:"uri"`
	Text        string          `json:"text"`
	Position    script.Position `json:"position"`
	Line        string          `json:"line"`
	TriggerChar string          `json:"triggerChar"`
}

// PushCommand instructs the originating editor connection to open a picker.
type PushCommand struct {
	Picker     apispec.PickerKind `json:"picker"`
	Function   string             `json:"function"`
	ParamIndex int                `json:"paramIndex"`
	Value      string             `json:"value,omitempty"`
	Options    []string           `json:"options,omitempty"`
	BasePath   string             `json:"basePath,omitempty"`
}

// TriggerService decides picker pushes for trigger characters. It prefers
// the tree strategy when a parse of the current document version is already
// cached and falls back to the line scan otherwise; a trigger decision must
// never wait on a parse.
type TriggerService struct {
	docs    *DocumentService
	specs   *SpecStore
	guard   *SessionGuard
	cache   *AnalysisCache
	metrics *sfotel.Metrics // optional, nil-safe
}

// NewTriggerService creates the trigger decision service.
func NewTriggerService(docs *DocumentService, specs *SpecStore, guard *SessionGuard, cache *AnalysisCache) *TriggerService {
	return &TriggerService{docs: docs, specs: specs, guard: guard, cache: cache}
}

// SetMetrics attaches metric instruments. Call before the service is used.
func (t *TriggerService) SetMetrics(m *sfotel.Metrics) {
	t.metrics = m
}

// Resolve handles one trigger from conn. A nil command with a nil error
// means "no action". Access and rate failures are returned as their
// sentinels so the transport can report them distinctly.
func (t *TriggerService) Resolve(ctx context.Context, conn string, req TriggerRequest) (*PushCommand, error) {
	if req.URI == "" {
		return nil, fmt.Errorf("trigger: missing uri")
	}
	if req.Position.Line < 0 || req.Position.Character < 0 || req.Position.Character > len(req.Line) {
		return nil, fmt.Errorf("trigger: position out of range")
	}
	if !t.guard.ValidateAccess(conn, req.URI) {
		return nil, ErrAccessDenied
	}
	if !t.guard.TryAcquire(conn) {
		return nil, ErrRateLimited
	}
	if t.metrics != nil {
		t.metrics.Triggers.Add(ctx, 1)
	}

	spec := t.specs.Current()
	var cursorCtx analysis.CursorContext
	if doc, ok := t.docs.Snapshot(req.URI); ok {
		if tree, cached := t.cache.Cached(req.URI, doc.Version); cached {
			cursorCtx = analysis.TreeContext(tree, req.Position, spec)
		}
	}
	if !cursorCtx.Valid {
		cursorCtx = analysis.LineContext(req.Line, req.Position.Character, spec)
	}
	if !cursorCtx.Valid {
		return nil, nil
	}

	cmd := &PushCommand{
		Picker:     cursorCtx.Param.Picker,
		Function:   cursorCtx.Function,
		ParamIndex: cursorCtx.ParamIndex,
		Value:      cursorCtx.Value,
	}
	switch cursorCtx.Param.Picker {
	case apispec.PickerOptions:
		cmd.Options = cursorCtx.Param.Options
	case apispec.PickerPath:
		cmd.BasePath = cursorCtx.Param.BasePath
	default:
		return nil, nil // plain parameter: no picker to open
	}

	slog.Debug("trigger resolved", "connection", conn, "function", cmd.Function,
		"param", cmd.ParamIndex, "picker", cmd.Picker)
	return cmd, nil
}
