package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Strob0t/ScriptForge/internal/analysis"
	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// CursorContext resolves the call context at pos using the tree strategy
// when a parse for the current document version is cached and resolves, and
// the line-scan fallback otherwise. The fallback never waits on a parse;
// that is the point of having it.
func (s *DocumentService) CursorContext(ctx context.Context, uri string, pos script.Position) analysis.CursorContext {
	doc, ok := s.Snapshot(uri)
	if !ok {
		return analysis.CursorContext{}
	}
	spec := s.specs.Current()

	if tree, ok := s.cache.Cached(uri, doc.Version); ok {
		if cursorCtx := analysis.TreeContext(tree, pos, spec); cursorCtx.Valid {
			return cursorCtx
		}
	}
	return analysis.LineContext(lineAt(doc.Text, pos.Line), pos.Character, spec)
}

// HoverResult is the markdown answer for a hover request.
type HoverResult struct {
	Contents string        `json:"contents"`
	Range    *script.Range `json:"range,omitempty"`
}

// Hover describes the callable or parameter under the cursor. A nil result
// means "no answer".
func (s *DocumentService) Hover(ctx context.Context, uri string, pos script.Position) *HoverResult {
	doc, ok := s.Snapshot(uri)
	if !ok {
		return nil
	}
	spec := s.specs.Current()

	tree, cached := s.cache.Cached(uri, doc.Version)
	if !cached {
		var err error
		tree, _, err = s.cache.GetOrParse(ctx, doc.URI, doc.Text, doc.Version)
		if err != nil {
			return nil
		}
	}

	// Hovering the callee name itself shows the signature; hovering inside
	// the argument list shows the active parameter.
	path := analysis.NodePath(tree, pos)
	for i := len(path) - 1; i >= 0; i-- {
		call, ok := path[i].(*script.CallExpr)
		if !ok {
			continue
		}
		object, name, ok := call.TargetName()
		if !ok {
			return nil
		}
		callee, found := spec.Resolve(object, name)
		if !found {
			return nil
		}
		if i+1 < len(path) && path[i+1] == call.Target {
			span := call.Target.Span()
			return &HoverResult{Contents: renderCallable(callee), Range: &span}
		}
		if cursorCtx := analysis.TreeContext(tree, pos, spec); cursorCtx.Valid {
			return &HoverResult{Contents: renderParam(callee, cursorCtx.Param)}
		}
		return &HoverResult{Contents: renderCallable(callee)}
	}
	return nil
}

// CompletionItem is one completion suggestion.
type CompletionItem struct {
	Label      string `json:"label"`
	Kind       string `json:"kind"` // "function" | "object" | "option" | "macro"
	Detail     string `json:"detail,omitempty"`
	InsertText string `json:"insertText,omitempty"`
}

// Complete returns completion items at pos: enum options (and macros) when
// the cursor sits in an options or macro-carrying parameter, global
// functions and objects otherwise.
func (s *DocumentService) Complete(ctx context.Context, uri string, pos script.Position) []CompletionItem {
	spec := s.specs.Current()

	if cursorCtx := s.CursorContext(ctx, uri, pos); cursorCtx.Valid {
		var items []CompletionItem
		if cursorCtx.Param.Picker == apispec.PickerOptions {
			for _, opt := range cursorCtx.Param.Options {
				items = append(items, CompletionItem{Label: opt, Kind: "option"})
			}
		}
		for _, m := range cursorCtx.Param.Macros {
			items = append(items, CompletionItem{Label: m, Kind: "macro", InsertText: m})
		}
		if len(items) > 0 {
			return items
		}
	}

	items := make([]CompletionItem, 0, len(spec.Functions)+len(spec.Objects))
	for _, f := range spec.Functions {
		items = append(items, CompletionItem{
			Label:      f.Name,
			Kind:       "function",
			Detail:     renderSignature(f),
			InsertText: f.Name + "(",
		})
	}
	for _, o := range spec.Objects {
		items = append(items, CompletionItem{Label: o.Name, Kind: "object", Detail: o.Doc})
	}
	return items
}

// SignatureHelp is the response for a signature help request.
type SignatureHelp struct {
	Label       string   `json:"label"`
	Doc         string   `json:"doc,omitempty"`
	Parameters  []string `json:"parameters"`
	ActiveParam int      `json:"activeParameter"`
}

// Signature resolves signature help at pos. Nil when the cursor is not
// inside a known call.
func (s *DocumentService) Signature(ctx context.Context, uri string, pos script.Position) *SignatureHelp {
	cursorCtx := s.CursorContext(ctx, uri, pos)
	if !cursorCtx.Valid {
		return nil
	}
	callee, found := s.specs.Current().Resolve(splitCallable(cursorCtx.Function))
	if !found {
		return nil
	}

	params := callee.Parameters()
	labels := make([]string, len(params))
	for i, p := range params {
		labels[i] = fmt.Sprintf("%s: %s", p.Name, p.Kind)
	}
	return &SignatureHelp{
		Label:       renderCallableLabel(callee),
		Doc:         callee.Documentation(),
		Parameters:  labels,
		ActiveParam: cursorCtx.ParamIndex,
	}
}

// splitCallable splits "object.member" display names back into lookup parts.
func splitCallable(name string) (object, fn string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func renderSignature(f apispec.FunctionSpec) string {
	return renderCallableLabel(f)
}

func renderCallableLabel(c apispec.Callable) string {
	params := c.Parameters()
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s: %s", p.Name, p.Kind)
	}
	return fmt.Sprintf("%s(%s)", c.CallableName(), strings.Join(parts, ", "))
}

func renderCallable(c apispec.Callable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "```forgescript\n%s\n```", renderCallableLabel(c))
	if doc := c.Documentation(); doc != "" {
		b.WriteString("\n\n")
		b.WriteString(doc)
	}
	return b.String()
}

func renderParam(c apispec.Callable, p apispec.ParamSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "`%s: %s` (parameter of `%s`)", p.Name, p.Kind, c.CallableName())
	if p.Doc != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Doc)
	}
	if p.Picker == apispec.PickerOptions {
		fmt.Fprintf(&b, "\n\nOptions: %s", strings.Join(p.Options, ", "))
	}
	return b.String()
}

// lineAt returns the 0-based line of text, without its newline.
func lineAt(text string, line int) string {
	start := 0
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			return ""
		}
		start += nl + 1
	}
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		return text[start : start+nl]
	}
	return text[start:]
}
