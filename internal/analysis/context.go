package analysis

import (
	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// CursorContext is the resolved call context at a text position: which
// function the cursor is inside, which parameter slot it touches, and the
// raw value currently written there. It is recomputed on every request and
// never cached.
type CursorContext struct {
	Function   string            `json:"function"`
	ParamIndex int               `json:"paramIndex"`
	Param      apispec.ParamSpec `json:"param"`
	Value      string            `json:"value,omitempty"`
	HasValue   bool              `json:"hasValue"`
	Valid      bool              `json:"valid"`
}

// invalid is the zero context; both strategies return it instead of guessing
// when any lookup fails.
var invalid = CursorContext{}

// TreeContext resolves the cursor context from a parsed tree. It walks up
// from the deepest node containing pos to the enclosing call, resolves the
// callee against spec, and locates the argument slot the cursor touches.
func TreeContext(tree *script.Tree, pos script.Position, spec *apispec.Spec) CursorContext {
	path := NodePath(tree, pos)
	if len(path) == 0 {
		return invalid
	}

	// Walk up to the nearest enclosing call. The deepest node may itself be
	// the call when the cursor sits on a parenthesis or comma.
	var call *script.CallExpr
	depth := -1
	for i := len(path) - 1; i >= 0; i-- {
		if c, ok := path[i].(*script.CallExpr); ok {
			// A cursor inside the target name is not inside the
			// argument list of that call.
			if i+1 < len(path) && path[i+1] == c.Target {
				continue
			}
			call = c
			depth = i
			break
		}
	}
	if call == nil {
		return invalid
	}

	object, name, ok := call.TargetName()
	if !ok {
		return invalid
	}
	callee, found := spec.Resolve(object, name)
	if !found {
		return invalid
	}

	index, ok := argSlot(call, path, depth, pos)
	if !ok {
		return invalid
	}
	params := callee.Parameters()
	if index >= len(params) {
		// More cursor slots than declared parameters: invalid, not an error.
		return invalid
	}

	ctx := CursorContext{
		Function:   callee.CallableName(),
		ParamIndex: index,
		Param:      params[index],
		Valid:      true,
	}
	if index < len(call.Args) {
		if v, constant := script.ConstValue(call.Args[index]); constant && v != "" {
			ctx.Value = v
			ctx.HasValue = true
		}
	}
	return ctx
}

// argSlot determines which argument slot of call the cursor occupies. When
// the path descends into an argument, that argument's index wins; when the
// cursor sits on the call itself (at a comma or the opening parenthesis),
// the next unfilled slot is chosen by counting arguments that end before pos.
func argSlot(call *script.CallExpr, path []script.Node, depth int, pos script.Position) (int, bool) {
	if depth+1 < len(path) {
		inner := path[depth+1]
		for i, arg := range call.Args {
			if arg == inner {
				return i, true
			}
		}
		return 0, false
	}

	slot := 0
	for _, arg := range call.Args {
		end := arg.Span().End
		if end.Line < pos.Line || (end.Line == pos.Line && end.Character < pos.Character) {
			slot++
		}
	}
	return slot, true
}
