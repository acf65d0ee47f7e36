package analysis

import (
	"fmt"
	"strings"

	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// Validator checks function calls in a syntax tree against an API
// specification and produces semantic diagnostics. Callers must only run it
// on trees whose parse produced no error-severity syntax diagnostics.
type Validator struct {
	spec *apispec.Spec
}

// NewValidator creates a validator bound to one spec snapshot.
func NewValidator(spec *apispec.Spec) *Validator {
	return &Validator{spec: spec}
}

// Validate walks the whole tree and returns semantic diagnostics for every
// call site, including calls nested inside argument expressions.
func (v *Validator) Validate(tree *script.Tree) []script.Diagnostic {
	var diags []script.Diagnostic
	for _, stmt := range tree.Statements {
		diags = v.walk(stmt, diags)
	}
	return diags
}

func (v *Validator) walk(n script.Node, diags []script.Diagnostic) []script.Diagnostic {
	if call, ok := n.(*script.CallExpr); ok {
		diags = v.checkCall(call, diags)
	}
	for _, child := range n.Children() {
		diags = v.walk(child, diags)
	}
	return diags
}

// checkCall validates one call site. An unknown callee produces a single
// diagnostic and ends checking for this call; a known callee gets an arity
// check plus per-argument option checks.
func (v *Validator) checkCall(call *script.CallExpr, diags []script.Diagnostic) []script.Diagnostic {
	object, name, ok := call.TargetName()
	if !ok {
		// Computed call target; nothing to resolve statically.
		return diags
	}

	callee, found := v.spec.Resolve(object, name)
	if !found {
		display := name
		if object != "" {
			display = object + "." + name
		}
		return append(diags, script.Diagnostic{
			Range:    call.Span(),
			Severity: script.SeverityError,
			Source:   script.SourceSemantic,
			Message:  fmt.Sprintf("unknown function: %s", display),
		})
	}

	params := callee.Parameters()
	if len(call.Args) != len(params) {
		diags = append(diags, script.Diagnostic{
			Range:    call.Span(),
			Severity: script.SeverityError,
			Source:   script.SourceSemantic,
			Message: fmt.Sprintf("%s expects %d argument(s), got %d",
				callee.CallableName(), len(params), len(call.Args)),
		})
	}

	// Option checks run for every argument position present in both the
	// call and the spec, independent of an arity mismatch.
	for i, arg := range call.Args {
		if i >= len(params) {
			break
		}
		p := params[i]
		if p.Picker != apispec.PickerOptions {
			continue
		}
		value, constant := script.ConstValue(arg)
		if !constant {
			continue
		}
		if !p.AllowsOption(value) {
			diags = append(diags, script.Diagnostic{
				Range:    arg.Span(),
				Severity: script.SeverityError,
				Source:   script.SourceSemantic,
				Message: fmt.Sprintf("invalid value %q for %s: allowed options are %s",
					value, p.Name, strings.Join(p.Options, ", ")),
			})
		}
	}

	return diags
}
