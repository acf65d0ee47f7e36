// Package grammar defines the port for the ForgeScript grammar. The parser
// is an external collaborator: it turns source text into a syntax tree plus
// syntax diagnostics and is consumed as a black box.
package grammar

import (
	"context"

	"github.com/Strob0t/ScriptForge/internal/domain/script"
)

// Result is one complete parse outcome. Diagnostics are already normalized
// to 0-based coordinates.
type Result struct {
	Tree        *script.Tree
	Diagnostics []script.Diagnostic
}

// Parser produces a syntax tree and syntax diagnostics for source text.
type Parser interface {
	Parse(ctx context.Context, text string) (Result, error)
}
