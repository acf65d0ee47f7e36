// Package script defines domain types for ForgeScript documents and their
// parsed form: positions, ranges, diagnostics, and syntax tree nodes. These
// types are transport-independent and shared across the analysis, service,
// and adapter layers.
package script

// Position in a document (0-based line and character).
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether pos falls inside the range. A position on the
// start line must be at or after the start character; on the end line at or
// before the end character; lines strictly between are always contained.
func (r Range) Contains(pos Position) bool {
	if pos.Line < r.Start.Line || pos.Line > r.End.Line {
		return false
	}
	if pos.Line == r.Start.Line && pos.Character < r.Start.Character {
		return false
	}
	if pos.Line == r.End.Line && pos.Character > r.End.Character {
		return false
	}
	return true
}

// DiagnosticSeverity mirrors LSP DiagnosticSeverity.
const (
	SeverityError   = 1
	SeverityWarning = 2
	SeverityInfo    = 3
)

// Diagnostic represents a syntax or semantic finding in a document.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"` // 1=Error, 2=Warning, 3=Info
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// Diagnostic source tags.
const (
	SourceSyntax   = "forgescript"
	SourceSemantic = "scriptforge"
)

// HasErrors reports whether any diagnostic in diags has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Document is an open, versioned script buffer identified by URI.
type Document struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int    `json:"version"`
}
