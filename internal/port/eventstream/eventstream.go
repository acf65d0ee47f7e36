// Package eventstream defines the port for publishing analysis events to an
// external stream for fleet tooling. Publishing is best-effort: the analysis
// path never blocks on it.
package eventstream

import "context"

// Subject constants for published events.
const (
	SubjectDiagnostics = "scripts.diagnostics"
	SubjectSpecReload  = "scripts.spec_reloaded"
)

// Publisher sends events to the external stream.
type Publisher interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close shuts down the connection.
	Close() error
}
