package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	sfotel "github.com/Strob0t/ScriptForge/internal/adapter/otel"
	"github.com/Strob0t/ScriptForge/internal/analysis"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/eventstream"
)

// Notifier publishes server-initiated notifications (host output stream).
type Notifier interface {
	Notify(method string, params any)
}

// DocumentServiceConfig bundles document lifecycle tuning knobs.
type DocumentServiceConfig struct {
	// DebounceDelay is how long after the last change analysis runs.
	DebounceDelay time.Duration
	// MaxDocumentBytes rejects oversized documents at the boundary.
	MaxDocumentBytes int
}

// DocumentService owns open script documents: open/change/close lifecycle,
// debounced analysis, and diagnostic publication.
type DocumentService struct {
	cfg     DocumentServiceConfig
	cache   *AnalysisCache
	specs   *SpecStore
	guard   *SessionGuard
	notify  Notifier
	events  eventstream.Publisher // optional, nil-safe
	metrics *sfotel.Metrics       // optional, nil-safe

	mu   sync.RWMutex
	docs map[string]*script.Document

	// Debounce analysis per URI: a new keystroke cancels the pending timer
	// and starts a fresh one, so rapid typing collapses into a single pass.
	timers  map[string]*time.Timer
	timerMu sync.Mutex
}

// NewDocumentService creates the document lifecycle service. events may be nil.
func NewDocumentService(cfg DocumentServiceConfig, cache *AnalysisCache, specs *SpecStore, guard *SessionGuard, notify Notifier, events eventstream.Publisher) *DocumentService {
	return &DocumentService{
		cfg:    cfg,
		cache:  cache,
		specs:  specs,
		guard:  guard,
		notify: notify,
		events: events,
		docs:   make(map[string]*script.Document),
		timers: make(map[string]*time.Timer),
	}
}

// SetMetrics attaches metric instruments. Call before the service is used.
func (s *DocumentService) SetMetrics(m *sfotel.Metrics) {
	s.metrics = m
}

// ChangeEvent is one content change: full replacement when Range is nil,
// otherwise an incremental replace of the given range.
type ChangeEvent struct {
	Range *script.Range `json:"range,omitempty"`
	Text  string        `json:"text"`
}

// Open registers a document for conn and schedules its first analysis.
func (s *DocumentService) Open(ctx context.Context, conn, uri, text string, version int) error {
	if err := s.checkURI(uri); err != nil {
		return err
	}
	if len(text) > s.cfg.MaxDocumentBytes {
		return ErrDocumentTooLarge
	}

	s.guard.RegisterDocument(conn, uri)

	s.mu.Lock()
	s.docs[uri] = &script.Document{URI: uri, Text: text, Version: version}
	s.mu.Unlock()

	slog.Debug("document opened", "uri", uri, "version", version, "connection", conn)
	s.scheduleAnalysis(uri)
	return nil
}

// Change applies content changes from conn and schedules analysis. A change
// from a non-owning connection is refused with ErrAccessDenied.
func (s *DocumentService) Change(ctx context.Context, conn, uri string, version int, changes []ChangeEvent) error {
	if err := s.checkURI(uri); err != nil {
		return err
	}
	if !s.guard.ValidateAccess(conn, uri) {
		return ErrAccessDenied
	}

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("change %s: %w", uri, ErrUnknownDocument)
	}
	text := doc.Text
	for _, ch := range changes {
		if ch.Range == nil {
			text = ch.Text
			continue
		}
		next, err := applyRangeChange(text, *ch.Range, ch.Text)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("change %s: %w", uri, err)
		}
		text = next
	}
	if len(text) > s.cfg.MaxDocumentBytes {
		s.mu.Unlock()
		return ErrDocumentTooLarge
	}
	doc.Text = text
	doc.Version = version
	s.mu.Unlock()

	s.scheduleAnalysis(uri)
	return nil
}

// Close removes the document, cancels pending analysis, and clears its
// diagnostics. Refused for non-owners.
func (s *DocumentService) Close(conn, uri string) error {
	if !s.guard.ValidateAccess(conn, uri) {
		return ErrAccessDenied
	}

	s.timerMu.Lock()
	if t, ok := s.timers[uri]; ok {
		t.Stop()
		delete(s.timers, uri)
	}
	s.timerMu.Unlock()

	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()

	s.cache.Invalidate(uri)
	s.publishDiagnostics(uri, nil)
	slog.Debug("document closed", "uri", uri, "connection", conn)
	return nil
}

// Snapshot returns a copy of the document for uri.
func (s *DocumentService) Snapshot(uri string) (script.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return script.Document{}, false
	}
	return *doc, true
}

// scheduleAnalysis starts (or restarts) the debounce timer for uri.
func (s *DocumentService) scheduleAnalysis(uri string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[uri]; ok {
		t.Stop()
	}
	s.timers[uri] = time.AfterFunc(s.cfg.DebounceDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Analyze(ctx, uri); err != nil {
			slog.Warn("analysis failed", "uri", uri, "error", err)
		}
	})
}

// Analyze parses the current document, runs semantic validation when the
// tree is reliable, and publishes diagnostics. A result computed for a
// version that is no longer current is discarded, never published.
func (s *DocumentService) Analyze(ctx context.Context, uri string) error {
	doc, ok := s.Snapshot(uri)
	if !ok {
		return nil // closed while the debounce timer was pending
	}

	tree, syntaxDiags, err := s.cache.GetOrParse(ctx, doc.URI, doc.Text, doc.Version)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ParseFailures.Add(ctx, 1)
		}
		return err
	}

	diags := append([]script.Diagnostic(nil), syntaxDiags...)
	// An unreliable tree must not be semantically analyzed.
	if !script.HasErrors(syntaxDiags) {
		v := analysis.NewValidator(s.specs.Current())
		diags = append(diags, v.Validate(tree)...)
	}

	if current, ok := s.Snapshot(uri); !ok || current.Version != doc.Version {
		return ErrStaleVersion
	}

	s.publishDiagnostics(uri, diags)
	s.publishEvent(ctx, uri, doc.Version, diags)
	if s.metrics != nil {
		s.metrics.Diagnostics.Add(ctx, 1)
	}
	return nil
}

// publishDiagnosticsParams mirrors textDocument/publishDiagnostics.
type publishDiagnosticsParams struct {
	URI         string              `json:"uri"`
	Diagnostics []script.Diagnostic `json:"diagnostics"`
}

func (s *DocumentService) publishDiagnostics(uri string, diags []script.Diagnostic) {
	if diags == nil {
		diags = []script.Diagnostic{}
	}
	s.notify.Notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// publishEvent mirrors a diagnostics summary to the event stream, best-effort.
func (s *DocumentService) publishEvent(ctx context.Context, uri string, version int, diags []script.Diagnostic) {
	if s.events == nil {
		return
	}
	errs := 0
	for _, d := range diags {
		if d.Severity == script.SeverityError {
			errs++
		}
	}
	payload, err := json.Marshal(map[string]any{
		"uri":      uri,
		"version":  version,
		"total":    len(diags),
		"errors":   errs,
		"revision": s.specs.Revision(),
	})
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, eventstream.SubjectDiagnostics, payload); err != nil {
		slog.Debug("diagnostics event publish failed", "uri", uri, "error", err)
	}
}

func (s *DocumentService) checkURI(uri string) error {
	if uri == "" || strings.ContainsAny(uri, " \t\n") {
		return fmt.Errorf("malformed uri %q", uri)
	}
	return nil
}

// applyRangeChange replaces the byte span covered by r with replacement.
func applyRangeChange(text string, r script.Range, replacement string) (string, error) {
	start, err := offsetAt(text, r.Start)
	if err != nil {
		return "", err
	}
	end, err := offsetAt(text, r.End)
	if err != nil {
		return "", err
	}
	if end < start {
		return "", fmt.Errorf("inverted range")
	}
	return text[:start] + replacement + text[end:], nil
}

// offsetAt converts a 0-based position to a byte offset.
func offsetAt(text string, pos script.Position) (int, error) {
	if pos.Line < 0 || pos.Character < 0 {
		return 0, fmt.Errorf("negative position")
	}
	offset := 0
	for line := 0; line < pos.Line; line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("line %d out of range", pos.Line)
		}
		offset += nl + 1
	}
	lineEnd := len(text)
	if nl := strings.IndexByte(text[offset:], '\n'); nl >= 0 {
		lineEnd = offset + nl
	}
	offset += pos.Character
	if offset > lineEnd {
		return 0, fmt.Errorf("character %d out of range on line %d", pos.Character, pos.Line)
	}
	return offset, nil
}
