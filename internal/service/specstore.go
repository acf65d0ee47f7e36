// Package service contains the stateful orchestration layer: the spec store,
// the analysis cache, session and rate guarding, document lifecycle, the
// custom trigger path, path suggestions, and the protocol bridge.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	sfotel "github.com/Strob0t/ScriptForge/internal/adapter/otel"
	"github.com/Strob0t/ScriptForge/internal/adapter/specfile"
	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
)

// SpecStore holds the currently installed API specification. Reads are
// frequent and pointer-copy cheap; reloads are rare, so a single mutex
// guards both. A failed reload leaves the installed spec unchanged.
type SpecStore struct {
	mu       sync.Mutex
	spec     *apispec.Spec
	path     string
	revision int
	metrics  *sfotel.Metrics // optional, nil-safe
}

// NewSpecStore loads the initial specification from path.
func NewSpecStore(path string) (*SpecStore, error) {
	spec, err := specfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("spec store: %w", err)
	}
	return &SpecStore{spec: spec, path: path, revision: 1}, nil
}

// NewSpecStoreWith creates a store around an already validated spec.
// Used by tests and embedded setups without a spec file.
func NewSpecStoreWith(spec *apispec.Spec) *SpecStore {
	return &SpecStore{spec: spec, revision: 1}
}

// SetMetrics attaches metric instruments. Call before the store is shared.
func (s *SpecStore) SetMetrics(m *sfotel.Metrics) {
	s.metrics = m
}

// Current returns the installed spec snapshot. The snapshot is immutable;
// callers may hold it across a reload.
func (s *SpecStore) Current() *apispec.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Revision returns the monotonically increasing install counter.
func (s *SpecStore) Revision() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Reload re-reads the spec file and installs it atomically. On any load or
// validation error the previously installed spec stays in place.
func (s *SpecStore) Reload() error {
	if s.path == "" {
		return fmt.Errorf("spec store: no file configured")
	}
	spec, err := specfile.Load(s.path)
	if err != nil {
		slog.Warn("spec reload rejected", "path", s.path, "error", err)
		return err
	}

	s.mu.Lock()
	s.spec = spec
	s.revision++
	rev := s.revision
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SpecReloads.Add(context.Background(), 1)
	}
	slog.Info("spec reloaded", "path", s.path, "revision", rev,
		"functions", len(spec.Functions), "objects", len(spec.Objects))
	return nil
}
