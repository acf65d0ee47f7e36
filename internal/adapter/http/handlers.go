// Package http provides the REST surface: health, spec reload, and path
// suggestions. Editor protocol traffic does not flow through here; it rides
// the WebSocket.
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Strob0t/ScriptForge/internal/port/broadcast"
	"github.com/Strob0t/ScriptForge/internal/service"
)

// Handlers bundles the services the REST endpoints touch.
type Handlers struct {
	specs *service.SpecStore
	paths *service.PathService
	cache *service.AnalysisCache
	hub   broadcast.Broadcaster // optional, nil-safe

	started time.Time
}

// NewHandlers creates the REST handler set. hub may be nil.
func NewHandlers(specs *service.SpecStore, paths *service.PathService, cache *service.AnalysisCache, hub broadcast.Broadcaster) *Handlers {
	return &Handlers{
		specs:   specs,
		paths:   paths,
		cache:   cache,
		hub:     hub,
		started: time.Now(),
	}
}

// Healthz reports liveness plus a few cheap runtime figures.
func (h *Handlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"spec_revision":  h.specs.Revision(),
		"cache_entries":  h.cache.Len(),
		"cache_hits":     h.cache.Hits(),
		"cache_misses":   h.cache.Misses(),
	})
}

type specReloadedPayload struct {
	Revision int `json:"revision"`
}

// ReloadSpec re-reads the API spec file. A rejected reload keeps the old
// spec installed and returns 422 with the validation error.
func (h *Handlers) ReloadSpec(w http.ResponseWriter, r *http.Request) {
	if err := h.specs.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rev := h.specs.Revision()
	if h.hub != nil {
		h.hub.BroadcastEvent(r.Context(), "spec.reloaded", specReloadedPayload{Revision: rev})
	}
	writeJSON(w, http.StatusOK, map[string]any{"revision": rev})
}

// SuggestPaths serves path picker completions.
// GET /api/v1/paths/suggest?function=copy_file&param=0&value=conf/
func (h *Handlers) SuggestPaths(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	function := q.Get("function")
	if !requireField(w, function, "function") {
		return
	}

	paramIndex := 0
	if raw := q.Get("param"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "param must be a non-negative integer")
			return
		}
		paramIndex = n
	}

	suggestions, err := h.paths.Suggest(r.Context(), function, paramIndex, q.Get("value"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
