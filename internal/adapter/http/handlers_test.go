package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/domain/script"
	"github.com/Strob0t/ScriptForge/internal/port/grammar"
	"github.com/Strob0t/ScriptForge/internal/service"
)

type stubParser struct{}

func (stubParser) Parse(_ context.Context, _ string) (grammar.Result, error) {
	return grammar.Result{Tree: &script.Tree{}}, nil
}

func testSpec() *apispec.Spec {
	return &apispec.Spec{
		Functions: []apispec.FunctionSpec{
			{
				Name: "copy_file",
				Params: []apispec.ParamSpec{
					{Name: "source", Kind: apispec.ValueString, Picker: apispec.PickerPath},
					{Name: "dest", Kind: apispec.ValueString, Picker: apispec.PickerPath},
				},
			},
			{
				Name: "set_mode",
				Params: []apispec.ParamSpec{
					{Name: "mode", Kind: apispec.ValueString, Picker: apispec.PickerOptions, Options: []string{"AUTO", "MANUAL"}},
				},
			},
		},
	}
}

// newTestServer wires the REST surface against in-memory services with root
// as the single path suggestion root.
func newTestServer(t *testing.T, root string) *httptest.Server {
	t.Helper()

	specs := service.NewSpecStoreWith(testSpec())
	cache := service.NewAnalysisCache(stubParser{}, service.AnalysisCacheConfig{
		TimeoutFloor: time.Second,
		IdleTTL:      time.Minute,
	})
	paths := service.NewPathService(service.PathServiceConfig{
		Roots:      []string{root},
		MaxResults: 50,
		ListTTL:    time.Minute,
	}, specs, nil)

	h := NewHandlers(specs, paths, cache, nil)
	r := chi.NewRouter()
	MountRoutes(r, h, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["spec_revision"] != float64(1) {
		t.Errorf("spec_revision = %v, want 1", body["spec_revision"])
	}
}

func TestReloadSpecNoFileConfigured(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	resp, err := http.Post(srv.URL+"/api/v1/spec/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reload: %v", err)
	}
	defer resp.Body.Close()

	// The store was built without a file path, so reload must be refused
	// and the installed spec must survive.
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestSuggestPaths(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"conf/app.yaml", "conf/db.yaml", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	srv := newTestServer(t, root)

	resp, err := http.Get(srv.URL + "/api/v1/paths/suggest?function=copy_file&param=0&value=conf/")
	if err != nil {
		t.Fatalf("GET suggest: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"conf/app.yaml", "conf/db.yaml"}
	if len(body.Suggestions) != len(want) {
		t.Fatalf("suggestions = %v, want %v", body.Suggestions, want)
	}
	for i := range want {
		if body.Suggestions[i] != want[i] {
			t.Errorf("suggestions[%d] = %q, want %q", i, body.Suggestions[i], want[i])
		}
	}
}

func TestSuggestPathsValidation(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	tests := []struct {
		name  string
		query string
	}{
		{"missing function", ""},
		{"unknown function", "function=nope"},
		{"bad param", "function=copy_file&param=-1"},
		{"non path param", "function=set_mode&param=0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/v1/paths/suggest?" + tt.query)
			if err != nil {
				t.Fatalf("GET suggest: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}
