package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
	"github.com/Strob0t/ScriptForge/internal/port/cache"
)

// PathServiceConfig bundles the suggestion knobs.
type PathServiceConfig struct {
	// Roots is the allow-list of directories suggestions may come from.
	Roots []string
	// MaxResults caps the returned list.
	MaxResults int
	// ListTTL is how long directory listings stay cached.
	ListTTL time.Duration
}

// PathService computes file path suggestions for path-picker parameters.
// Listings only ever happen under the allow-listed roots, and traversal
// sequences are stripped from caller-supplied fragments before use.
type PathService struct {
	cfg      PathServiceConfig
	specs    *SpecStore
	listings cache.Cache // optional, nil-safe
}

// NewPathService creates the suggestion service. listings may be nil.
func NewPathService(cfg PathServiceConfig, specs *SpecStore, listings cache.Cache) *PathService {
	return &PathService{cfg: cfg, specs: specs, listings: listings}
}

// Suggest returns up to MaxResults relative paths matching the partial value
// of the given path-picker parameter, ordered lexically.
func (p *PathService) Suggest(ctx context.Context, function string, paramIndex int, partial string) ([]string, error) {
	callee, found := p.specs.Current().Resolve(splitCallable(function))
	if !found {
		return nil, fmt.Errorf("suggest: unknown function %q", function)
	}
	params := callee.Parameters()
	if paramIndex < 0 || paramIndex >= len(params) {
		return nil, fmt.Errorf("suggest: parameter index %d out of range for %s", paramIndex, callee.CallableName())
	}
	param := params[paramIndex]
	if param.Picker != apispec.PickerPath {
		return nil, fmt.Errorf("suggest: %s parameter %s is not a path picker", callee.CallableName(), param.Name)
	}

	partial = sanitizeFragment(partial)
	dir, prefix := path.Split(partial)

	var results []string
	for _, root := range p.cfg.Roots {
		base := filepath.Join(root, filepath.FromSlash(sanitizeFragment(param.BasePath)))
		entries, err := p.list(ctx, filepath.Join(base, filepath.FromSlash(dir)))
		if err != nil {
			continue // unreadable root: skip, never fail the whole request
		}
		for _, name := range entries {
			if prefix != "" && !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
				continue
			}
			// dir is empty or slash-terminated; plain concatenation keeps
			// the trailing slash on directory entries.
			results = append(results, dir+name)
		}
	}

	sort.Strings(results)
	results = dedupe(results)
	if len(results) > p.cfg.MaxResults {
		results = results[:p.cfg.MaxResults]
	}
	return results, nil
}

// list returns the entry names of dir, via the listing cache when available.
// Directories get a trailing slash so pickers can descend.
func (p *PathService) list(ctx context.Context, dir string) ([]string, error) {
	key := "paths:" + dir
	if p.listings != nil {
		if data, ok, err := p.listings.Get(ctx, key); err == nil && ok {
			var names []string
			if err := json.Unmarshal(data, &names); err == nil {
				return names, nil
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}

	if p.listings != nil {
		if data, err := json.Marshal(names); err == nil {
			_ = p.listings.Set(ctx, key, data, p.cfg.ListTTL)
		}
	}
	return names, nil
}

// sanitizeFragment strips directory-traversal sequences and absolute
// prefixes from a caller-supplied path fragment.
func sanitizeFragment(fragment string) string {
	fragment = strings.ReplaceAll(fragment, "\\", "/")
	parts := strings.Split(fragment, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	clean := strings.Join(kept, "/")
	// Preserve the "still typing a directory" shape of the fragment.
	if strings.HasSuffix(fragment, "/") && clean != "" {
		clean += "/"
	}
	return clean
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
