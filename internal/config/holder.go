package config

import "sync/atomic"

// Holder wraps a Config for concurrent readers with hot reload. A failed
// reload keeps the previous config installed.
type Holder struct {
	current  atomic.Pointer[Config]
	yamlPath string
	flags    CLIFlags
}

// NewHolder creates a holder around an already loaded config. The flags are
// re-applied on every reload so command line overrides survive a SIGHUP.
func NewHolder(cfg *Config, yamlPath string, flags CLIFlags) *Holder {
	h := &Holder{yamlPath: yamlPath, flags: flags}
	h.current.Store(cfg)
	return h
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload re-runs the full load pipeline against the original YAML path,
// including the retained command line overrides.
func (h *Holder) Reload() error {
	cfg := Defaults()
	if err := loadYAML(&cfg, h.yamlPath); err != nil {
		return err
	}
	loadEnv(&cfg)
	applyCLI(&cfg, h.flags)
	if err := validate(&cfg); err != nil {
		return err
	}
	h.current.Store(&cfg)
	return nil
}
