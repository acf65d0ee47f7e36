// Package config provides hierarchical configuration loading for ScriptForge.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the ScriptForge service.
type Config struct {
	Server    Server    `yaml:"server"`
	Spec      Spec      `yaml:"spec"`
	Parse     Parse     `yaml:"parse"`
	Cache     Cache     `yaml:"cache"`
	Rate      Rate      `yaml:"rate"`
	Paths     Paths     `yaml:"paths"`
	NATS      NATS      `yaml:"nats"`
	Telemetry Telemetry `yaml:"telemetry"`
	Logging   Logging   `yaml:"logging"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Spec holds API specification file configuration.
type Spec struct {
	Path string `yaml:"path"`
}

// Parse holds parse budget and document limits.
type Parse struct {
	// TimeoutFloor is the minimum parse budget regardless of size.
	TimeoutFloor time.Duration `yaml:"timeout_floor"`
	// TimeoutPerKB adds budget per KiB of source.
	TimeoutPerKB time.Duration `yaml:"timeout_per_kb"`
	// TimeoutMax caps the budget for pathological documents.
	TimeoutMax time.Duration `yaml:"timeout_max"`
	// MaxDocumentBytes rejects oversized documents at the boundary.
	MaxDocumentBytes int `yaml:"max_document_bytes"`
	// DebounceDelay is how long after the last keystroke analysis runs.
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// Cache holds analysis and listing cache configuration.
type Cache struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	// ListingMaxBytes bounds the directory listing cache.
	ListingMaxBytes int64 `yaml:"listing_max_bytes"`
}

// Rate holds per-connection token bucket configuration.
type Rate struct {
	Capacity int           `yaml:"capacity"`
	Interval time.Duration `yaml:"interval"`
}

// Paths holds path suggestion configuration.
type Paths struct {
	Roots      []string      `yaml:"roots"`
	MaxResults int           `yaml:"max_results"`
	ListTTL    time.Duration `yaml:"list_ttl"`
}

// NATS holds event stream configuration. Publishing is disabled when
// Enabled is false. The breaker fields tune how the publisher isolates a
// down broker: BreakerFailures consecutive publish failures open the
// circuit for BreakerCooldown.
type NATS struct {
	URL             string        `yaml:"url"`
	Enabled         bool          `yaml:"enabled"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// Telemetry holds OTLP metrics configuration. Empty endpoint disables export.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
}

// Logging holds structured logging configuration. BufferSize and Workers
// size the queued handler and only apply when Async is set.
type Logging struct {
	Level      string `yaml:"level"`
	Service    string `yaml:"service"`
	Async      bool   `yaml:"async"`
	BufferSize int    `yaml:"buffer_size"`
	Workers    int    `yaml:"workers"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Spec: Spec{
			Path: "apispec.yaml",
		},
		Parse: Parse{
			TimeoutFloor:     500 * time.Millisecond,
			TimeoutPerKB:     2 * time.Millisecond,
			TimeoutMax:       5 * time.Second,
			MaxDocumentBytes: 4 << 20,
			DebounceDelay:    300 * time.Millisecond,
		},
		Cache: Cache{
			SweepInterval:   time.Minute,
			IdleTTL:         30 * time.Minute,
			ListingMaxBytes: 8 << 20,
		},
		Rate: Rate{
			Capacity: 50,
			Interval: time.Second,
		},
		Paths: Paths{
			Roots:      []string{"."},
			MaxResults: 50,
			ListTTL:    10 * time.Second,
		},
		NATS: NATS{
			URL:             "nats://localhost:4222",
			Enabled:         false,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Logging: Logging{
			Level:      "info",
			Service:    "scriptforge",
			BufferSize: 4096,
			Workers:    1,
		},
	}
}
