package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "scriptforge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SCRIPTFORGE_PORT")
	setString(&cfg.Server.CORSOrigin, "SCRIPTFORGE_CORS_ORIGIN")
	setString(&cfg.Spec.Path, "SCRIPTFORGE_SPEC_PATH")
	setDuration(&cfg.Parse.TimeoutFloor, "SCRIPTFORGE_PARSE_TIMEOUT_FLOOR")
	setDuration(&cfg.Parse.TimeoutPerKB, "SCRIPTFORGE_PARSE_TIMEOUT_PER_KB")
	setDuration(&cfg.Parse.TimeoutMax, "SCRIPTFORGE_PARSE_TIMEOUT_MAX")
	setInt(&cfg.Parse.MaxDocumentBytes, "SCRIPTFORGE_MAX_DOCUMENT_BYTES")
	setDuration(&cfg.Parse.DebounceDelay, "SCRIPTFORGE_DEBOUNCE_DELAY")
	setDuration(&cfg.Cache.SweepInterval, "SCRIPTFORGE_CACHE_SWEEP_INTERVAL")
	setDuration(&cfg.Cache.IdleTTL, "SCRIPTFORGE_CACHE_IDLE_TTL")
	setInt64(&cfg.Cache.ListingMaxBytes, "SCRIPTFORGE_CACHE_LISTING_MAX_BYTES")
	setInt(&cfg.Rate.Capacity, "SCRIPTFORGE_RATE_CAPACITY")
	setDuration(&cfg.Rate.Interval, "SCRIPTFORGE_RATE_INTERVAL")
	setStrings(&cfg.Paths.Roots, "SCRIPTFORGE_PATH_ROOTS")
	setInt(&cfg.Paths.MaxResults, "SCRIPTFORGE_PATH_MAX_RESULTS")
	setDuration(&cfg.Paths.ListTTL, "SCRIPTFORGE_PATH_LIST_TTL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setBool(&cfg.NATS.Enabled, "SCRIPTFORGE_NATS_ENABLED")
	setInt(&cfg.NATS.BreakerFailures, "SCRIPTFORGE_NATS_BREAKER_FAILURES")
	setDuration(&cfg.NATS.BreakerCooldown, "SCRIPTFORGE_NATS_BREAKER_COOLDOWN")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Logging.Level, "SCRIPTFORGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "SCRIPTFORGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "SCRIPTFORGE_LOG_ASYNC")
	setInt(&cfg.Logging.BufferSize, "SCRIPTFORGE_LOG_BUFFER_SIZE")
	setInt(&cfg.Logging.Workers, "SCRIPTFORGE_LOG_WORKERS")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Spec.Path == "" {
		return errors.New("spec.path is required")
	}
	if cfg.Parse.TimeoutFloor <= 0 {
		return errors.New("parse.timeout_floor must be positive")
	}
	if cfg.Parse.TimeoutMax < cfg.Parse.TimeoutFloor {
		return errors.New("parse.timeout_max must be >= parse.timeout_floor")
	}
	if cfg.Parse.MaxDocumentBytes < 1 {
		return errors.New("parse.max_document_bytes must be >= 1")
	}
	if cfg.Rate.Capacity < 1 {
		return errors.New("rate.capacity must be >= 1")
	}
	if cfg.Rate.Interval <= 0 {
		return errors.New("rate.interval must be positive")
	}
	if len(cfg.Paths.Roots) == 0 {
		return errors.New("paths.roots must not be empty")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if cfg.NATS.Enabled && (cfg.NATS.BreakerFailures < 1 || cfg.NATS.BreakerCooldown <= 0) {
		return errors.New("nats.breaker_failures must be >= 1 and nats.breaker_cooldown positive")
	}
	if cfg.Logging.Async && (cfg.Logging.BufferSize < 1 || cfg.Logging.Workers < 1) {
		return errors.New("logging.buffer_size and logging.workers must be >= 1 for async logging")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStrings splits a comma-separated env value into a slice.
func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
