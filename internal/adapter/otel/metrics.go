package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "scriptforge"

// Metrics holds all ScriptForge metric instruments.
type Metrics struct {
	Parses        metric.Int64Counter
	ParseFailures metric.Int64Counter
	ParseDuration metric.Float64Histogram
	Triggers      metric.Int64Counter
	SpecReloads   metric.Int64Counter
	Diagnostics   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Parses, err = meter.Int64Counter("scriptforge.parses",
		metric.WithDescription("Number of fresh parses"))
	if err != nil {
		return nil, err
	}

	m.ParseFailures, err = meter.Int64Counter("scriptforge.parses.failed",
		metric.WithDescription("Number of parses that timed out or errored"))
	if err != nil {
		return nil, err
	}

	m.ParseDuration, err = meter.Float64Histogram("scriptforge.parse.duration_seconds",
		metric.WithDescription("Parse duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.Triggers, err = meter.Int64Counter("scriptforge.triggers",
		metric.WithDescription("Number of trigger requests resolved"))
	if err != nil {
		return nil, err
	}

	m.SpecReloads, err = meter.Int64Counter("scriptforge.spec.reloads",
		metric.WithDescription("Number of API spec reloads"))
	if err != nil {
		return nil, err
	}

	m.Diagnostics, err = meter.Int64Counter("scriptforge.diagnostics.published",
		metric.WithDescription("Number of diagnostics publications"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// CacheStats is the slice of the analysis cache the gauges observe.
type CacheStats interface {
	Hits() int64
	Misses() int64
	Len() int
}

// RegisterCacheGauges exposes the analysis cache counters as observable
// instruments. Call once after the cache is constructed.
func RegisterCacheGauges(stats CacheStats) error {
	meter := otel.Meter(meterName)

	hits, err := meter.Int64ObservableCounter("scriptforge.cache.hits",
		metric.WithDescription("Analysis cache hits"))
	if err != nil {
		return err
	}
	misses, err := meter.Int64ObservableCounter("scriptforge.cache.misses",
		metric.WithDescription("Analysis cache misses"))
	if err != nil {
		return err
	}
	entries, err := meter.Int64ObservableGauge("scriptforge.cache.entries",
		metric.WithDescription("Documents currently cached"))
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(hits, stats.Hits())
		o.ObserveInt64(misses, stats.Misses())
		o.ObserveInt64(entries, int64(stats.Len()))
		return nil
	}, hits, misses, entries)
	return err
}
