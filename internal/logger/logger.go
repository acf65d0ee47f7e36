// Package logger provides structured logging setup for ScriptForge.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/ScriptForge/internal/config"
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// With Async enabled, records flow through a queued handler sized from the
// config; the returned Closer flushes it on shutdown. The returned LevelVar
// lets a config reload adjust verbosity without rebuilding the logger.
func New(cfg config.Logging) (*slog.Logger, *slog.LevelVar, Closer) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		queued := NewQueuedHandler(handler, cfg.BufferSize, cfg.Workers)
		handler = queued
		closer = queued
	}

	return slog.New(handler).With("service", cfg.Service), level, closer
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
