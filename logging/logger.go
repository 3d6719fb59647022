// Package logging provides structured logging configuration using log/slog.
//
// The ingestion pipeline logs specification errors and value-translation
// warnings through the default slog logger; Setup configures that logger
// once, at program start.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing, "text" format in
// development for human readability.
func Setup(level, format string) {
	lvl := parseLevel(level)

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl})
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step conversion.
//
// Usage:
//
//	convLogger := logging.WithFields("source", path, "layout", "wide")
//	convLogger.Info("conversion started")
func WithFields(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
