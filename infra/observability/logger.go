// Package observability wires the ambient logging and tracing stack.
package observability

import (
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// LoggerConfig selects the slog handler.
type LoggerConfig struct {
	Level  string
	Format string
	// OTEL routes records through the OpenTelemetry slog bridge instead of
	// the local stdout handler.
	OTEL bool
	// Scope names the bridge logger, typically the service name.
	Scope string
}

// NewLogger builds the root logger plus the level var used for hot reload.
func NewLogger(cfg LoggerConfig) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level))

	var handler slog.Handler
	switch {
	case cfg.OTEL:
		handler = otelslog.NewHandler(cfg.Scope)
	case strings.EqualFold(cfg.Format, "json"):
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler), level
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
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
