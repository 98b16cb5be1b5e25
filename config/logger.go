package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a slog.Logger for the environment and level in cfg.
// Production uses JSON handler; otherwise text handler.
// Level may be: debug, info, warn, error (default: info).
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "eventsphere", "env", cfg.Environment)
}
