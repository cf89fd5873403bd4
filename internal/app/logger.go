package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production always logs JSON; other
// environments get the text handler unless LOG_FORMAT=json forces it.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
