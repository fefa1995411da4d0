package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"claimdesk/internal/platform/config"
)

// New returns a structured logger writing to stdout.
func New(cfg config.LogConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter builds the logger on w. Unknown levels fall back to info.
func NewWithWriter(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
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
