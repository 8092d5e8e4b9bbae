package infra

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger from config. Level defaults to
// Info when the configured value is unrecognized.
func NewLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
