package logger

import (
	"log/slog"
	"os"
)

// New returns the service wide structured logger. LOG_LEVEL selects the
// minimum level; anything unrecognised falls back to info.
func New() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
