package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/couchcryptid/metobs-sync/internal/config"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. Every
// record carries the app name and a run id so separate runs can be told apart
// in aggregated logs.
func NewLogger(cfg *config.Config, app string) *slog.Logger {
	return newLogger(os.Stdout, cfg, app, uuid.NewString())
}

func newLogger(w io.Writer, cfg *config.Config, app, runID string) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)

	var h slog.Handler
	switch cfg.LogFormat {
	case "pretty":
		h = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h).With("app", app, "run_id", runID)
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
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
