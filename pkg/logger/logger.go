package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

func Init(env string) {
	if env == "production" {
		Configure(os.Stdout, "info", "json")
		return
	}
	Configure(os.Stdout, "debug", "text")
}

// Configure installs the process logger with an explicit level and format,
// as read from observability.logging.
func Configure(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func LoggerWrapper() *slog.Logger {
	if defaultLogger == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		Init("development")
	}
	return defaultLogger
}

// Operator returns the logger used for alerts that need a human, tagged so
// log shipping can route them separately.
func Operator() *slog.Logger {
	return LoggerWrapper().With("channel", "operator_alert")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
