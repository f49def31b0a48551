package logger

import (
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

func Init(env string) {
	InitWithLevel(env, "")
}

// InitWithLevel is Init with an explicit level name (debug, info, warn,
// error). An empty level keeps the per-environment default.
func InitWithLevel(env, level string) {
	InitWithFormat(env, level, "")
}

// InitWithFormat also lets the handler be forced to "json" or "text"; any
// other value picks JSON in production and text elsewhere.
func InitWithFormat(env, level, format string) {
	var handler slog.Handler

	fallback := slog.LevelDebug
	if env == "production" {
		fallback = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level, fallback)}

	switch {
	case format == "json", format != "text" && env == "production":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
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

func parseLevel(level string, fallback slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
