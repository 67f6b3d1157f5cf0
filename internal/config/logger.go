package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON to stdout in production, text
// with source locations in development. LOGGER_LEVEL overrides the default
// level per environment.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
		Level:     logLevel(env),
	}

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// ComponentLogger tags a child logger with the subsystem name used across
// the worker pipelines.
func ComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

func logLevel(env string) slog.Level {
	switch os.Getenv("LOGGER_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
