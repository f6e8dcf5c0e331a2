package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger from LOG_LEVEL. Production
// defaults to warnings and up; relay traffic only shows at debug.
func Init() {
	level := slog.LevelWarn

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
