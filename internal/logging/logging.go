package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the process-wide logger and returns it. The level string
// accepts "debug", "info", "warn", or "error" in any case; anything else
// falls back to info.
func Setup(level string) *slog.Logger {
	lvl := slog.LevelInfo
	if level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(strings.TrimSpace(level))); err == nil {
			lvl = parsed
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
