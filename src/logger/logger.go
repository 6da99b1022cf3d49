package logger

import (
	"log/slog"
	"os"
	"strings"
)

// L is the application-wide structured logger. It defaults to JSON at
// info level until InitLogger is called with the configured level.
var L *slog.Logger

func init() {
	L = newLogger(slog.LevelInfo)
}

// InitLogger configures the global logger with the given level name
// (debug, info, warn, error).
func InitLogger(level string) {
	L = newLogger(parseLevel(level))
	slog.SetDefault(L)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
