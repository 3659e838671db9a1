package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const formatJSON = "json"

// NewLogger creates a text slog.Logger on stdout based on LOG_LEVEL.
func NewLogger(levelString string) *slog.Logger {
	return NewLoggerWithFormat(levelString, "", os.Stdout)
}

// NewLoggerWithFormat creates a slog.Logger writing to output. A format of "json" selects the
// JSON handler; anything else falls back to text.
func NewLoggerWithFormat(levelString string, format string, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stdout
	}
	options := &slog.HandlerOptions{Level: parseLevel(levelString)}
	if strings.EqualFold(strings.TrimSpace(format), formatJSON) {
		return slog.New(slog.NewJSONHandler(output, options))
	}
	return slog.New(slog.NewTextHandler(output, options))
}

func parseLevel(levelString string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelString)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
