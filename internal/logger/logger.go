// Package logger builds the structured slog logger used across usertags.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// Config holds logger configuration.
type Config struct {
	Writer    io.Writer
	Format    string
	Level     slog.Level
	AddSource bool
}

// New creates a logger with the given configuration.
// Writer defaults to stderr so MCP stdio traffic on stdout stays clean.
func New(cfg Config) *slog.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, formatJSON) {
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Writer, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything. Used by tests and by
// callers that pass a nil logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel converts a string to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat normalizes a configured format string.
func ParseFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), formatJSON) {
		return formatJSON
	}
	return formatText
}
