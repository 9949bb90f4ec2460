// Package logging builds the structured loggers used across zappy. It wraps
// log/slog so every component receives a *slog.Logger configured from the
// project config (level and output format).
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Log levels accepted in configuration.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Output formats accepted in configuration.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w at the given level. format selects the
// handler: "json" for slog.JSONHandler, anything else for slog.TextHandler.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level, case-insensitively.
// Unknown names map to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn, "WARNING":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
