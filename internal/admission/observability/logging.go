// Package observability provides logging and metrics hooks.
package observability

import (
	"io"
	"log/slog"
	"strings"
)

// Logger provides structured logging hooks.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// SlogLogger logs JSON through log/slog.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger constructs a JSON logger writing to w.
func NewSlogLogger(w io.Writer, level slog.Level) *SlogLogger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{l: slog.New(handler)}
}

// ParseLevel converts a level name to an slog.Level. Unknown values
// default to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Info logs an info message.
func (s *SlogLogger) Info(msg string, fields map[string]any) {
	if s == nil || s.l == nil {
		return
	}
	s.l.Info(msg, attrs(fields)...)
}

// Error logs an error message.
func (s *SlogLogger) Error(msg string, fields map[string]any) {
	if s == nil || s.l == nil {
		return
	}
	s.l.Error(msg, attrs(fields)...)
}

func attrs(fields map[string]any) []any {
	out := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		out = append(out, key, value)
	}
	return out
}

// NopLogger discards all messages.
type NopLogger struct{}

// Info implements Logger.
func (NopLogger) Info(msg string, fields map[string]any) {}

// Error implements Logger.
func (NopLogger) Error(msg string, fields map[string]any) {}
