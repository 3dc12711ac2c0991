package fsx

import (
	"context"
	"log/slog"
)

// Logger is a minimal logging interface accepted by the SDK.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// SlogLogger adapts a *slog.Logger to the SDK Logger interface.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, fields map[string]any) {
	s.log(slog.LevelDebug, msg, fields)
}

func (s *SlogLogger) Info(msg string, fields map[string]any) {
	s.log(slog.LevelInfo, msg, fields)
}

func (s *SlogLogger) Warn(msg string, fields map[string]any) {
	s.log(slog.LevelWarn, msg, fields)
}

func (s *SlogLogger) Error(msg string, fields map[string]any) {
	s.log(slog.LevelError, msg, fields)
}

func (s *SlogLogger) log(level slog.Level, msg string, fields map[string]any) {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	s.l.Log(context.Background(), level, msg, attrs...)
}
