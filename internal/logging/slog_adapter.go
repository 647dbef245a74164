// Package logging sets up slog for the binaries and bridges it to the
// Temporal SDK logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.temporal.io/sdk/log"
)

// New returns a logger writing to w. format is "json" or "text"; level is
// one of debug, info, warn, error and defaults to info.
func New(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogAdapter adapts a *slog.Logger to go.temporal.io/sdk/log.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

var (
	_ log.Logger     = (*SlogAdapter)(nil)
	_ log.WithLogger = (*SlogAdapter)(nil)
)

// NewSlogAdapter wraps l. A nil l uses slog.Default.
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{logger: l}
}

func (s *SlogAdapter) Debug(msg string, keyvals ...interface{}) {
	s.logger.Debug(msg, toAttrs(keyvals)...)
}

func (s *SlogAdapter) Info(msg string, keyvals ...interface{}) {
	s.logger.Info(msg, toAttrs(keyvals)...)
}

func (s *SlogAdapter) Warn(msg string, keyvals ...interface{}) {
	s.logger.Warn(msg, toAttrs(keyvals)...)
}

func (s *SlogAdapter) Error(msg string, keyvals ...interface{}) {
	s.logger.Error(msg, toAttrs(keyvals)...)
}

// With returns an adapter that adds keyvals to every entry. The SDK uses it
// to attach workflow and activity identifiers.
func (s *SlogAdapter) With(keyvals ...interface{}) log.Logger {
	return &SlogAdapter{logger: s.logger.With(toAttrs(keyvals)...)}
}

// toAttrs converts alternating key-value pairs to slog.Attr args.
func toAttrs(keyvals []interface{}) []any {
	if len(keyvals) == 0 {
		return nil
	}
	attrs := make([]any, 0, len(keyvals)/2+1)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		attrs = append(attrs, slog.Any(key, keyvals[i+1]))
	}
	if len(keyvals)%2 != 0 {
		attrs = append(attrs, slog.Any("MISSING_VALUE", keyvals[len(keyvals)-1]))
	}
	return attrs
}
