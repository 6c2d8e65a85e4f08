package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites outside this package only need one
// logging import.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error wraps err under the "error" key. A nil err still emits the key so
// consumers that index on it see the field.
func Error(err error) Attr {
	if err != nil {
		return slog.Any("error", err)
	}
	return slog.String("error", "<nil>")
}

// WarnWithContext emits a warning carrying the event_type, error_hint, and
// impact fields the console and stream handlers key off. Fields the call
// site omits get placeholder values so the line is still complete.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = ensureAttr(attrs, FieldEventType, eventType)
	attrs = ensureAttr(attrs, FieldErrorHint, "check logs for details")
	attrs = ensureAttr(attrs, FieldImpact, "operation completed with warnings")
	logger.Warn(msg, attrArgs(attrs)...)
}

func ensureAttr(attrs []Attr, key, fallback string) []Attr {
	for _, a := range attrs {
		if a.Key == key {
			return attrs
		}
	}
	return append(attrs, String(key, fallback))
}

func attrArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags logger with the shared component field. A nil
// logger falls back to the no-op logger so callers can skip the check.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	base := logger
	if base == nil {
		base = NewNop()
	}
	return base.With(String(FieldComponent, component))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
