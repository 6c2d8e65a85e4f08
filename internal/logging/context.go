package logging

import (
	"context"
	"log/slog"

	"caster/internal/services"
)

// Keys for the identity fields every subsystem shares. Handlers key their
// display logic off these, so emit them rather than ad-hoc variants.
const (
	// FieldComponent names the subsystem emitting a record.
	FieldComponent = "component"
	// FieldSessionID identifies one transcoder session.
	FieldSessionID = "session_id"
	// FieldSource is the media source URL feeding a session.
	FieldSource = "source"
	// FieldGroup is the playlist group a session plays from.
	FieldGroup = "group"
	// FieldCorrelationID ties log lines back to the API request that caused them.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags anomalies that should stand out in structured output.
	FieldAlert = "alert"
)

// ContextFields pulls the session, source, group, and request identities out
// of ctx as slog attributes. Absent values contribute nothing.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]slog.Attr, 0, 4)
	for _, probe := range []struct {
		key    string
		lookup func(context.Context) (string, bool)
	}{
		{FieldSessionID, services.SessionIDFromContext},
		{FieldSource, services.SourceFromContext},
		{FieldGroup, services.GroupFromContext},
		{FieldCorrelationID, services.RequestIDFromContext},
	} {
		if value, ok := probe.lookup(ctx); ok {
			attrs = append(attrs, slog.String(probe.key, value))
		}
	}
	return attrs
}

// WithContext returns logger carrying whatever identity fields ctx holds.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	fields := ContextFields(ctx)
	if logger == nil {
		logger = NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrArgs(fields)...)
}
