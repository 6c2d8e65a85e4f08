package services

import "context"

type ctxKey string

const (
	sessionIDKey ctxKey = "session_id"
	sourceKey    ctxKey = "source"
	groupKey     ctxKey = "group"
	requestIDKey ctxKey = "request_id"
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithSessionID annotates context with the transcode session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withString(ctx, sessionIDKey, id)
}

// SessionIDFromContext extracts the transcode session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sessionIDKey)
}

// WithSource annotates context with the media source URL.
func WithSource(ctx context.Context, source string) context.Context {
	return withString(ctx, sourceKey, source)
}

// SourceFromContext returns the media source URL if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, sourceKey)
}

// WithGroup annotates context with the playlist group name.
func WithGroup(ctx context.Context, group string) context.Context {
	return withString(ctx, groupKey, group)
}

// GroupFromContext returns the playlist group name if present.
func GroupFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, groupKey)
}

// WithRequestID tags ctx with the correlation id assigned to one IPC or
// HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext reports the correlation id when one was assigned.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, requestIDKey)
}
