package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// hubHandler publishes every record into the hub before passing it to
// the wrapped handler, so IPC and HTTP log readers see the same lines the
// console does.
type hubHandler struct {
	next slog.Handler
	hub  *StreamHub
	// attrs accumulated through WithAttrs; slog only replays them to the
	// wrapped handler, so the hub copy has to carry them itself.
	attrs []slog.Attr
}

func newHubHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub != nil && next != nil {
		return &hubHandler{next: next, hub: hub}
	}
	return next
}

func (h *hubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *hubHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(recordToEvent(record, h.attrs))
	return h.next.Handle(ctx, record.Clone())
}

func (h *hubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &hubHandler{next: h.next.WithAttrs(attrs), hub: h.hub, attrs: slices.Concat(h.attrs, attrs)}
}

func (h *hubHandler) WithGroup(name string) slog.Handler {
	return &hubHandler{next: h.next.WithGroup(name), hub: h.hub, attrs: h.attrs}
}

// recordToEvent flattens a record into a LogEvent. Identity keys land in
// their named fields; everything else goes to the Fields map. Logger-level
// attrs are applied first so the call site can override them.
func recordToEvent(record slog.Record, inherited []slog.Attr) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     levelLabel(record.Level),
		Message:   strings.TrimSpace(record.Message),
		Fields:    map[string]string{},
	}

	assign := func(attr slog.Attr) {
		switch key := strings.TrimSpace(attr.Key); key {
		case "":
		case FieldComponent:
			evt.Component = attrString(attr.Value)
		case FieldSessionID:
			evt.SessionID = attrString(attr.Value)
		case FieldSource:
			evt.Source = attrString(attr.Value)
		case FieldGroup:
			evt.Group = attrString(attr.Value)
		case FieldCorrelationID:
			evt.CorrelationID = attrString(attr.Value)
		default:
			evt.Fields[key] = attrString(attr.Value)
		}
	}
	for _, attr := range inherited {
		assign(attr)
	}

	var rest []kv
	record.Attrs(func(attr slog.Attr) bool {
		assign(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			rest = append(rest, kv{key: key, value: attr.Value})
		}
		return true
	})

	if info, _ := selectInfoFields(rest, infoAttrLimit, false); len(info) > 0 {
		evt.Details = make([]DetailField, 0, len(info))
		for _, field := range info {
			evt.Details = append(evt.Details, DetailField{Label: field.label, Value: field.value})
		}
	}
	return evt
}
