package logging

import (
	"context"
	"log/slog"
)

// FieldRunID is the structured logging key identifying a single daemon run.
const FieldRunID = "run_id"

// runTagger stamps every record with the daemon run ID so log files that
// survive a restart stay attributable to the run that wrote them.
type runTagger struct {
	next  slog.Handler
	runID string
}

func newRunIDHandler(next slog.Handler, runID string) slog.Handler {
	if next == nil {
		return noopHandler{}
	}
	return &runTagger{next: next, runID: runID}
}

func (h *runTagger) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *runTagger) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.next.Handle(ctx, record)
}

func (h *runTagger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runTagger{next: h.next.WithAttrs(attrs), runID: h.runID}
}

func (h *runTagger) WithGroup(name string) slog.Handler {
	return &runTagger{next: h.next.WithGroup(name), runID: h.runID}
}
