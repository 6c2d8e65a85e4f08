package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as operator-facing console lines: a
// timestamp/level/component header followed by indented field bullets.
// Info-level output is curated; debug shows everything.
type consoleHandler struct {
	out       io.Writer
	level     *slog.LevelVar
	addSource bool

	mu     sync.Mutex
	attrs  []slog.Attr
	groups []string
	// seenInfo remembers the last bullet values printed per subject so
	// steady-state progress lines do not repeat unchanged fields.
	seenInfo map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: w, level: lvl, addSource: addSource, seenInfo: make(map[string]map[string]string)}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// lineHeader carries everything the first output line needs.
type lineHeader struct {
	ts        time.Time
	level     slog.Level
	component string
	sessionID string
	group     string
	message   string
	src       *slog.Source
}

func (h *consoleHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.Enabled(ctx, record.Level) {
		return nil
	}

	kvs := flattenAttrs(nil, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		kvs = flattenAttr(kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKV(kvs)

	hdr := lineHeader{ts: record.Time, level: record.Level, message: strings.TrimSpace(record.Message)}
	if hdr.ts.IsZero() {
		hdr.ts = time.Now()
	}
	if hdr.message == "" {
		hdr.message = "(no message)"
	}
	if h.addSource {
		hdr.src = record.Source()
	}

	// The component never renders as a bullet; session and group do stay
	// in the list so debug output remains complete.
	rest := kvs[:0:len(kvs)]
	for _, pair := range kvs {
		switch pair.key {
		case FieldComponent:
			if hdr.component == "" {
				hdr.component = attrString(pair.value)
			}
			continue
		case FieldSessionID:
			if hdr.sessionID == "" {
				hdr.sessionID = attrString(pair.value)
			}
		case FieldGroup:
			if hdr.group == "" {
				hdr.group = attrString(pair.value)
			}
		}
		rest = append(rest, pair)
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(rest)*32)

	h.mu.Lock()
	defer h.mu.Unlock()
	write := h.writeInfo
	if record.Level < slog.LevelInfo {
		write = h.writeDebug
	}
	write(&buf, hdr, rest)
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeInfo(buf *bytes.Buffer, hdr lineHeader, attrs []kv) {
	writeLogHeader(buf, hdr)
	fields, hidden := selectInfoFields(attrs, 0, true)
	fields, hidden = h.dropRepeatedInfo(infoSummaryKey(hdr.component, hdr.sessionID, attrs), fields, hidden, hdr.level)
	buf.WriteByte('\n')
	for _, field := range fields {
		fmt.Fprintf(buf, "    - %s: %s\n", field.label, field.value)
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(buf, "    + %d more fields hidden\n", hidden)
	}
}

func (h *consoleHandler) writeDebug(buf *bytes.Buffer, hdr lineHeader, attrs []kv) {
	writeLogHeader(buf, hdr)
	buf.WriteByte('\n')
	for _, pair := range attrs {
		if pair.key != "" {
			fmt.Fprintf(buf, "    %s: %s\n", pair.key, formatValue(pair.value))
		}
	}
}

func writeLogHeader(buf *bytes.Buffer, hdr lineHeader) {
	buf.WriteString(formatTimestamp(hdr.ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(hdr.level))
	if hdr.component != "" {
		fmt.Fprintf(buf, " [%s]", hdr.component)
	}
	if subject := FormatSubject(hdr.sessionID, hdr.group); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if hdr.message != "" {
		buf.WriteString(" | ")
		buf.WriteString(hdr.message)
	}
	if hdr.src != nil {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(hdr.src.File), hdr.src.Line)
	}
}

// dropRepeatedInfo suppresses bullets whose value matched the previous line
// for the same subject. Warnings and errors always print in full; they also
// refresh the cache so the next info line starts clean.
func (h *consoleHandler) dropRepeatedInfo(subject string, fields []infoField, hidden int, level slog.Level) ([]infoField, int) {
	if subject == "" || len(fields) == 0 {
		return fields, hidden
	}
	cache := h.seenInfo[subject]
	if cache == nil {
		cache = make(map[string]string)
		h.seenInfo[subject] = cache
	}
	if level > slog.LevelInfo {
		for _, f := range fields {
			cache[f.label] = f.value
		}
		return fields, hidden
	}
	kept := fields[:0]
	for _, f := range fields {
		prev, seen := cache[f.label]
		cache[f.label] = f.value
		if !seen || prev != f.value {
			kept = append(kept, f)
		}
	}
	return kept, hidden
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		out:       h.out,
		level:     h.level,
		addSource: h.addSource,
		seenInfo:  h.seenInfo,
		attrs:     slices.Clone(h.attrs),
		groups:    slices.Clone(h.groups),
	}
}

// kv is one flattened attribute pair.
type kv struct {
	value slog.Value
	key   string
}

// dedupeKV keeps the first position of each key but lets later values win,
// matching slog's override order.
func dedupeKV(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	position := make(map[string]int, len(attrs))
	out := attrs[:0]
	for _, pair := range attrs {
		if pair.key == "" {
			continue
		}
		if at, seen := position[pair.key]; seen {
			out[at].value = pair.value
			continue
		}
		position[pair.key] = len(out)
		out = append(out, pair)
	}
	return out
}

func flattenAttrs(dst []kv, prefix []string, attrs []slog.Attr) []kv {
	for _, attr := range attrs {
		dst = flattenAttr(dst, prefix, attr)
	}
	return dst
}

// flattenAttr expands groups into dot-joined keys so nested attrs render as
// flat bullets.
func flattenAttr(dst []kv, prefix []string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append(make([]string, 0, len(prefix)+1), prefix...), attr.Key)
		}
		return flattenAttrs(dst, next, attr.Value.Group())
	}
	key := attr.Key
	if len(prefix) > 0 {
		if key == "" {
			key = strings.Join(prefix, ".")
		} else {
			key = strings.Join(prefix, ".") + "." + key
		}
	}
	return append(dst, kv{key: key, value: attr.Value})
}

var levelLabels = []struct {
	floor slog.Level
	label string
}{
	{slog.LevelError, "ERROR"},
	{slog.LevelWarn, "WARN"},
	{slog.LevelInfo, "INFO"},
}

func levelLabel(level slog.Level) string {
	for _, entry := range levelLabels {
		if level >= entry.floor {
			return entry.label
		}
	}
	return "DEBUG"
}
