package logging

import (
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const infoAttrLimit = 8

// infoField is one rendered bullet under a console log line.
type infoField struct {
	label, value string
}

// infoHighlightKeys orders the fields operators care about most. Anything
// not listed renders after these, in emit order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"status",
	FieldSource,
	"media_title",
	"media_url",
	"queue_position",
	"queue_length",
	"looping",
	FieldProgressTime,
	FieldProgressSpeed,
	FieldProgressBitrate,
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	"command",
	"exit_code",
	"signal",
	"pid",
	"memory_percent",
	"cpu_load",
	"uptime",
	"segments_removed",
	"segment_count",
	"playlist_size",
	"bind",
	"workers",
	"ffmpeg_version",
	"group_size",
	"reason",
}

// selectInfoFields picks and formats the bullet list for one record:
// highlighted keys first, then the rest in emit order, with a count of
// entries suppressed by the limit or the info-level noise rules.
// limit=0 means unlimited; includeDebug admits keys normally reserved for
// debug output.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	limit = max(limit, 0)
	if len(attrs) == 0 {
		return nil, 0
	}

	byKey := make(map[string]int, len(attrs))
	for idx, attr := range attrs {
		if _, dup := byKey[attr.key]; !dup {
			byKey[attr.key] = idx
		}
	}

	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0
	used := make([]bool, len(attrs))

	take := func(idx int, enforceLimit bool) {
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		val := formatValueForKey(attr.key, attr.value)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			return
		}
		if enforceLimit && limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: val})
	}

	for _, key := range infoHighlightKeys {
		idx, ok := byKey[key]
		if !ok || used[idx] {
			continue
		}
		if limit > 0 && len(result) >= limit {
			break
		}
		used[idx] = true
		take(idx, false)
	}
	for idx := range attrs {
		if !used[idx] {
			used[idx] = true
			take(idx, true)
		}
	}

	return result, hidden
}

// formatValueForKey picks a rendering suited to what the key names: byte
// counts, durations, and percentages get human units, booleans read as
// yes/no, and error text is clipped.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindBool:
		if !v.Bool() {
			return "no"
		}
		return "yes"
	case slog.KindInt64:
		if isByteSizeKey(key) {
			return formatBytes(v.Int64())
		}
	case slog.KindUint64:
		if isByteSizeKey(key) {
			return formatBytes(int64(v.Uint64()))
		}
	case slog.KindDuration:
		if isDurationKey(key) {
			return formatDurationHuman(v.Duration())
		}
	case slog.KindFloat64:
		if isPercentKey(key) {
			return formatPercent(v.Float64())
		}
	}

	text := formatValue(v)
	if key == "error" || key == "error_message" {
		text = clipError(text)
	}
	return text
}

func isByteSizeKey(key string) bool {
	return key == "size" || strings.HasSuffix(key, "_bytes") || strings.HasSuffix(key, "_size")
}

func isDurationKey(key string) bool {
	switch key {
	case "elapsed", "duration", "uptime", "backoff":
		return true
	}
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency")
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent")
}

func clipError(msg string) string {
	msg = strings.TrimSpace(msg)
	const maxLen = 200
	if len(msg) > maxLen {
		return msg[:maxLen] + "…"
	}
	return msg
}

// skipInfoKey drops keys the header already carries.
func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldSessionID, FieldGroup:
		return true
	}
	return false
}

// debugOnlyKeys names plumbing detail hidden from info-level bullets:
// intervals, paths, and identifiers belong in debug output.
var debugOnlyKeys = map[string]bool{
	FieldCorrelationID: true,
	"args":             true,
	"hls_flags":        true,
	"poll_interval":    true,
	"sweep_interval":   true,
	"check_interval":   true,
	"segment_ttl":      true,
	"grace_period":     true,
	"socket_path":      true,
	"lock_path":        true,
	"database":         true,
}

func isDebugOnlyKey(key string) bool {
	if key == "" || debugOnlyKeys[key] {
		return true
	}
	return strings.Contains(key, "correlation") ||
		strings.HasSuffix(key, "_id") ||
		strings.Contains(key, "_path") ||
		strings.Contains(key, "_dir")
}

// fullTextKeys hold values whose full text is the point, so they are never
// hidden for length.
var fullTextKeys = []string{"error_message", "error", "command", FieldSource, "media_url"}

func shouldHideInfoValue(key, value string) bool {
	return len(value) > 120 && !slices.Contains(fullTextKeys, key)
}

var displayLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldErrorCode:       "Error Code",
	FieldErrorHint:       "Hint",
	FieldSource:          "Source",
	FieldProgressTime:    "Output Time",
	FieldProgressSpeed:   "Speed",
	FieldProgressBitrate: "Bitrate",
	"media_title":        "Title",
	"media_url":          "URL",
	"queue_position":     "Position",
	"queue_length":       "Queue",
	"exit_code":          "Exit Code",
	"memory_percent":     "Memory",
	"cpu_load":           "CPU Load",
	"pid":                "PID",
	"ffmpeg_version":     "FFmpeg",
	"segments_removed":   "Removed",
	"segment_count":      "Segments",
	"group_size":         "Members",
	"playlist_size":      "Playlist Size",
	"reason":             "Reason",
}

func displayLabel(key string) string {
	if label, ok := displayLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

// titleizeKey renders an unmapped attr key as a label, title-casing each
// underscore- or dash-separated word.
func titleizeKey(key string) string {
	words := strings.NewReplacer("_", " ", "-", " ").Replace(key)
	return cases.Title(language.Und).String(strings.ToLower(words))
}

// infoSummaryKey names the subject for repeat suppression: the session if
// known, otherwise the source, group, or component.
func infoSummaryKey(component, sessionID string, attrs []kv) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	if source := attrValue(attrs, FieldSource); source != "" {
		return "source:" + source
	}
	if group := attrValue(attrs, FieldGroup); group != "" {
		return "group:" + group
	}
	return component
}

func attrValue(attrs []kv, key string) string {
	idx := slices.IndexFunc(attrs, func(pair kv) bool { return pair.key == key })
	if idx < 0 {
		return ""
	}
	return attrString(attrs[idx].value)
}
