package api

import (
	"fmt"
	"time"

	"caster/internal/deps"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/segments"
	"caster/internal/stream"
	"caster/internal/sysmon"
)

// FromMedia converts a catalog record to its API representation.
func FromMedia(media *library.Media) MediaItem {
	if media == nil {
		return MediaItem{}
	}
	return MediaItem{
		ID:        media.ID,
		Title:     media.Title,
		URL:       media.URL,
		CreatedAt: FormatTime(media.CreatedAt),
		UpdatedAt: FormatTime(media.UpdatedAt),
	}
}

// FromMediaList converts a slice of catalog records, skipping nil entries.
func FromMediaList(items []*library.Media) []MediaItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]MediaItem, 0, len(items))
	for _, media := range items {
		if media == nil {
			continue
		}
		out = append(out, FromMedia(media))
	}
	return out
}

// FromGroup converts a playlist definition to its API representation. The
// member list is copied so callers can mutate the DTO freely.
func FromGroup(group *library.Group) GroupItem {
	if group == nil {
		return GroupItem{}
	}
	ids := make([]string, len(group.MediaIDs))
	copy(ids, group.MediaIDs)
	return GroupItem{Name: group.Name, VideoIDs: ids}
}

// FromGroupList converts a slice of playlist definitions, skipping nil entries.
func FromGroupList(groups []*library.Group) []GroupItem {
	if len(groups) == 0 {
		return nil
	}
	out := make([]GroupItem, 0, len(groups))
	for _, group := range groups {
		if group == nil {
			continue
		}
		out = append(out, FromGroup(group))
	}
	return out
}

// FromStreamStatus maps playback state onto the status payload. System, disk,
// and library blocks are filled separately by the daemon.
func FromStreamStatus(status stream.Status) StatusResponse {
	resp := StatusResponse{
		Status:        string(status.State),
		CurrentVideo:  status.CurrentTitle,
		CurrentURL:    status.CurrentURL,
		SessionID:     status.SessionID,
		TranscoderPID: status.PID,
		StartedAt:     FormatTime(status.StartedAt),
	}
	if status.Group != "" || status.QueueLength > 0 {
		resp.Playlist = &PlaylistStatus{
			Group:    status.Group,
			Position: status.QueuePosition,
			Length:   status.QueueLength,
			Looping:  status.Looping,
		}
	}
	return resp
}

// FromSnapshot renders host telemetry into the wire format's system block.
func FromSnapshot(snap sysmon.Snapshot) SystemStatus {
	return SystemStatus{
		CPU:    FormatPercent(snap.CPUPercent),
		RAM:    FormatPercent(snap.MemoryPercent),
		Uptime: FormatUptime(snap.Uptime),
	}
}

// FromUsage renders segment directory accounting for the status payload.
func FromUsage(usage segments.Usage) DiskStatus {
	return DiskStatus{
		SegmentCount:  usage.SegmentCount,
		SegmentBytes:  usage.SegmentBytes,
		PlaylistReady: usage.PlaylistExists,
		FreeBytes:     usage.DiskFreeBytes,
		TotalBytes:    usage.DiskTotalBytes,
	}
}

// FromStats renders catalog counts for the status payload.
func FromStats(stats library.Stats, healthy bool) LibraryStatus {
	return LibraryStatus{
		Media:   stats.Media,
		Groups:  stats.Groups,
		Healthy: healthy,
	}
}

// FromDependencyStatuses converts dependency probe results.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Version:     status.Version,
			Detail:      status.Detail,
		})
	}
	return out
}

// FromLogEvents converts hub records into their transport form.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, event := range events {
		var details []DetailField
		if len(event.Details) > 0 {
			details = make([]DetailField, 0, len(event.Details))
			for _, detail := range event.Details {
				details = append(details, DetailField{Label: detail.Label, Value: detail.Value})
			}
		}
		out = append(out, LogEvent{
			Sequence:  event.Sequence,
			Timestamp: event.Timestamp,
			Level:     event.Level,
			Message:   event.Message,
			Component: event.Component,
			SessionID: event.SessionID,
			Source:    event.Source,
			Group:     event.Group,
			Fields:    event.Fields,
			Details:   details,
		})
	}
	return out
}

// FormatPercent renders a percentage with one decimal place, matching the
// historical wire contract for the system block.
func FormatPercent(value float64) string {
	if value < 0 {
		value = 0
	}
	return fmt.Sprintf("%.1f%%", value)
}

// FormatUptime renders a duration with second precision.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

// FormatTime converts a timestamp to the API date format. Zero times render
// as an empty string so omitempty drops them from responses.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
