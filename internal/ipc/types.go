package ipc

import "caster/internal/api"

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse reports the daemon process ID.
type PingResponse struct {
	PID int `json:"pid"`
}

// StartRequest brings up the streaming subsystems.
type StartRequest struct{}

// StartResponse reports whether a start actually happened, with an optional
// operator-facing message.
type StartResponse struct {
	Message string `json:"message"`
	Started bool   `json:"started"`
}

// StopRequest drains the streaming subsystems.
type StopRequest struct{}

// StopResponse confirms the engine drained.
type StopResponse struct {
	// Stopped is true once the stop request was acknowledged, even when no
	// stream was live.
	Stopped bool `json:"stopped"`
}

// StatusRequest asks for the full daemon snapshot.
type StatusRequest struct{}

// DependencyStatus mirrors the HTTP API dependency DTO for IPC callers.
type DependencyStatus = api.DependencyStatus

// LogEvent mirrors the HTTP API log event DTO for IPC callers.
type LogEvent = api.LogEvent

// StatusResponse aggregates daemon and engine state.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Engine       api.StatusResponse `json:"engine"`
	Dependencies []DependencyStatus `json:"dependencies"`
	DatabasePath string             `json:"database_path"`
	LockPath     string             `json:"lock_path"`
}

// StartStreamRequest begins playback. A group name takes precedence over a
// URL.
type StartStreamRequest struct {
	URL   string `json:"url,omitempty"`
	Group string `json:"group,omitempty"`
	Loop  bool   `json:"loop"`
}

// StartStreamResponse acknowledges started playback.
type StartStreamResponse struct {
	Message string `json:"message"`
}

// StopStreamRequest halts playback without stopping the daemon.
type StopStreamRequest struct{}

// StopStreamResponse acknowledges the stop.
type StopStreamResponse struct {
	Stopped bool `json:"stopped"`
}

// RecentLogsRequest fetches structured log events from the daemon hub.
type RecentLogsRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// RecentLogsResponse returns log events and the next cursor.
type RecentLogsResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// DatabaseHealthRequest fetches detailed catalog database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse mirrors library.DatabaseHealth on the wire.
type DatabaseHealthResponse struct {
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Readable       bool     `json:"readable"`
	SchemaVersion  string   `json:"schema_version"`
	MediaTable     bool     `json:"media_table"`
	MediaColumns   []string `json:"media_columns"`
	MissingColumns []string `json:"missing_columns"`
	IntegrityCheck bool     `json:"integrity_check"`
	TotalMedia     int      `json:"total_media"`
	TotalGroups    int      `json:"total_groups"`
	Error          string   `json:"error"`
}

// TestNotificationRequest pushes a test message through the configured
// notifier.
type TestNotificationRequest struct{}

// TestNotificationResponse says whether the test message went out.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// MediaListRequest fetches every catalog entry.
type MediaListRequest struct{}

// MediaListResponse returns catalog entries ordered by title.
type MediaListResponse struct {
	Items []api.MediaItem `json:"items"`
}

// MediaAddRequest registers a catalog entry. ID is optional.
type MediaAddRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MediaAddResponse returns the stored entry.
type MediaAddResponse struct {
	Item api.MediaItem `json:"item"`
}

// MediaRemoveRequest deletes a catalog entry by ID.
type MediaRemoveRequest struct {
	ID string `json:"id"`
}

// MediaRemoveResponse acknowledges the removal.
type MediaRemoveResponse struct {
	Removed bool `json:"removed"`
}

// GroupListRequest fetches every playlist.
type GroupListRequest struct{}

// GroupListResponse returns playlists with their ordered member IDs.
type GroupListResponse struct {
	Groups []api.GroupItem `json:"groups"`
}

// GroupSetRequest creates or replaces a playlist.
type GroupSetRequest struct {
	Name     string   `json:"name"`
	VideoIDs []string `json:"video_ids"`
}

// GroupSetResponse returns the stored playlist.
type GroupSetResponse struct {
	Group api.GroupItem `json:"group"`
}

// GroupRemoveRequest deletes a playlist by name.
type GroupRemoveRequest struct {
	Name string `json:"name"`
}

// GroupRemoveResponse acknowledges the removal.
type GroupRemoveResponse struct {
	Removed bool `json:"removed"`
}
