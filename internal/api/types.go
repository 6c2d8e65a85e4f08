package api

import "time"

// dateTimeFormat renders API timestamps as RFC3339 with millisecond
// precision.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse stamps the liveness payload.
func NewHealthResponse(now time.Time) HealthResponse {
	return HealthResponse{Status: "online", Timestamp: now.Format(dateTimeFormat)}
}

// MediaItem describes a catalog entry in a transport-friendly format.
type MediaItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// MediaListResponse wraps a collection of media items.
type MediaListResponse struct {
	Items []MediaItem `json:"items"`
}

// GroupItem describes a named playlist and its ordered member IDs.
type GroupItem struct {
	Name     string   `json:"name"`
	VideoIDs []string `json:"video_ids"`
}

// GroupListResponse wraps a collection of groups.
type GroupListResponse struct {
	Groups []GroupItem `json:"groups"`
}

// AddMediaRequest registers a media entry. ID is optional; a UUID is
// generated when absent.
type AddMediaRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SetGroupRequest upserts a named playlist.
type SetGroupRequest struct {
	Name     string   `json:"name"`
	VideoIDs []string `json:"video_ids"`
}

// StartStreamRequest begins playback. Group takes precedence over URL; Loop
// defaults to true when omitted.
type StartStreamRequest struct {
	URL   string `json:"url,omitempty"`
	Group string `json:"group,omitempty"`
	Loop  *bool  `json:"loop,omitempty"`
}

// LoopEnabled resolves the loop flag's default.
func (r StartStreamRequest) LoopEnabled() bool {
	if r.Loop == nil {
		return true
	}
	return *r.Loop
}

// ActionResponse is the envelope for state-changing endpoints.
type ActionResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// SystemStatus is the status endpoint's system block. CPU and RAM carry
// rendered percent strings; the names are part of the wire contract.
type SystemStatus struct {
	CPU    string `json:"cpu"`
	RAM    string `json:"ram"`
	Uptime string `json:"uptime"`
}

// DiskStatus reports live-directory usage.
type DiskStatus struct {
	SegmentCount  int    `json:"segment_count"`
	SegmentBytes  int64  `json:"segment_bytes"`
	PlaylistReady bool   `json:"playlist_ready"`
	FreeBytes     uint64 `json:"free_bytes"`
	TotalBytes    uint64 `json:"total_bytes"`
}

// PlaylistStatus reports playlist playback progress.
type PlaylistStatus struct {
	Group    string `json:"group,omitempty"`
	Position int    `json:"position"`
	Length   int    `json:"length"`
	Looping  bool   `json:"looping"`
}

// LibraryStatus summarizes the catalog for the status endpoint.
type LibraryStatus struct {
	Media   int  `json:"media"`
	Groups  int  `json:"groups"`
	Healthy bool `json:"healthy"`
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Status        string          `json:"status"`
	CurrentVideo  string          `json:"current_video"`
	CurrentURL    string          `json:"current_url,omitempty"`
	SessionID     string          `json:"session_id,omitempty"`
	TranscoderPID int             `json:"transcoder_pid,omitempty"`
	StartedAt     string          `json:"started_at,omitempty"`
	Playlist      *PlaylistStatus `json:"playlist,omitempty"`
	System        SystemStatus    `json:"system"`
	Disk          *DiskStatus     `json:"disk,omitempty"`
	Library       *LibraryStatus  `json:"library,omitempty"`
}

// DependencyStatus reports one external binary probe over the wire.
type DependencyStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Command     string `json:"command"`
	Optional    bool   `json:"optional"`

	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// StatusLine is one labeled line of CLI status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness for status output.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missing_required"`
	MissingOptional int    `json:"missing_optional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// LogEvent is the transport form of a structured log record.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Source    string            `json:"source,omitempty"`
	Group     string            `json:"group,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   []DetailField     `json:"details,omitempty"`
}

// DetailField is one label/value pair attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse answers GET /api/logs.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
