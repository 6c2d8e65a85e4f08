// Package api defines wire-format types and converters for the HTTP and IPC
// layer. It translates internal catalog and playback models into
// transport-friendly DTOs so consumers never couple to internal types.
//
// # Key Types
//
// MediaItem/GroupItem: transport representations of catalog entries.
//
// StatusResponse: engine state, current video, playlist snapshot, and the
// system block (cpu, ram, uptime, disk).
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Design Notes
//
// JSON keys are snake_case because the engine's wire contract predates this
// implementation; fields like "current_video" and the "system" block must
// keep their historical names. Timestamps use RFC3339 with milliseconds.
// CatalogService wraps the library store with request validation so the HTTP
// handlers and the IPC service share one code path.
package api
