// Package daemon coordinates the long-running caster process and its outward
// surfaces.
//
// It wires configuration, the media library, the stream manager, the segment
// janitor, and the resource monitor into a single lifecycle with flock-based
// locking to prevent multiple instances. The daemon owns the HTTP API server
// and is the target of the IPC control socket; both surfaces go through the
// same catalog service and playback methods so behavior cannot drift between
// them.
//
// Keep orchestration logic here: playback and sweeping rules live in their
// respective packages while the daemon focuses on startup, shutdown, and
// status aggregation.
package daemon
