// Package logs provides file tailing and log stream access shared by the CLI
// and daemon diagnostics.
//
// Tail streams log files with bounded memory usage, supports negative offsets
// for "last N lines" reads, and powers follow-mode updates for `caster logs
// --follow` when the daemon is not running. StreamClient talks to a live
// daemon's /api/logs endpoint for structured events instead.
//
// Use this package whenever you need consistent log viewing semantics instead
// of re-implementing ad-hoc tail logic.
package logs
