// Package library persists the media catalog and playlist groups backing the
// restream engine.
//
// The store wraps a SQLite database created next to the daemon's other state.
// Media rows carry a UUID, a display title, and the source URL handed to
// ffmpeg. Groups are named, ordered lists of media IDs; members may reference
// media that no longer exists, and playlist playback skips those entries
// instead of failing the whole group.
package library
