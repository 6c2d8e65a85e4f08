// Package stream coordinates live playback: one transcoder session at a
// time, driven either by a solo URL or by a playlist group whose entries
// advance as sessions exit.
//
// The playlist monitor polls on a fixed interval instead of subscribing to
// session exits, so a crashed transcoder and a finished one take the same
// path. Playlist entries that no longer resolve in the library are skipped
// rather than halting playback.
package stream
