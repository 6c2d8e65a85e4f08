// Package ffmpeg wraps the ffmpeg CLI for live HLS restreaming.
//
// The client builds the transcode argument list from configuration, launches
// ffmpeg with machine-readable progress on stdout, and hands back a Session
// handle the stream manager owns. Stopping a session sends SIGTERM and
// escalates to SIGKILL after a grace period. Command execution sits behind the
// Executor interface so tests can substitute a fake process.
package ffmpeg
