// Package services defines shared utilities consumed by the stream engine
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, source URLs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across subsystems.
//
// Use these helpers when wiring new engine logic so operational behaviour
// (error handling, observability) stays uniform across the daemon.
package services
