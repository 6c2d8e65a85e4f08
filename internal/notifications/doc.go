// Package notifications delivers engine events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event kinds cover the stream lifecycle so callers can
// emit consistent, user-friendly messages without duplicating HTTP glue.
//
// Extend this package if you need alternative transports; engine code depends
// only on the simple Service interface.
package notifications
