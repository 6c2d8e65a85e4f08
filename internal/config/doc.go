// Package config loads, normalizes, and validates caster configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CASTER_API_TOKEN. The Config type centralizes every knob the daemon and CLI
// need, from transcode bitrates to janitor sweep intervals.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
