// Package preflight provides readiness checks for the filesystem paths and
// external binaries the streaming daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup. If a mandatory check fails,
//     startup aborts before any stream can be requested against a broken
//     environment.
//   - The CLI "caster status" command uses CheckSystemDeps and the individual
//     check functions to display dependency health.
//
// Notification delivery is not checked here: ntfy publishes are best-effort
// and a failure there never blocks streaming.
package preflight
