// Package sysmon watches host resources and resets the transcoder before
// the kernel OOM killer would. It also provides the CPU, memory, and uptime
// snapshot the status API reports.
//
// Readings come straight from /proc, so the package is Linux-only, like the
// deployment targets the engine is built for.
package sysmon
