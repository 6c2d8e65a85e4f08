package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// VersionProber reports the version token of an external tool.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// CheckFFmpeg verifies that the transcoder binary resolves, probes its
// version, and compares it against the configured minimum.
//
// Distribution builds tag the version with suffixes such as "6.1.1-static"
// or "4.4.2-0ubuntu0.22.04.1"; NormalizeVersion strips those before the
// comparison. Git snapshot builds ("N-110069-g...") carry no release number
// at all, so the check passes with a note instead of rejecting a perfectly
// usable binary.
func CheckFFmpeg(ctx context.Context, prober VersionProber, binary, minimum string) Status {
	status := Status{Requirement: Requirement{
		Name:        "FFmpeg",
		Description: "Required for HLS transcoding",
		Command:     strings.TrimSpace(binary),
	}}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Command = resolved
	status.Available = true

	if prober == nil {
		return status
	}
	version, err := prober.Version(ctx)
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("version probe failed: %v", err)
		return status
	}
	status.Version = version

	floor := strings.TrimSpace(minimum)
	if floor == "" {
		return status
	}
	ok, err := MeetsMinimum(version, floor)
	switch {
	case err != nil:
		status.Detail = fmt.Sprintf("minimum %s not verified: %v", floor, err)
	case !ok:
		status.Available = false
		status.Detail = fmt.Sprintf("version %s is below the required minimum %s", version, floor)
	}
	return status
}

// MeetsMinimum reports whether a probed version token satisfies the minimum.
func MeetsMinimum(raw, minimum string) (bool, error) {
	version, err := semver.NewVersion(NormalizeVersion(raw))
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", raw, err)
	}
	floor, err := semver.NewVersion(strings.TrimSpace(minimum))
	if err != nil {
		return false, fmt.Errorf("parse minimum %q: %w", minimum, err)
	}
	return !version.LessThan(floor), nil
}

// NormalizeVersion reduces an ffmpeg version token to the bare release
// number. Tags like "n7.0" lose the prefix, build metadata after "-", "+",
// or "~" is dropped.
func NormalizeVersion(raw string) string {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "n")
	if idx := strings.IndexAny(v, "-+~"); idx >= 0 {
		v = v[:idx]
	}
	return v
}
