package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"caster/internal/api"
	"caster/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Caster", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Caster:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Caster", statusOK, "Running", true)
	if !strings.HasPrefix(got, escGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, escReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "FFmpeg", Available: false},
		{Name: "FFprobe", Available: true, Command: "ffprobe"},
		{Name: "ntfy", Available: false, Optional: true, Detail: "not configured"},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "Summary") || !strings.Contains(lines[0], "[ERROR]") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("expected error detail in second line, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (command: ffprobe)") {
		t.Fatalf("expected ready detail in third line, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "[WARN] not configured") {
		t.Fatalf("expected warn detail in fourth line, got %q", lines[3])
	}
	if !strings.Contains(lines[4], "Missing dependencies:") || !strings.Contains(lines[4], "README.md") {
		t.Fatalf("expected missing dependencies summary, got %q", lines[4])
	}
}

func TestChannelLinesLivePlaylist(t *testing.T) {
	resp := &ipc.StatusResponse{
		Running: true,
		Engine: api.StatusResponse{
			Status:        "LIVE",
			CurrentVideo:  "Morning Show",
			CurrentURL:    "https://cdn.example.com/morning.mp4",
			TranscoderPID: 123,
			Playlist: &api.PlaylistStatus{
				Group:    "morning",
				Position: 2,
				Length:   4,
				Looping:  true,
			},
			System: api.SystemStatus{CPU: "12.0%", RAM: "1.5%", Uptime: "3m"},
			Disk: &api.DiskStatus{
				SegmentCount:  5,
				SegmentBytes:  10 * 1024 * 1024,
				PlaylistReady: true,
				FreeBytes:     50 * 1024 * 1024 * 1024,
				TotalBytes:    100 * 1024 * 1024 * 1024,
			},
		},
	}

	out := strings.Join(channelLines(resp, false), "\n")
	requireContains(t, out, "[OK] Live")
	requireContains(t, out, "Morning Show")
	requireContains(t, out, "https://cdn.example.com/morning.mp4")
	requireContains(t, out, "morning (2 of 4), looping")
	requireContains(t, out, "123")
	requireContains(t, out, "12.0%")
	requireContains(t, out, "5 segments (10.0 MiB), playlist ready")
	requireContains(t, out, "50.0 GiB of 100.0 GiB")
}

func TestChannelLinesIdle(t *testing.T) {
	resp := &ipc.StatusResponse{Engine: api.StatusResponse{Status: "IDLE"}}
	lines := channelLines(resp, false)
	if len(lines) != 1 {
		t.Fatalf("expected a single state line for an idle engine, got %d: %v", len(lines), lines)
	}
	requireContains(t, lines[0], "Idle")
}

func TestStatusKindFromSeverity(t *testing.T) {
	cases := map[string]statusKind{
		"ok":      statusOK,
		"warn":    statusWarn,
		"warning": statusWarn,
		"error":   statusError,
		"ERROR":   statusError,
		"info":    statusInfo,
		"":        statusInfo,
	}
	for input, want := range cases {
		if got := statusKindFromSeverity(input); got != want {
			t.Fatalf("statusKindFromSeverity(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestFormatStateLabel(t *testing.T) {
	if got := formatStateLabel("LIVE"); got != "Live" {
		t.Fatalf("formatStateLabel(LIVE) = %q", got)
	}
	if got := formatStateLabel("idle"); got != "Idle" {
		t.Fatalf("formatStateLabel(idle) = %q", got)
	}
	if got := formatStateLabel(""); got != "Unknown" {
		t.Fatalf("formatStateLabel(empty) = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(512); got != "512 B" {
		t.Fatalf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(2048); got != "2.0 KiB" {
		t.Fatalf("formatBytes(2048) = %q", got)
	}
	if got := formatBytes(5 * 1024 * 1024); got != "5.0 MiB" {
		t.Fatalf("formatBytes(5MiB) = %q", got)
	}
}

func TestFormatMemberList(t *testing.T) {
	if got := formatMemberList(nil); got != "-" {
		t.Fatalf("formatMemberList(nil) = %q", got)
	}
	if got := formatMemberList([]string{"a", "b"}); got != "a, b" {
		t.Fatalf("formatMemberList(two) = %q", got)
	}
	if got := formatMemberList([]string{"a", "b", "c", "d", "e"}); got != "a, b, c, +2 more" {
		t.Fatalf("formatMemberList(five) = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
