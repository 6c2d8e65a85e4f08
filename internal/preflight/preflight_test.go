package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caster/internal/config"
	"caster/internal/testsupport"
)

const versionStub = "#!/bin/sh\necho \"ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers\"\n"

// stubTranscoder installs a fake ffmpeg and ffprobe on PATH whose version
// banner reports the given release.
func stubTranscoder(t *testing.T, banner string) {
	t.Helper()
	binDir := t.TempDir()
	script := []byte(banner)
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestCheckDirectoryAccess(t *testing.T) {
	base := t.TempDir()
	blocked := filepath.Join(base, "file.txt")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	cases := []struct {
		name     string
		path     string
		wantPass bool
	}{
		{"writable dir", base, true},
		{"missing dir", filepath.Join(base, "nope"), false},
		{"regular file", blocked, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckDirectoryAccess("test", tc.path)
			if result.Passed != tc.wantPass {
				t.Fatalf("Passed = %v, want %v (detail %q)", result.Passed, tc.wantPass, result.Detail)
			}
			if !tc.wantPass && result.Detail == "" {
				t.Fatal("failing checks must carry a detail")
			}
		})
	}
}

func TestCheckDatabase_MissingFilePasses(t *testing.T) {
	result := CheckDatabase(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	if !result.Passed {
		t.Fatalf("a database that does not exist yet must pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDatabase_BlankPath(t *testing.T) {
	result := CheckDatabase(context.Background(), "   ")
	if result.Passed {
		t.Fatal("expected failure for blank path")
	}
}

func TestCheckDatabase_HealthyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.AddMedia(t, store, "Sintel", "https://example.com/sintel.mp4")

	result := CheckDatabase(context.Background(), cfg.Paths.Database)
	if !result.Passed {
		t.Fatalf("expected pass for healthy store, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "1 media") {
		t.Fatalf("expected media count in detail, got: %s", result.Detail)
	}
}

func TestCheckTranscoder_OK(t *testing.T) {
	stubTranscoder(t, versionStub)
	cfg := config.Default()

	result := CheckTranscoder(context.Background(), &cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "6.1.1") {
		t.Fatalf("expected probed version in detail, got: %s", result.Detail)
	}
}

func TestCheckTranscoder_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	cfg := config.Default()

	result := CheckTranscoder(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure when ffmpeg is absent")
	}
}

func TestCheckTranscoder_BelowMinimum(t *testing.T) {
	stubTranscoder(t, "#!/bin/sh\necho \"ffmpeg version 3.2.1 Copyright (c) 2000-2016 the FFmpeg developers\"\n")
	cfg := config.Default()

	result := CheckTranscoder(context.Background(), &cfg)
	if result.Passed {
		t.Fatal("expected failure for a transcoder below the minimum version")
	}
	if !strings.Contains(result.Detail, "below the required minimum") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckSystemDeps_IncludesVersionGate(t *testing.T) {
	stubTranscoder(t, versionStub)
	cfg := config.Default()

	statuses := CheckSystemDeps(context.Background(), &cfg)
	if len(statuses) < 2 {
		t.Fatalf("expected ffmpeg and ffprobe statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "FFmpeg" || !statuses[0].Available {
		t.Fatalf("unexpected ffmpeg status: %#v", statuses[0])
	}
	if statuses[0].Version != "6.1.1" {
		t.Fatalf("expected probed version, got %q", statuses[0].Version)
	}
	if statuses[1].Name != "FFprobe" || !statuses[1].Available {
		t.Fatalf("unexpected ffprobe status: %#v", statuses[1])
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("RunAll on a nil config = %#v, want nil", results)
	}
}

func TestRunAll_ReadyEnvironment(t *testing.T) {
	stubTranscoder(t, versionStub)
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("check %q failed: %s", result.Name, result.Detail)
		}
	}
	if !Passed(results) {
		t.Fatal("expected Passed to report success")
	}
}

func TestRunAll_FailureSurfacesInPassed(t *testing.T) {
	stubTranscoder(t, versionStub)
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.LogDir, "missing")

	results := RunAll(context.Background(), cfg)
	if Passed(results) {
		t.Fatal("expected a failing check to fail the batch")
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := config.Default()
	result := CheckNotificationsFromConfig(&cfg)
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("unexpected status without topic: %#v", result)
	}

	cfg.Notifications.NtfyTopic = "https://ntfy.sh/caster-alerts"
	result = CheckNotificationsFromConfig(&cfg)
	if !result.Passed || !strings.Contains(result.Detail, "caster-alerts") {
		t.Fatalf("unexpected status with topic: %#v", result)
	}
}

func TestCheckAPIAuthFromConfig(t *testing.T) {
	cfg := config.Default()
	if result := CheckAPIAuthFromConfig(&cfg); !strings.Contains(result.Detail, "Open") {
		t.Fatalf("unexpected status without token: %#v", result)
	}
	cfg.Paths.APIToken = "secret"
	if result := CheckAPIAuthFromConfig(&cfg); !strings.Contains(result.Detail, "Bearer") {
		t.Fatalf("unexpected status with token: %#v", result)
	}
}
