package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"caster/internal/config"
	"caster/internal/deps"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/services/ffmpeg"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase opens the catalog database and runs its health diagnostics.
// A database that does not exist yet passes; the daemon creates it on first
// open.
func CheckDatabase(ctx context.Context, path string) Result {
	const name = "Database"

	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := library.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed: %v", err)}
	}
	defer store.Close()

	health, err := store.CheckHealth(probeCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed: %v", err)}
	}
	if !health.Readable {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable)", path)}
	}
	if len(health.MissingColumns) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("schema missing columns: %s", strings.Join(health.MissingColumns, ", "))}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d media, %d groups)", path, health.TotalMedia, health.TotalGroups)}
}

// CheckTranscoder resolves the ffmpeg binary and gates it on the configured
// minimum version.
func CheckTranscoder(ctx context.Context, cfg *config.Config) Result {
	const name = "FFmpeg"

	client, err := ffmpeg.New(cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status := deps.CheckFFmpeg(probeCtx, client, cfg.FFmpegBinary(), cfg.Stream.MinVersion)
	detail := status.Detail
	if detail == "" && status.Version != "" {
		detail = "version " + status.Version
	}
	return Result{Name: name, Passed: status.Available, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the daemon and the CLI status command use this to avoid duplicating the
// requirements list. The ffmpeg entry carries the version gate; the rest are
// presence checks.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if cfg == nil {
		return statuses
	}
	client, err := ffmpeg.New(cfg, logging.NewNop())
	if err != nil {
		return statuses
	}
	for i := range statuses {
		if statuses[i].Name == "FFmpeg" && statuses[i].Available {
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			statuses[i] = deps.CheckFFmpeg(probeCtx, client, cfg.FFmpegBinary(), cfg.Stream.MinVersion)
			cancel()
		}
	}
	return statuses
}
