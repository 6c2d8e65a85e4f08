package daemonrun

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"caster/internal/config"
	"caster/internal/logging"
	"caster/internal/preflight"
)

// logStartupSnapshot records the state of external dependencies at boot so a
// later log read explains why playback behaved the way it did.
func logStartupSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpegBin := cfg.FFmpegBinary()
	ffprobeBin := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpegBin)),
		logging.String("ffmpeg_binary", ffmpegBin),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobeBin)),
		logging.String("ffprobe_binary", ffprobeBin),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.String("live_dir", cfg.Paths.LiveDir),
		logging.Int("workers", cfg.Stream.Workers),
	)
}

// logPreflight runs the startup checks and logs any failures. Failures are
// not fatal: the daemon keeps serving IPC and the API so operators can
// inspect status and logs while fixing the environment.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "resolve the failure before starting playback"),
			logging.String(logging.FieldImpact, "stream start may fail until resolved"),
		)
	}
}

func binaryAvailable(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
