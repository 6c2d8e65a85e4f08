package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"caster/internal/api"
	"caster/internal/config"
	"caster/internal/ipc"
	"caster/internal/library"
	"caster/internal/preflight"
)

// BuildStatusSnapshot collects daemon status over IPC. When the daemon is
// unreachable it fills in what it can from the database and local probes so
// `caster status` still paints a useful picture.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*ipc.StatusResponse, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	status := &ipc.StatusResponse{}
	if client, err := ipc.Dial(socketPath); err == nil {
		resp, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && resp != nil {
			status = resp
		}
	}

	if !status.Running {
		if lib := offlineLibraryStatus(ctx, cfg); lib != nil {
			status.Engine.Library = lib
		}
		if status.DatabasePath == "" {
			status.DatabasePath = cfg.Paths.Database
		}
	}
	if len(status.Dependencies) == 0 {
		status.Dependencies = resolveDependencies(ctx, cfg)
	}
	return status, nil
}

// offlineLibraryStatus reads catalog counts straight from the database for
// status output while the daemon is down.
func offlineLibraryStatus(ctx context.Context, cfg *config.Config) *api.LibraryStatus {
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := library.Open(cfg)
	if err != nil {
		return nil
	}
	defer store.Close()
	stats, err := store.Stats(queryCtx)
	if err != nil {
		return nil
	}
	return &api.LibraryStatus{Media: stats.Media, Groups: stats.Groups, Healthy: true}
}

func resolveDependencies(ctx context.Context, cfg *config.Config) []ipc.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencyStatuses(preflight.CheckSystemDeps(ctx, cfg))
}

// BuildSystemChecks resolves the status lines combining runtime state with
// local config probes.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool, engineState string) []api.StatusLine {
	var checks []api.StatusLine
	add := func(label, severity, detail string) {
		checks = append(checks, api.StatusLine{Label: label, Severity: severity, Detail: detail})
	}

	if daemonRunning {
		add("Caster", "ok", "Running")
		if strings.EqualFold(strings.TrimSpace(engineState), "LIVE") {
			add("Stream", "ok", "Live")
		} else {
			add("Stream", "info", "Idle")
		}
	} else {
		add("Caster", "warn", "Not running (run `caster daemon start`)")
	}

	liveDir := preflight.CheckDirectoryAccess("Live directory", cfg.Paths.LiveDir)
	if liveDir.Passed {
		add("Live directory", "ok", liveDir.Detail)
	} else {
		add("Live directory", "error", liveDir.Detail)
	}

	notif := preflight.CheckNotificationsFromConfig(cfg)
	switch {
	case notif.Passed && strings.EqualFold(strings.TrimSpace(notif.Detail), "Disabled"):
		add("Notifications", "info", notif.Detail)
	case notif.Passed:
		add("Notifications", "ok", notif.Detail)
	default:
		add("Notifications", "warn", notif.Detail)
	}

	add("API auth", "info", preflight.CheckAPIAuthFromConfig(cfg).Detail)
	return checks
}

// BuildDependencySummary rolls the per-dependency results up into one
// severity and a counting detail line.
func BuildDependencySummary(deps []ipc.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}

	summary := api.DependencySummary{Total: len(deps)}
	for _, dep := range deps {
		switch {
		case dep.Available:
			summary.Available++
		case dep.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}

	switch {
	case summary.MissingRequired > 0:
		summary.Severity = "error"
	case summary.MissingOptional > 0:
		summary.Severity = "warn"
	default:
		summary.Severity = "ok"
	}
	if summary.Available == summary.Total {
		summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	} else {
		summary.Detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)",
			summary.Available, summary.Total, summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}
