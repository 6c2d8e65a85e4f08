package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"caster/internal/daemonctl"
	"caster/internal/ipc"
)

const (
	stopGracePeriod  = 5 * time.Second
	startWaitTimeout = 10 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the casterd process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	daemonCmd.AddCommand(
		newDaemonStartCommand(ctx),
		newDaemonStopCommand(ctx),
		newDaemonRestartCommand(ctx),
	)
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the caster daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, err := daemonctl.ResolveDaemonBinary()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), startWaitTimeout)
			if err != nil {
				return err
			}
			printStartOutcome(cmd.OutOrStdout(), result, false)
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the caster daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), stopGracePeriod)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			case err != nil:
				return err
			}
			printStopOutcome(out, result)
			fmt.Fprintln(out, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the caster daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			exe, err := daemonctl.ResolveDaemonBinary()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(
				ctx.socketPath(), ctx.configValue(), exe, daemonLaunchOptions(ctx),
				stopGracePeriod, startWaitTimeout,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				printStopOutcome(out, result.Stop)
				fmt.Fprintln(out, "Daemon stopped")
			}
			printStartOutcome(out, result.Start, true)
			return nil
		},
	}
}

// printStartOutcome reports the result of a start. A restart collapses the
// started and already-running states into one "restarted" line.
func printStartOutcome(w io.Writer, result daemonctl.StartResult, restart bool) {
	if result.Launched && !restart {
		fmt.Fprintln(w, "Daemon not running, launching...")
	}
	switch result.State {
	case daemonctl.StartStateStarted, daemonctl.StartStateAlreadyRunning:
		switch {
		case restart:
			fmt.Fprintln(w, "Daemon restarted")
		case result.State == daemonctl.StartStateStarted:
			fmt.Fprintln(w, "Daemon started")
		default:
			fmt.Fprintln(w, "Daemon already running")
		}
	case daemonctl.StartStateRequested:
		if message := strings.TrimSpace(result.Message); message != "" {
			fmt.Fprintln(w, message)
		} else {
			fmt.Fprintln(w, "Start request sent")
		}
	}
}

func printStopOutcome(w io.Writer, result daemonctl.StopResult) {
	if result.StopAcknowledged {
		fmt.Fprintln(w, "Stopping playback engine...")
	} else {
		fmt.Fprintln(w, "Stop request sent")
	}
	if result.ForcedKill && result.PID > 0 {
		fmt.Fprintf(w, "Stopping daemon process (pid %d)...\n", result.PID)
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, channel, and library status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.configValue()
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			section := func(title string, entries []string) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, line := range entries {
					fmt.Fprintln(out, line)
				}
			}

			checks := make([]string, 0, 8)
			for _, line := range daemonctl.BuildSystemChecks(cfg, snap.Running, snap.Engine.Status) {
				checks = append(checks, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			section("System Status", checks)
			fmt.Fprintln(out)

			section("Dependencies", dependencyLines(snap.Dependencies, colorize))
			fmt.Fprintln(out)

			section("Channel", channelLines(snap, colorize))
			fmt.Fprintln(out)

			section("Library", nil)
			rows := buildLibraryRows(snap.Engine.Library)
			if len(rows) == 0 {
				fmt.Fprintln(out, "Library unavailable")
				return nil
			}
			fmt.Fprint(out, renderTable([]string{"Kind", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

// channelLines renders the playback block of the status screen. Lines for
// idle-only fields are omitted so an idle daemon prints a short block.
func channelLines(resp *ipc.StatusResponse, colorize bool) []string {
	engine := resp.Engine
	entries := make([]string, 0, 8)

	stateKind := statusInfo
	if strings.EqualFold(strings.TrimSpace(engine.Status), "LIVE") {
		stateKind = statusOK
	}
	entries = append(entries, renderStatusLine("State", stateKind, formatStateLabel(engine.Status), colorize))

	if engine.CurrentVideo != "" {
		entries = append(entries, renderStatusLine("Now playing", statusInfo, engine.CurrentVideo, colorize))
	}
	if engine.CurrentURL != "" && engine.CurrentURL != engine.CurrentVideo {
		entries = append(entries, renderStatusLine("Source", statusInfo, engine.CurrentURL, colorize))
	}
	if pl := engine.Playlist; pl != nil {
		detail := pl.Group
		switch {
		case pl.Position > 0 && pl.Length > 0:
			detail = fmt.Sprintf("%s (%d of %d)", pl.Group, pl.Position, pl.Length)
		case pl.Length > 0:
			detail = fmt.Sprintf("%s (%d videos)", pl.Group, pl.Length)
		}
		if pl.Looping {
			detail += ", looping"
		}
		entries = append(entries, renderStatusLine("Playlist", statusInfo, detail, colorize))
	}
	if engine.TranscoderPID > 0 {
		entries = append(entries, renderStatusLine("Transcoder PID", statusInfo, fmt.Sprintf("%d", engine.TranscoderPID), colorize))
	}
	if engine.StartedAt != "" {
		entries = append(entries, renderStatusLine("Started", statusInfo, formatDisplayTime(engine.StartedAt), colorize))
	}
	if resp.Running {
		system := engine.System
		entries = append(entries, renderStatusLine("CPU", statusInfo, system.CPU, colorize))
		entries = append(entries, renderStatusLine("RAM", statusInfo, system.RAM, colorize))
		entries = append(entries, renderStatusLine("Uptime", statusInfo, system.Uptime, colorize))
	}
	if disk := engine.Disk; disk != nil {
		detail := fmt.Sprintf("%d segments (%s)", disk.SegmentCount, formatBytes(disk.SegmentBytes))
		if disk.PlaylistReady {
			detail += ", playlist ready"
		}
		entries = append(entries, renderStatusLine("Segments", statusInfo, detail, colorize))
		if disk.TotalBytes > 0 {
			free := fmt.Sprintf("%s of %s", formatBytes(int64(disk.FreeBytes)), formatBytes(int64(disk.TotalBytes)))
			entries = append(entries, renderStatusLine("Disk free", statusInfo, free, colorize))
		}
	}
	return entries
}

// dependencyLines renders one line per dependency plus a leading summary and,
// when anything is missing, a trailing pointer at the install docs.
func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	summary := daemonctl.BuildDependencySummary(deps)
	entries := []string{renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize)}

	var missing []string
	for _, dep := range deps {
		if !dep.Available {
			detail := strings.TrimSpace(dep.Detail)
			if detail == "" {
				detail = "not available"
			}
			kind := statusError
			if dep.Optional {
				kind = statusWarn
			}
			entries = append(entries, renderStatusLine(dep.Name, kind, detail, colorize))
			missing = append(missing, dep.Name)
			continue
		}

		message := "Ready"
		switch {
		case dep.Version != "":
			message = fmt.Sprintf("Ready (%s)", dep.Version)
		case dep.Command != "":
			message = fmt.Sprintf("Ready (command: %s)", dep.Command)
		}
		entries = append(entries, renderStatusLine(dep.Name, statusOK, message, colorize))
	}
	if len(missing) > 0 {
		detail := fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", "))
		entries = append(entries, renderStatusLine("Missing dependencies", statusWarn, detail, colorize))
	}
	return entries
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{ConfigPath: flagValue(ctx.configFlag)}
}
