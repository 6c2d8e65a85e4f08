package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"caster/internal/api"
	"caster/internal/config"
	"caster/internal/ipc"
	"caster/internal/logs"
)

// logView carries the flags shared by the three log sources: the HTTP API,
// the IPC hub, and the on-disk log file.
type logView struct {
	Follow    bool
	Lines     int
	Component string
	Level     string
}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var component string
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := logView{Follow: follow, Lines: lines, Component: component, Level: level}
			cfg, err := ctx.requireConfig()
			if err != nil {
				return err
			}

			err = streamLogsFromAPI(cmd, cfg, view)
			if err == nil {
				return nil
			}
			if !logs.IsAPIUnavailable(err) {
				return err
			}

			// The HTTP API is down but the daemon may still answer IPC.
			if conn, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
				defer conn.Close()
				return streamLogsFromHub(cmd, conn, view)
			}

			return tailLogFile(cmd, cfg, view)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new entries")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of entries to show (0 for all)")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from one component")
	cmd.Flags().StringVar(&level, "level", "", "Only show events at one level (debug, info, warn, error)")
	return cmd
}

func streamLogsFromAPI(cmd *cobra.Command, cfg *config.Config, view logView) error {
	client, err := logs.NewStreamClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	switch {
	case err != nil:
		return err
	case client == nil:
		return logs.ErrAPIUnavailable
	}

	limit := view.Lines
	if limit <= 0 {
		limit = 200
	}
	query := logs.StreamQuery{Limit: limit, Tail: true, Component: view.Component, Level: view.Level}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	wrote := false
	for {
		page, err := client.Fetch(ctx, query)
		if err != nil {
			return err
		}
		for _, evt := range page.Events {
			fmt.Fprintln(out, renderLogEvent(evt))
			wrote = true
		}
		if !view.Follow {
			if !wrote {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		query = logs.StreamQuery{
			Since:     page.Next,
			Limit:     200,
			Follow:    true,
			Component: view.Component,
			Level:     view.Level,
		}
	}
}

// streamLogsFromHub reads structured events over IPC. The RPC surface only
// carries limit and follow, so component and level filters run client side.
func streamLogsFromHub(cmd *cobra.Command, client *ipc.Client, view logView) error {
	ctx := cmd.Context()
	req := ipc.RecentLogsRequest{
		Limit:      view.Lines,
		Follow:     view.Follow,
		WaitMillis: 1000,
	}
	if req.Limit <= 0 {
		req.Limit = 200
	}

	out := cmd.OutOrStdout()
	wrote := false
	for {
		page, err := client.RecentLogs(req)
		if err != nil {
			return fmt.Errorf("fetch logs: %w", err)
		}
		for _, evt := range page.Events {
			if !matchesLogView(evt, view) {
				continue
			}
			fmt.Fprintln(out, renderLogEvent(evt))
			wrote = true
		}
		if !view.Follow {
			if !wrote {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		req.Since = page.Next
		req.Limit = 200
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// tailLogFile reads the daemon's current log file directly. This is the last
// resort when neither the API nor the IPC socket answers, so plain lines are
// printed without event filtering.
func tailLogFile(cmd *cobra.Command, cfg *config.Config, view logView) error {
	path := filepath.Join(cfg.Paths.LogDir, "casterd.log")
	ctx := cmd.Context()

	opts := logs.TailOptions{Offset: -1, Limit: view.Lines}
	if opts.Limit <= 0 {
		opts.Offset = 0
	}

	out := cmd.OutOrStdout()
	wrote := false
	for {
		result, err := logs.Tail(ctx, path, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail %s: %w", path, err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(out, line)
			wrote = true
		}
		if !view.Follow {
			if !wrote {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		opts.Offset = result.Offset
		opts.Limit = 0
		opts.Follow = true
		opts.Wait = time.Second
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func matchesLogView(evt api.LogEvent, view logView) bool {
	if component := strings.TrimSpace(view.Component); component != "" && !strings.EqualFold(component, evt.Component) {
		return false
	}
	if level := strings.TrimSpace(view.Level); level != "" && !strings.EqualFold(level, evt.Level) {
		return false
	}
	return true
}

// renderLogEvent flattens one structured event into the console tail format:
// timestamp, level, [component], subject, then dashed detail lines.
func renderLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	if level := strings.ToUpper(strings.TrimSpace(evt.Level)); level != "" {
		b.WriteString(level)
	} else {
		b.WriteString("INFO")
	}
	if component := strings.TrimSpace(evt.Component); component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	if subject := composeSubject(evt.SessionID, evt.Group); subject != "" {
		b.WriteByte(' ')
		b.WriteString(subject)
	}
	if message := strings.TrimSpace(evt.Message); message != "" {
		b.WriteString(" – ")
		b.WriteString(message)
	}
	for _, d := range evt.Details {
		if strings.TrimSpace(d.Label) == "" || strings.TrimSpace(d.Value) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n    - %s: %s", d.Label, d.Value)
	}
	return b.String()
}

func composeSubject(sessionID, group string) string {
	session := shortSessionID(sessionID)
	group = strings.TrimSpace(group)
	switch {
	case session != "" && group != "":
		return fmt.Sprintf("Session %s (%s)", session, group)
	case session != "":
		return fmt.Sprintf("Session %s", session)
	default:
		return group
	}
}

// shortSessionID trims a session UUID to its first block so log lines stay
// scannable.
func shortSessionID(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}
