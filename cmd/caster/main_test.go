package main

import (
	"path/filepath"
	"strings"
	"testing"

	"caster/internal/logging"
	"caster/internal/testsupport"
)

func TestCLIMediaAndGroupCommands(t *testing.T) {
	env := newCLITestEnv(t)

	out, _, err := runCLI(t, []string{"media", "add", "https://example.com/a.mp4", "--id", "vid-1", "--title", "First Video"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media add: %v", err)
	}
	requireContains(t, out, "Added First Video (vid-1)")

	out, _, err = runCLI(t, []string{"media", "add", "https://example.com/b.mp4", "--id", "vid-2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media add second: %v", err)
	}
	requireContains(t, out, "vid-2")

	out, _, err = runCLI(t, []string{"media", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media list: %v", err)
	}
	requireContains(t, out, "First Video")
	requireContains(t, out, "vid-2")

	out, _, err = runCLI(t, []string{"group", "set", "morning", "vid-1", "vid-2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("group set: %v", err)
	}
	requireContains(t, out, "Group morning set (2 videos)")

	out, _, err = runCLI(t, []string{"group", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("group list: %v", err)
	}
	requireContains(t, out, "morning")

	out, _, err = runCLI(t, []string{"media", "remove", "bogus"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media remove bogus: %v", err)
	}
	requireContains(t, out, "Media bogus not found")

	out, _, err = runCLI(t, []string{"group", "remove", "morning"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("group remove: %v", err)
	}
	requireContains(t, out, "Removed group morning")

	out, _, err = runCLI(t, []string{"group", "remove", "morning"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("group remove again: %v", err)
	}
	requireContains(t, out, "Group morning not found")

	out, _, err = runCLI(t, []string{"media", "remove", "vid-1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media remove: %v", err)
	}
	requireContains(t, out, "Removed vid-1")

	out, _, err = runCLI(t, []string{"media", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media list --json: %v", err)
	}
	requireContains(t, out, `"title"`)
	requireContains(t, out, "vid-2")
	if strings.Contains(out, "vid-1") {
		t.Fatalf("expected vid-1 removed from listing, got:\n%s", out)
	}
}

func TestCLIDBHealth(t *testing.T) {
	env := newCLITestEnv(t)

	testsupport.AddMedia(t, env.store, "One", "https://example.com/1.mp4")
	testsupport.AddMedia(t, env.store, "Two", "https://example.com/2.mp4")

	out, _, err := runCLI(t, []string{"db", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("db health: %v", err)
	}
	requireContains(t, out, "Database:")
	requireContains(t, out, "Integrity check: passed")
	requireContains(t, out, "Media: 2")
}

func TestCLIDBHealthWithoutDaemon(t *testing.T) {
	env := newCLITestEnv(t)

	testsupport.AddMedia(t, env.store, "One", "https://example.com/1.mp4")
	testsupport.AddMedia(t, env.store, "Two", "https://example.com/2.mp4")

	bogusSocket := filepath.Join(env.baseDir, "missing.sock")
	out, _, err := runCLI(t, []string{"db", "health"}, bogusSocket, env.configPath)
	if err != nil {
		t.Fatalf("db health offline: %v", err)
	}
	requireContains(t, out, "Database:")
	requireContains(t, out, "Media: 2")
}

func TestCLITestNotify(t *testing.T) {
	env := newCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestCLILogsFromHub(t *testing.T) {
	env := newCLITestEnv(t)

	env.hub.Publish(logging.LogEvent{Level: "info", Component: "engine", Message: "alpha-line"})
	env.hub.Publish(logging.LogEvent{Level: "info", Component: "engine", Message: "beta-line"})
	env.hub.Publish(logging.LogEvent{Level: "warn", Component: "janitor", Message: "gamma-line"})

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "beta-line")
	requireContains(t, out, "gamma-line")
	requireContains(t, out, "WARN")
	if strings.Contains(out, "alpha-line") {
		t.Fatalf("expected only the last two entries, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "10", "--level", "warn"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --level warn: %v", err)
	}
	requireContains(t, out, "gamma-line")
	if strings.Contains(out, "beta-line") {
		t.Fatalf("expected info entries filtered out, got:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--component", "janitor"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --component: %v", err)
	}
	requireContains(t, out, "gamma-line")
	if strings.Contains(out, "alpha-line") {
		t.Fatalf("expected engine entries filtered out, got:\n%s", out)
	}
}

func TestCLILogsFromFile(t *testing.T) {
	env := newCLITestEnv(t)

	bogusSocket := filepath.Join(env.baseDir, "missing.sock")

	out, _, err := runCLI(t, []string{"logs"}, bogusSocket, env.configPath)
	if err != nil {
		t.Fatalf("logs without daemon: %v", err)
	}
	requireContains(t, out, "No log entries available")

	daemonLog := filepath.Join(env.cfg.Paths.LogDir, "casterd.log")
	for _, line := range []string{"file-alpha", "file-beta", "file-gamma"} {
		if err := appendLine(daemonLog, line); err != nil {
			t.Fatalf("append %s: %v", line, err)
		}
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "2"}, bogusSocket, env.configPath)
	if err != nil {
		t.Fatalf("logs from file: %v", err)
	}
	requireContains(t, out, "file-beta")
	requireContains(t, out, "file-gamma")
	if strings.Contains(out, "file-alpha") {
		t.Fatalf("expected only the last two lines, got:\n%s", out)
	}
}
