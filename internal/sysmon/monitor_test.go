package sysmon

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"caster/internal/config"
	"caster/internal/logging"
	"caster/internal/notifications"
)

type fakeGuard struct {
	mu      sync.Mutex
	reasons []string
}

func (g *fakeGuard) ResetSession(ctx context.Context, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reasons = append(g.reasons, reason)
}

func (g *fakeGuard) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reasons)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) saw(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func writeProcFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// fakeProc builds a proc root reporting the given memory fill percentage.
func fakeProc(t *testing.T, usedPercent int) string {
	t.Helper()
	dir := t.TempDir()
	totalKB := 8_000_000
	availableKB := totalKB * (100 - usedPercent) / 100
	writeProcFile(t, dir, "meminfo",
		"MemTotal:       8000000 kB\n"+
			"MemFree:         100000 kB\n"+
			"MemAvailable:   "+strconv.Itoa(availableKB)+" kB\n"+
			"Buffers:          50000 kB\n"+
			"Cached:          200000 kB\n")
	writeProcFile(t, dir, "loadavg", "1.50 0.75 0.25 2/345 6789\n")
	writeProcFile(t, dir, "stat",
		"cpu  100 0 100 800 0 0 0 0 0 0\n"+
			"cpu0 100 0 100 800 0 0 0 0 0 0\n")
	return dir
}

func newTestMonitor(t *testing.T, procRoot string, opts ...Option) (*Monitor, *fakeGuard, *recordingNotifier) {
	t.Helper()
	cfg := config.Default()
	cfg.Sysmon.MemoryLimitPercent = 85
	guard := &fakeGuard{}
	notifier := &recordingNotifier{}
	opts = append([]Option{WithProcRoot(procRoot)}, opts...)
	m := NewMonitorWithNotifier(&cfg, guard, logging.NewNop(), notifier, opts...)
	return m, guard, notifier
}

func TestSnapshotReadsProc(t *testing.T) {
	m, _, _ := newTestMonitor(t, fakeProc(t, 75))

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.MemoryPercent < 74.9 || snap.MemoryPercent > 75.1 {
		t.Errorf("MemoryPercent = %.2f, want ~75", snap.MemoryPercent)
	}
	if snap.MemoryTotalBytes != 8_000_000*1024 {
		t.Errorf("MemoryTotalBytes = %d", snap.MemoryTotalBytes)
	}
	if snap.Load1 != 1.50 || snap.Load5 != 0.75 || snap.Load15 != 0.25 {
		t.Errorf("load averages = %v %v %v", snap.Load1, snap.Load5, snap.Load15)
	}
	if snap.CPUPercent != 0 {
		t.Errorf("first CPUPercent = %.2f, want 0 until a delta exists", snap.CPUPercent)
	}
	if snap.Uptime <= 0 {
		t.Error("expected positive uptime")
	}
}

func TestSnapshotComputesCPUDelta(t *testing.T) {
	root := fakeProc(t, 50)
	m, _, _ := newTestMonitor(t, root)

	if _, err := m.Snapshot(); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}
	writeProcFile(t, root, "stat",
		"cpu  200 0 200 900 0 0 0 0 0 0\n"+
			"cpu0 200 0 200 900 0 0 0 0 0 0\n")

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	// Delta: total 1000 -> 1300, idle 800 -> 900, so 200/300 busy.
	if snap.CPUPercent < 66.0 || snap.CPUPercent > 67.5 {
		t.Errorf("CPUPercent = %.2f, want ~66.7", snap.CPUPercent)
	}
}

func TestMemInfoFallbackWithoutMemAvailable(t *testing.T) {
	dir := t.TempDir()
	writeProcFile(t, dir, "meminfo",
		"MemTotal:       1000000 kB\n"+
			"MemFree:         300000 kB\n"+
			"Buffers:         100000 kB\n"+
			"Cached:          100000 kB\n")
	writeProcFile(t, dir, "loadavg", "0.00 0.00 0.00 1/100 1\n")
	writeProcFile(t, dir, "stat", "cpu  1 0 1 1 0 0 0 0 0 0\n")
	m, _, _ := newTestMonitor(t, dir)

	snap, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.MemoryAvailableBytes != 500_000*1024 {
		t.Errorf("MemoryAvailableBytes = %d, want MemFree+Buffers+Cached", snap.MemoryAvailableBytes)
	}
	if snap.MemoryPercent < 49.9 || snap.MemoryPercent > 50.1 {
		t.Errorf("MemoryPercent = %.2f, want ~50", snap.MemoryPercent)
	}
}

func TestTickEngagesGuardAboveLimit(t *testing.T) {
	m, guard, notifier := newTestMonitor(t, fakeProc(t, 92))

	m.tick(context.Background())
	if guard.count() != 1 {
		t.Fatalf("guard calls = %d, want 1", guard.count())
	}
	guard.mu.Lock()
	reason := guard.reasons[0]
	guard.mu.Unlock()
	if !strings.Contains(reason, "92.0%") {
		t.Errorf("reason = %q, want memory percentage", reason)
	}
	if !notifier.saw(notifications.EventResourceGuard) {
		t.Error("expected resource guard notification")
	}
}

func TestTickQuietBelowLimit(t *testing.T) {
	m, guard, notifier := newTestMonitor(t, fakeProc(t, 40))

	m.tick(context.Background())
	if guard.count() != 0 {
		t.Fatalf("guard calls = %d, want 0", guard.count())
	}
	if notifier.saw(notifications.EventResourceGuard) {
		t.Error("unexpected resource guard notification")
	}
}

func TestMonitorLifecycle(t *testing.T) {
	m, guard, _ := newTestMonitor(t, fakeProc(t, 95), WithCheckInterval(20*time.Millisecond))

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail while running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && guard.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if guard.count() == 0 {
		t.Fatal("expected guard engagement under memory pressure")
	}

	m.Stop()
	m.Stop() // second Stop is a no-op
}
