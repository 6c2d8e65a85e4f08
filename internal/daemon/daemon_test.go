package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"caster/internal/daemon"
	"caster/internal/logging"
	"caster/internal/notifications"
	"caster/internal/stream"
	"caster/internal/testsupport"
)

type fakeSession struct {
	source string
	start  time.Time
	done   chan struct{}

	mu   sync.Mutex
	once sync.Once
	err  error
}

func newFakeSession(source string) *fakeSession {
	return &fakeSession{source: source, start: time.Now(), done: make(chan struct{})}
}

func (s *fakeSession) ID() string            { return "test-session" }
func (s *fakeSession) Source() string        { return s.source }
func (s *fakeSession) StartedAt() time.Time  { return s.start }
func (s *fakeSession) PID() int              { return 4242 }
func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Stop(context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = errors.New("terminated")
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

type fakeLauncher struct {
	mu       sync.Mutex
	sessions []*fakeSession
}

func (l *fakeLauncher) Launch(_ context.Context, source string) (stream.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sess := newFakeSession(source)
	l.sessions = append(l.sessions, sess)
	return sess, nil
}

func newTestDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	notifier := notifications.NewService(cfg)
	mgr := stream.NewManagerWithNotifier(cfg, store, &fakeLauncher{}, logger, notifier,
		stream.WithPollInterval(10*time.Millisecond))
	d, err := daemon.New(cfg, store, logger, mgr, filepath.Join(cfg.Paths.LogDir, "caster.log"), logging.NewStreamHub(128))
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx := t.Context()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := d.Status(ctx)
	if status.PID <= 0 {
		t.Fatalf("expected a pid, got %d", status.PID)
	}
	if !status.Running {
		t.Fatal("daemon should report running after Start")
	}

	// Second start is a no-op on the running process.
	if err := d.Start(ctx); err != nil {
		t.Fatalf("second start should be a no-op, got %v", err)
	}

	d.Stop()
	if status := d.Status(ctx); status.Running {
		t.Fatal("daemon should report stopped after Stop")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	notifier := notifications.NewService(cfg)
	mgr := stream.NewManagerWithNotifier(cfg, store, &fakeLauncher{}, logger, notifier)
	logPath := filepath.Join(cfg.Paths.LogDir, "caster.log")

	first, err := daemon.New(cfg, store, logger, mgr, logPath, logging.NewStreamHub(16))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, store, logger, mgr, logPath, logging.NewStreamHub(16))
	if err != nil {
		t.Fatalf("daemon.New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance start to fail while lock is held")
	}

	first.Stop()
}

func TestDaemonStreamControl(t *testing.T) {
	d := newTestDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	message, err := d.StartStream(ctx, "https://example.com/movie.mp4", "", true)
	if err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	if message != "Solo stream started" {
		t.Fatalf("unexpected start message: %q", message)
	}

	status := d.Status(ctx)
	if status.Stream.State != stream.StateLive {
		t.Fatalf("expected live engine, got %s", status.Stream.State)
	}
	if status.Stream.CurrentURL != "https://example.com/movie.mp4" {
		t.Fatalf("unexpected source: %q", status.Stream.CurrentURL)
	}

	if err := d.StopStream(ctx); err != nil {
		t.Fatalf("StopStream failed: %v", err)
	}
	status = d.Status(ctx)
	if status.Stream.State != stream.StateIdle {
		t.Fatalf("expected idle engine after stop, got %s", status.Stream.State)
	}

	if _, err := d.StartStream(ctx, "", "", true); err == nil {
		t.Fatal("expected error when neither url nor group is given")
	}

	d.Stop()
}

func TestDaemonStatusAggregates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.AddMedia(t, store, "Sintel", "https://example.com/sintel.mp4")
	logger := logging.NewNop()
	notifier := notifications.NewService(cfg)
	mgr := stream.NewManagerWithNotifier(cfg, store, &fakeLauncher{}, logger, notifier)

	d, err := daemon.New(cfg, store, logger, mgr, filepath.Join(cfg.Paths.LogDir, "caster.log"), logging.NewStreamHub(16))
	if err != nil {
		t.Fatalf("build daemon: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	status := d.Status(ctx)
	if !status.LibraryOK || status.Library.Media != 1 {
		t.Fatalf("unexpected library block: %+v ok=%v", status.Library, status.LibraryOK)
	}
	if status.DatabasePath != cfg.Paths.Database {
		t.Fatalf("unexpected database path: %q", status.DatabasePath)
	}
	if status.LockFilePath == "" {
		t.Fatal("expected a lock file path")
	}
	if len(status.Dependencies) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe dependency entries, got %d", len(status.Dependencies))
	}
	if status.Dependencies[0].Name != "FFmpeg" {
		t.Fatalf("unexpected first dependency: %+v", status.Dependencies[0])
	}

	d.Stop()
}

func TestDaemonTestNotification(t *testing.T) {
	d := newTestDaemon(t)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification returned error: %v", err)
	}
	if sent {
		t.Fatal("expected no send without a configured topic")
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message: %q", message)
	}
}
