package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"caster/internal/config"
	"caster/internal/daemon"
	"caster/internal/ipc"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/stream"
	"caster/internal/testsupport"
)

type fakeSession struct {
	source string
	done   chan struct{}
	once   sync.Once
}

func newFakeSession(source string) *fakeSession {
	return &fakeSession{source: source, done: make(chan struct{})}
}

func (s *fakeSession) ID() string            { return "cli-session" }
func (s *fakeSession) Source() string        { return s.source }
func (s *fakeSession) StartedAt() time.Time  { return time.Now() }
func (s *fakeSession) PID() int              { return 4242 }
func (s *fakeSession) Done() <-chan struct{} { return s.done }
func (s *fakeSession) Err() error            { return nil }

func (s *fakeSession) Stop(context.Context) error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type fakeLauncher struct{}

func (fakeLauncher) Launch(_ context.Context, source string) (stream.Session, error) {
	return newFakeSession(source), nil
}

// cliTestEnv exposes the pieces a CLI test talks to directly. The daemon and
// IPC server behind them are torn down by t.Cleanup.
type cliTestEnv struct {
	cfg        *config.Config
	store      *library.Store
	hub        *logging.StreamHub
	socketPath string
	configPath string
	baseDir    string
}

// newCLITestEnv boots a real daemon with a fake transcoder behind a unix
// socket, plus a config file under a throwaway HOME, so tests can drive the
// full CLI surface end to end.
func newCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	root := t.TempDir()
	home := filepath.Join(root, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("prepare home: %v", err)
	}
	t.Setenv("HOME", home)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe", "casterd"))
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "caster-test.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create log file: %v", err)
	}
	configPath := writeCLIConfigFile(t, home, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := logging.NewStreamHub(256)
	mgr := stream.NewManagerWithNotifier(cfg, store, fakeLauncher{}, logger, nil,
		stream.WithPollInterval(10*time.Millisecond))

	d, err := daemon.New(cfg, store, logger, mgr, logPath, hub)
	if err != nil {
		t.Fatalf("construct daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("start IPC server: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() { cancel(); srv.Close(); d.Close() })

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		hub:        hub,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    root,
	}
}

// writeCLIConfigFile drops a minimal config under HOME at the location the
// CLI resolves by default, and returns its path.
func writeCLIConfigFile(t *testing.T, homeDir string, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(homeDir, ".config", "caster", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	var b strings.Builder
	b.WriteString("[paths]\n")
	fmt.Fprintf(&b, "live_dir = %q\n", cfg.Paths.LiveDir)
	fmt.Fprintf(&b, "log_dir = %q\n", cfg.Paths.LogDir)
	fmt.Fprintf(&b, "database = %q\n", cfg.Paths.Database)
	fmt.Fprintf(&b, "api_bind = %q\n", cfg.Paths.APIBind)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// runCLI executes one caster invocation against the test daemon and returns
// captured stdout, stderr, and the command error.
func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	full := append([]string{"--socket", socket}, args...)
	if configPath != "" {
		full = append([]string{"--config", configPath}, full...)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintln(f, line)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}

func waitFor(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	expired := time.After(timeout)
	for {
		if fn() {
			return
		}
		select {
		case <-expired:
			t.Fatalf("condition not met within %s", timeout)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// requireContains fails the test when substr is missing from output.
func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		return
	}
	t.Fatalf("expected %q to contain %q", output, substr)
}

// syncBuffer is a thread-safe bytes.Buffer for follow tests where a goroutine
// writes while the test polls.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
