package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"caster/internal/logging"
	"caster/internal/services"
	"caster/internal/services/ffmpeg"
	"caster/internal/testsupport"
)

type stubProcess struct {
	pid  int
	exit chan error

	mu      sync.Mutex
	signals []os.Signal
}

func (p *stubProcess) Wait() error { return <-p.exit }

func (p *stubProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, sig)
	return nil
}

func (p *stubProcess) PID() int { return p.pid }

type stubExecutor struct {
	stdout   []string
	stderr   []string
	startErr error
	runErr   error
	exitErr  error
	hang     bool
	ignore   bool // never exit, even on context cancellation

	mu    sync.Mutex
	calls int
	args  [][]string
}

func (s *stubExecutor) record(args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	s.record(args)
	for _, line := range s.stdout {
		if onStdout != nil {
			onStdout(line)
		}
	}
	for _, line := range s.stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	return s.runErr
}

func (s *stubExecutor) Start(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) (ffmpeg.Process, error) {
	s.record(args)
	if s.startErr != nil {
		return nil, s.startErr
	}
	for _, line := range s.stdout {
		if onStdout != nil {
			onStdout(line)
		}
	}
	for _, line := range s.stderr {
		if onStderr != nil {
			onStderr(line)
		}
	}
	proc := &stubProcess{pid: 4242, exit: make(chan error, 1)}
	switch {
	case s.ignore:
	case s.hang:
		go func() {
			<-ctx.Done()
			proc.exit <- errors.New("terminated")
		}()
	default:
		proc.exit <- s.exitErr
	}
	return proc, nil
}

func TestLaunchBuildsTranscodeCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}

	sess, err := client.Launch(context.Background(), "https://example.com/feed.mp4")
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}
	<-sess.Done()
	if sess.Err() != nil {
		t.Fatalf("session exit error: %v", sess.Err())
	}
	if sess.PID() != 4242 {
		t.Errorf("PID = %d, want 4242", sess.PID())
	}
	if sess.Source() != "https://example.com/feed.mp4" {
		t.Errorf("Source = %q", sess.Source())
	}
	if sess.ID() == "" {
		t.Error("expected non-empty session id")
	}
	if info, statErr := os.Stat(cfg.Paths.LiveDir); statErr != nil || !info.IsDir() {
		t.Fatalf("expected live directory to exist: %v", statErr)
	}

	want := []string{
		"-nostdin",
		"-y",
		"-nostats",
		"-progress", "pipe:1",
		"-re",
		"-i", "https://example.com/feed.mp4",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-b:v", "700k",
		"-maxrate", "700k",
		"-bufsize", "1000k",
		"-vf", "scale=-2:480",
		"-c:a", "aac",
		"-ar", "44100",
		"-b:a", "64k",
		"-f", "hls",
		"-hls_time", "4",
		"-hls_list_size", "3",
		"-hls_flags", "delete_segments+append_list+discont_start",
		"-hls_segment_filename", filepath.Join(cfg.Paths.LiveDir, "chunk_%03d.ts"),
		filepath.Join(cfg.Paths.LiveDir, "index.m3u8"),
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.calls != 1 {
		t.Fatalf("expected one executor invocation, got %d", exec.calls)
	}
	if !slices.Equal(exec.args[0], want) {
		t.Fatalf("unexpected transcode args:\n got %v\nwant %v", exec.args[0], want)
	}
}

func TestLaunchRequiresSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	if _, err := client.Launch(context.Background(), "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLaunchWrapsStartFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{startErr: errors.New("exec format error")}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	_, err = client.Launch(context.Background(), "https://example.com/feed.mp4")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSessionStopTerminatesProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{hang: true}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	sess, err := client.Launch(context.Background(), "https://example.com/feed.mp4")
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}

	select {
	case <-sess.Done():
		t.Fatal("session finished before stop was requested")
	case <-time.After(20 * time.Millisecond):
	}

	if err := sess.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	select {
	case <-sess.Done():
	default:
		t.Fatal("expected Done to be closed after Stop")
	}
	if sess.Err() == nil {
		t.Error("expected exit error after forced termination")
	}
}

func TestSessionStopWaitBoundedByContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{ignore: true}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	sess, err := client.Launch(context.Background(), "https://example.com/feed.mp4")
	if err != nil {
		t.Fatalf("Launch returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := sess.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded waiting for a wedged process, got %v", err)
	}
}

func TestVersionParsesBanner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{stdout: []string{
		"ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers",
		"built with gcc 13 (GCC)",
	}}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	version, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if version != "6.1.1" {
		t.Errorf("Version = %q, want 6.1.1", version)
	}
}

func TestVersionRejectsUnrecognizedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{stdout: []string{"not a transcoder"}}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	if _, err := client.Version(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestVersionPropagatesRunFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := &stubExecutor{runErr: errors.New("no such binary")}
	client, err := ffmpeg.New(cfg, logging.NewNop(), ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("construct client: %v", err)
	}
	if _, err := client.Version(context.Background()); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
