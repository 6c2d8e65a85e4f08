// Package daemonrun wires together the daemon process: logging, the library
// store, the playback engine, and the IPC and HTTP control surfaces. It exists
// so the casterd binary stays a thin cobra shell.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"caster/internal/config"
	"caster/internal/daemon"
	"caster/internal/ipc"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/services/ffmpeg"
	"caster/internal/stream"
)

// Options carries the flags the casterd command forwards into the runtime.
type Options struct {
	LogLevel    string
	Development bool
}

// runFiles are the per-run artifacts under the log directory. Every daemon
// run writes its own timestamped log and event journal so earlier runs stay
// inspectable after a restart; the pid file and socket are shared.
type runFiles struct {
	id     string
	log    string
	events string
	pid    string
	socket string
}

func newRunFiles(logDir string) runFiles {
	id := time.Now().UTC().Format("20060102T150405.000Z")
	return runFiles{
		id:     id,
		log:    filepath.Join(logDir, "caster-"+id+".log"),
		events: filepath.Join(logDir, "caster-"+id+".events"),
		pid:    filepath.Join(logDir, "casterd.pid"),
		socket: filepath.Join(logDir, "caster.sock"),
	}
}

// Run starts the caster daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	files := newRunFiles(cfg.Paths.LogDir)
	hub := logging.NewStreamHub(4096)
	archive := attachArchive(hub, files.events)
	if archive != nil {
		defer archive.Close()
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", files.log},
		ErrorOutputPaths: []string{"stderr", files.log},
		Development:      opts.Development,
		Stream:           hub,
		RunID:            files.id,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	logStartupSnapshot(logger, cfg)
	if err := refreshLogPointer(cfg.Paths.LogDir, files.log); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update casterd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "caster-*.log", Exclude: []string{files.log}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "caster-*.events", Exclude: []string{files.events}},
	)

	if err := os.WriteFile(files.pid, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(files.pid)

	store, err := library.Open(cfg)
	if err != nil {
		return fmt.Errorf("open library store: %w", err)
	}
	defer store.Close()

	logPreflight(ctx, logger, cfg)

	transcoder, err := ffmpeg.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init transcoder client: %w", err)
	}
	launcher := stream.LauncherFunc(func(ctx context.Context, source string) (stream.Session, error) {
		return transcoder.Launch(ctx, source)
	})
	manager := stream.NewManager(cfg, store, launcher, logger)

	d, err := daemon.New(cfg, store, logger, manager, files.log, hub)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	d.SetLogArchive(archive)
	defer d.Close()

	ipcSrv, err := ipc.NewServer(ctx, files.socket, d, logger)
	if err != nil {
		return fmt.Errorf("serve control socket: %w", err)
	}
	defer ipcSrv.Close()
	ipcSrv.Serve()

	// A daemon that cannot start has nothing to serve: exit nonzero so the
	// container orchestrator sees the failure instead of a healthy zombie.
	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration, live directory access, and that no other caster daemon holds the lock"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("caster daemon shutting down")
	return nil
}

// attachArchive hooks a persistent event journal into hub. Journal failures
// are not fatal; the daemon still runs with in-memory log streaming only.
func attachArchive(hub *logging.StreamHub, path string) *logging.EventArchive {
	archive, err := logging.NewEventArchive(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", err)
		return nil
	}
	if archive != nil {
		hub.AddSink(archive)
	}
	return archive
}

// refreshLogPointer repoints casterd.log at the newest run log. Symlinks are
// preferred; a hard link covers filesystems that refuse them.
func refreshLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	pointer := filepath.Join(logDir, "casterd.log")
	if err := os.Remove(pointer); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if os.Symlink(target, pointer) == nil {
		return nil
	}
	if err := os.Link(target, pointer); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
