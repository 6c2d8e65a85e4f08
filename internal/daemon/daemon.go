package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"caster/internal/api"
	"caster/internal/config"
	"caster/internal/deps"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/notifications"
	"caster/internal/preflight"
	"caster/internal/segments"
	"caster/internal/services"
	"caster/internal/stream"
	"caster/internal/sysmon"
)

// Daemon coordinates the streaming subsystems and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *library.Store
	manager  *stream.Manager
	janitor  *segments.Janitor
	monitor  *sysmon.Monitor
	catalog  *api.CatalogService
	notifier notifications.Service
	api      *apiServer
	logPath  string

	hub     *logging.StreamHub
	archive *logging.EventArchive

	lockPath string
	lock     *flock.Flock

	depsOnce sync.Once
	depsList []deps.Status

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
}

// Status is a point-in-time snapshot of the daemon and its subsystems.
type Status struct {
	Running      bool
	PID          int
	Stream       stream.Status
	System       sysmon.Snapshot
	Disk         segments.Usage
	Library      library.Stats
	LibraryOK    bool
	DatabasePath string
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon around the store and stream manager. The janitor,
// resource monitor, and HTTP API server are built here so every entry point
// shares one wiring.
func New(cfg *config.Config, store *library.Store, logger *slog.Logger, manager *stream.Manager, logPath string, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, logger, and stream manager")
	}

	notifier := notifications.NewService(cfg)
	lockPath := filepath.Join(cfg.Paths.LogDir, "casterd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		janitor:  segments.NewJanitor(cfg, logger),
		monitor:  sysmon.NewMonitorWithNotifier(cfg, manager, logger, notifier),
		catalog:  api.NewCatalogService(store),
		notifier: notifier,
		logPath:  logPath,
		hub:      hub,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the single-instance lock and brings up the subsystems.
// Starting an already running daemon is a no-op.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return nil
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another caster daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Segments from a previous run would be served as live content, so the
	// channel starts from a clean directory.
	if err := d.janitor.Reset(); err != nil {
		d.logger.Warn("failed to clear stale segments",
			logging.Error(err),
			logging.String(logging.FieldEventType, "janitor_reset_failed"),
			logging.String("impact", "clients may briefly see output from the previous run"))
	}

	if err := d.manager.Start(d.ctx); err != nil {
		d.unwind()
		return fmt.Errorf("start stream manager: %w", err)
	}
	if err := d.janitor.Start(d.ctx); err != nil {
		d.manager.Stop()
		d.unwind()
		return fmt.Errorf("start segment janitor: %w", err)
	}
	if err := d.monitor.Start(d.ctx); err != nil {
		d.janitor.Stop()
		d.manager.Stop()
		d.unwind()
		return fmt.Errorf("start resource monitor: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.monitor.Stop()
		d.janitor.Stop()
		d.manager.Stop()
		d.unwind()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("caster daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) unwind() {
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
	_ = d.lock.Unlock()
}

// Stop drains the subsystems and releases the daemon lock. Stopping a
// daemon that never started is a no-op.
func (d *Daemon) Stop() {
	if d.running.Load() {
		d.teardown()
	}
}

func (d *Daemon) teardown() {
	if cancel := d.cancel; cancel != nil {
		d.cancel = nil
		cancel()
	}
	d.api.stop()
	d.monitor.Stop()
	d.janitor.Stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("caster daemon stopped")
}

// Close stops the daemon and closes the backing store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

// StartStream begins playback. A group name takes precedence over a URL.
func (d *Daemon) StartStream(ctx context.Context, url, group string, loop bool) (string, error) {
	group = strings.TrimSpace(group)
	url = strings.TrimSpace(url)
	switch {
	case group != "":
		if err := d.manager.StartGroup(ctx, group, loop); err != nil {
			return "", err
		}
		return fmt.Sprintf("Playlist %s started", group), nil
	case url != "":
		if err := d.manager.StartSolo(ctx, url); err != nil {
			return "", err
		}
		return "Solo stream started", nil
	default:
		return "", services.Wrap(services.ErrValidation, "daemon", "start stream", "url or group required", nil)
	}
}

// StopStream halts playback and leaves the daemon idle.
func (d *Daemon) StopStream(ctx context.Context) error {
	return d.manager.StopPlayback(ctx)
}

// TestNotification publishes a test event using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	switch {
	case d.cfg == nil:
		return false, "configuration unavailable", errors.New("configuration unavailable")
	case strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "":
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "notification send failed", err
	}
	return true, "test notification delivered", nil
}

// Status returns the current daemon status. Subsystem probe failures leave
// their blocks zeroed rather than failing the whole status call.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Stream:       d.manager.Status(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if snap, err := d.monitor.Snapshot(); err == nil {
		status.System = snap
	}
	if usage, err := d.janitor.Usage(); err == nil {
		status.Disk = usage
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Library = stats
		status.LibraryOK = true
	}
	status.Dependencies = d.dependencies(ctx)
	return status
}

// dependencies probes external binaries once per process. Versions do not
// change while the daemon runs.
func (d *Daemon) dependencies(ctx context.Context) []deps.Status {
	d.depsOnce.Do(func() {
		d.depsList = preflight.CheckSystemDeps(ctx, d.cfg)
	})
	return d.depsList
}

// DatabaseHealth returns detailed catalog database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (library.DatabaseHealth, error) {
	if d.store != nil {
		return d.store.CheckHealth(ctx)
	}
	return library.DatabaseHealth{}, errors.New("library store unavailable")
}

// Catalog returns the shared catalog service used by the HTTP and IPC
// surfaces.
func (d *Daemon) Catalog() *api.CatalogService {
	return d.catalog
}

// LogStream exposes the in-memory event hub backing /api/logs.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// LogArchive exposes the on-disk event archive, when one is attached.
func (d *Daemon) LogArchive() *logging.EventArchive {
	return d.archive
}

// SetLogArchive attaches the on-disk event archive. Call before Start.
func (d *Daemon) SetLogArchive(archive *logging.EventArchive) {
	d.archive = archive
}

// LogPath reports where the daemon writes its file log.
func (d *Daemon) LogPath() string { return d.logPath }

// LiveDir returns the HLS output directory served under /stream/.
func (d *Daemon) LiveDir() string {
	return d.janitor.Dir()
}
