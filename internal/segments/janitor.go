package segments

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"caster/internal/config"
	"caster/internal/logging"
)

// SweepResult contains the outcome of one janitor pass.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Usage summarizes the live directory and the filesystem beneath it.
type Usage struct {
	SegmentCount   int
	SegmentBytes   int64
	PlaylistExists bool
	DiskTotalBytes uint64
	DiskFreeBytes  uint64
}

// Janitor sweeps expired HLS artifacts out of the live directory.
type Janitor struct {
	dir    string
	ttl    time.Duration
	sweep  time.Duration
	logger *slog.Logger
	statfs func(string) (uint64, uint64, error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Janitor behavior.
type Option func(*Janitor)

// WithSweepInterval overrides the sweep cadence.
func WithSweepInterval(interval time.Duration) Option {
	return func(j *Janitor) {
		if interval > 0 {
			j.sweep = interval
		}
	}
}

// WithSegmentTTL overrides how old a segment must be before removal.
func WithSegmentTTL(ttl time.Duration) Option {
	return func(j *Janitor) {
		if ttl > 0 {
			j.ttl = ttl
		}
	}
}

// NewJanitor constructs a janitor for the configured live directory.
func NewJanitor(cfg *config.Config, logger *slog.Logger, opts ...Option) *Janitor {
	j := &Janitor{
		dir:    cfg.Paths.LiveDir,
		ttl:    time.Duration(cfg.Janitor.SegmentTTL) * time.Second,
		sweep:  time.Duration(cfg.Janitor.SweepInterval) * time.Second,
		logger: logging.NewComponentLogger(logger, "segments"),
		statfs: liveDiskUsage,
	}
	if j.ttl <= 0 {
		j.ttl = 60 * time.Second
	}
	if j.sweep <= 0 {
		j.sweep = 30 * time.Second
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start begins periodic sweeping until the context is canceled or Stop is
// called.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return errors.New("segment janitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				j.SweepOnce(runCtx)
			}
		}
	}()
	return nil
}

// Stop terminates periodic sweeping.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel := j.cancel
	j.running = false
	j.cancel = nil
	j.mu.Unlock()

	cancel()
	j.wg.Wait()
}

// SweepOnce removes transport stream chunks older than the TTL. The playlist
// file is left alone; the transcoder rewrites it in place.
func (j *Janitor) SweepOnce(ctx context.Context) SweepResult {
	result := SweepResult{}

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: j.dir, Error: err})
			j.warnSweep(j.dir, err)
		}
		return result
	}

	cutoff := time.Now().Add(-j.ttl)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ts") {
			continue
		}
		path := filepath.Join(j.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			j.warnSweep(path, err)
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	if len(result.Removed) > 0 {
		j.logger.Info("removed expired segments",
			logging.Int("segments_removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "segment_sweep"),
		)
	}
	return result
}

// Reset clears all HLS artifacts so a fresh boot never serves a previous
// run's stream. The directory is created when missing.
func (j *Janitor) Reset() error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return err
	}
	var errs []error
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".ts") && !strings.HasSuffix(name, ".m3u8") {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.logger.Info("cleared live directory",
			logging.Int("segments_removed", removed),
			logging.String(logging.FieldEventType, "segment_reset"),
		)
	}
	return errors.Join(errs...)
}

// Usage reports segment counts and filesystem headroom for the live
// directory.
func (j *Janitor) Usage() (Usage, error) {
	usage := Usage{}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return usage, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".ts"):
			usage.SegmentCount++
			if info, err := entry.Info(); err == nil {
				usage.SegmentBytes += info.Size()
			}
		case strings.HasSuffix(name, ".m3u8"):
			usage.PlaylistExists = true
		}
	}
	if total, free, err := j.statfs(j.dir); err == nil {
		usage.DiskTotalBytes = total
		usage.DiskFreeBytes = free
	}
	return usage, nil
}

// Dir returns the directory the janitor manages.
func (j *Janitor) Dir() string { return j.dir }

func (j *Janitor) warnSweep(path string, err error) {
	logging.WarnWithContext(j.logger, "segment sweep failed", "segment_sweep_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check live directory permissions"),
		logging.String(logging.FieldImpact, "disk space not reclaimed"),
	)
}

// liveDiskUsage reports total and available bytes on the filesystem
// holding the live directory.
func liveDiskUsage(path string) (uint64, uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, 0, err
	}
	bsize := uint64(fs.Bsize)
	return fs.Blocks * bsize, fs.Bavail * bsize, nil
}
