package sysmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"caster/internal/config"
	"caster/internal/logging"
	"caster/internal/notifications"
)

// Snapshot is a point-in-time view of host resources.
type Snapshot struct {
	MemoryPercent        float64
	MemoryTotalBytes     uint64
	MemoryAvailableBytes uint64
	CPUPercent           float64
	Load1                float64
	Load5                float64
	Load15               float64
	Uptime               time.Duration
}

// Guard is the action taken when memory crosses the configured limit.
type Guard interface {
	ResetSession(ctx context.Context, reason string)
}

// Monitor polls /proc and engages the guard under memory pressure.
type Monitor struct {
	limit    float64
	interval time.Duration
	logger   *slog.Logger
	guard    Guard
	notifier notifications.Service
	procRoot string
	started  time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	prev    cpuSample
	hasPrev bool
	lastCPU float64
}

// Option configures optional Monitor behavior.
type Option func(*Monitor)

// WithProcRoot points the monitor at an alternate proc filesystem (tests).
func WithProcRoot(root string) Option {
	return func(m *Monitor) {
		if root != "" {
			m.procRoot = root
		}
	}
}

// WithCheckInterval overrides the polling cadence.
func WithCheckInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// NewMonitor constructs a resource monitor.
func NewMonitor(cfg *config.Config, guard Guard, logger *slog.Logger, opts ...Option) *Monitor {
	return NewMonitorWithNotifier(cfg, guard, logger, notifications.NewService(cfg), opts...)
}

// NewMonitorWithNotifier constructs a resource monitor with a custom
// notifier (used in tests).
func NewMonitorWithNotifier(cfg *config.Config, guard Guard, logger *slog.Logger, notifier notifications.Service, opts ...Option) *Monitor {
	interval := time.Duration(cfg.Sysmon.CheckInterval) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	m := &Monitor{
		limit:    cfg.Sysmon.MemoryLimitPercent,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "sysmon"),
		guard:    guard,
		notifier: notifier,
		procRoot: "/proc",
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins periodic checks until the context is canceled or Stop is
// called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("resource monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.tick(runCtx)
			}
		}
	}()
	return nil
}

// Stop terminates periodic checks.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Monitor) tick(ctx context.Context) {
	snap, err := m.Snapshot()
	if err != nil {
		m.logger.Warn("resource snapshot failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sysmon_read_failed"),
		)
		return
	}
	if m.limit <= 0 || snap.MemoryPercent <= m.limit {
		return
	}

	memory := fmt.Sprintf("%.1f%%", snap.MemoryPercent)
	logging.WarnWithContext(m.logger, "high memory usage, resetting stream", "resource_guard",
		logging.Float64("memory_percent", snap.MemoryPercent),
		logging.Float64("limit_percent", m.limit),
		logging.String(logging.FieldImpact, "active stream interrupted to avoid an OOM kill"),
		logging.String(logging.FieldErrorHint, "lower the stream bitrate or raise sysmon.memory_limit_percent"),
	)
	if m.guard != nil {
		m.guard.ResetSession(ctx, "memory at "+memory)
	}
	if m.notifier != nil {
		if err := m.notifier.Publish(ctx, notifications.EventResourceGuard, notifications.Payload{"memory": memory}); err != nil {
			m.logger.Warn("notification delivery failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"),
			)
		}
	}
}

// Snapshot reads current host resources. CPU utilization is computed from
// the delta since the previous snapshot and reads 0 until one exists.
func (m *Monitor) Snapshot() (Snapshot, error) {
	total, available, err := readMemInfo(m.procRoot)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		MemoryTotalBytes:     total,
		MemoryAvailableBytes: available,
		Uptime:               time.Since(m.started),
	}
	if total > 0 {
		snap.MemoryPercent = (1 - float64(available)/float64(total)) * 100
	}

	if load1, load5, load15, err := readLoadAvg(m.procRoot); err == nil {
		snap.Load1, snap.Load5, snap.Load15 = load1, load5, load15
	}

	sample, err := readCPUSample(m.procRoot)
	if err == nil {
		m.mu.Lock()
		if m.hasPrev {
			m.lastCPU = cpuPercentBetween(m.prev, sample)
		}
		m.prev = sample
		m.hasPrev = true
		snap.CPUPercent = m.lastCPU
		m.mu.Unlock()
	}
	return snap, nil
}
