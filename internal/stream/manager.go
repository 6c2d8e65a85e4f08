package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"caster/internal/config"
	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/notifications"
)

const defaultStopWait = 10 * time.Second

// Catalog is the library subset the manager reads while resolving playback.
type Catalog interface {
	GetMedia(ctx context.Context, id string) (*library.Media, error)
	GetGroup(ctx context.Context, name string) (*library.Group, error)
}

// Manager owns the single transcoder slot and the playlist monitor.
type Manager struct {
	catalog  Catalog
	launcher Launcher
	logger   *slog.Logger
	notifier notifications.Service
	poll     time.Duration
	stopWait time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	baseCtx context.Context

	// generation increments on every operator action so an in-flight launch
	// can detect it was superseded before it commits.
	generation uint64

	session      Session
	currentTitle string
	stopped      bool
	queue        []string
	index        int
	looping      bool
	group        string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPollInterval overrides the playlist monitor interval.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.poll = interval
		}
	}
}

// WithStopWait bounds how long the manager waits for a stopping session.
func WithStopWait(wait time.Duration) ManagerOption {
	return func(m *Manager) {
		if wait > 0 {
			m.stopWait = wait
		}
	}
}

// NewManager constructs a stream manager.
func NewManager(cfg *config.Config, catalog Catalog, launcher Launcher, logger *slog.Logger, opts ...ManagerOption) *Manager {
	return NewManagerWithNotifier(cfg, catalog, launcher, logger, notifications.NewService(cfg), opts...)
}

// NewManagerWithNotifier constructs a stream manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, catalog Catalog, launcher Launcher, logger *slog.Logger, notifier notifications.Service, opts ...ManagerOption) *Manager {
	poll := time.Duration(cfg.Playlist.PollInterval) * time.Second
	if poll <= 0 {
		poll = 3 * time.Second
	}
	m := &Manager{
		catalog:  catalog,
		launcher: launcher,
		logger:   logging.NewComponentLogger(logger, "stream"),
		notifier: notifier,
		poll:     poll,
		stopWait: defaultStopWait,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins the playlist monitor. Launched sessions are bound to the
// provided context, so canceling it terminates any running transcoder.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("stream manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.baseCtx = runCtx
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.monitor(runCtx)
	return nil
}

// Stop terminates the monitor and reaps any running session.
func (m *Manager) Stop() {
	cancel, sess, ok := m.takeShutdown()
	if !ok {
		return
	}
	cancel()
	m.wg.Wait()
	m.reapSession(sess)
}

// takeShutdown clears running state under the lock and hands back what Stop
// needs to finish outside it.
func (m *Manager) takeShutdown() (context.CancelFunc, Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil, nil, false
	}
	cancel, sess := m.cancel, m.session
	m.running = false
	m.cancel = nil
	m.session = nil
	m.currentTitle = ""
	return cancel, sess, true
}

func (m *Manager) monitor(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.advance(ctx)
		}
	}
}

func (m *Manager) launchContext() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.baseCtx != nil {
		return m.baseCtx
	}
	return context.Background()
}

func (m *Manager) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		m.logger.Warn("notification delivery failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}
