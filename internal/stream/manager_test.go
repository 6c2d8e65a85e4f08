package stream_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/notifications"
	"caster/internal/services"
	"caster/internal/stream"
	"caster/internal/testsupport"
)

type fakeSession struct {
	id     string
	source string
	start  time.Time
	done   chan struct{}

	mu      sync.Mutex
	once    sync.Once
	err     error
	stopped bool
}

func newFakeSession(id, source string) *fakeSession {
	return &fakeSession{id: id, source: source, start: time.Now(), done: make(chan struct{})}
}

func (s *fakeSession) ID() string            { return s.id }
func (s *fakeSession) Source() string        { return s.source }
func (s *fakeSession) StartedAt() time.Time  { return s.start }
func (s *fakeSession) PID() int              { return 4242 }
func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.exit(errors.New("terminated"))
	return nil
}

func (s *fakeSession) exit(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *fakeSession) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	sessions []*fakeSession
}

func (l *fakeLauncher) Launch(ctx context.Context, source string) (stream.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	sess := newFakeSession(time.Now().Format("150405.000000"), source)
	l.sessions = append(l.sessions, sess)
	return sess, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

func (l *fakeLauncher) session(i int) *fakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i < 0 || i >= len(l.sessions) {
		return nil
	}
	return l.sessions[i]
}

func (l *fakeLauncher) sources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.sessions))
	for _, sess := range l.sessions {
		out = append(out, sess.source)
	}
	return out
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

func waitFor(t *testing.T, timeout time.Duration, message string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

func newTestManager(t *testing.T) (*stream.Manager, *library.Store, *fakeLauncher, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	launcher := &fakeLauncher{}
	notifier := &recordingNotifier{}
	mgr := stream.NewManagerWithNotifier(cfg, store, launcher, logging.NewNop(), notifier,
		stream.WithPollInterval(20*time.Millisecond),
		stream.WithStopWait(time.Second),
	)
	return mgr, store, launcher, notifier
}

func TestStartSoloLaunchesImmediately(t *testing.T) {
	mgr, _, launcher, notifier := newTestManager(t)

	if err := mgr.StartSolo(context.Background(), "https://example.com/feed.mp4"); err != nil {
		t.Fatalf("StartSolo returned error: %v", err)
	}
	if launcher.count() != 1 {
		t.Fatalf("expected one launch, got %d", launcher.count())
	}
	st := mgr.Status()
	if st.State != stream.StateLive {
		t.Fatalf("State = %s, want LIVE", st.State)
	}
	if st.CurrentURL != "https://example.com/feed.mp4" {
		t.Errorf("CurrentURL = %q", st.CurrentURL)
	}
	if st.Stopped {
		t.Error("stop signal should be clear after a start")
	}
	if !notifier.saw(notifications.EventStreamStarted) {
		t.Error("expected stream started notification")
	}

	if err := mgr.StopPlayback(context.Background()); err != nil {
		t.Fatalf("StopPlayback returned error: %v", err)
	}
	if !launcher.session(0).wasStopped() {
		t.Error("expected session to be stopped")
	}
	st = mgr.Status()
	if st.State != stream.StateIdle || !st.Stopped {
		t.Fatalf("after stop: state=%s stopped=%v", st.State, st.Stopped)
	}
}

func TestStartSoloRequiresURL(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)
	if err := mgr.StartSolo(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartSoloSurfacesLaunchFailure(t *testing.T) {
	mgr, _, launcher, _ := newTestManager(t)
	launcher.err = errors.New("spawn failed")
	if err := mgr.StartSolo(context.Background(), "https://example.com/feed.mp4"); err == nil {
		t.Fatal("expected launch error")
	}
	if st := mgr.Status(); st.State != stream.StateIdle {
		t.Fatalf("State = %s, want IDLE after failed launch", st.State)
	}
}

func TestStartGroupPlaysEntriesInOrderThenFinishes(t *testing.T) {
	mgr, store, launcher, notifier := newTestManager(t)
	first := testsupport.AddMedia(t, store, "First", "https://example.com/first.mp4")
	second := testsupport.AddMedia(t, store, "Second", "https://example.com/second.mp4")
	if _, err := store.SetGroup(context.Background(), "evening", []string{first.ID, second.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "evening", false); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "first entry", func() bool { return launcher.count() == 1 })

	st := mgr.Status()
	if st.State != stream.StateLive || st.Group != "evening" {
		t.Fatalf("status = %+v, want live evening", st)
	}
	if st.QueuePosition != 1 || st.QueueLength != 2 {
		t.Fatalf("queue position/length = %d/%d, want 1/2", st.QueuePosition, st.QueueLength)
	}
	if st.CurrentTitle != "First" {
		t.Errorf("CurrentTitle = %q, want First", st.CurrentTitle)
	}

	launcher.session(0).exit(nil)
	waitFor(t, 2*time.Second, "second entry", func() bool { return launcher.count() == 2 })
	launcher.session(1).exit(nil)
	waitFor(t, 2*time.Second, "playlist to finish", func() bool {
		s := mgr.Status()
		return s.State == stream.StateIdle && s.Group == "" && s.QueueLength == 0
	})

	want := []string{"https://example.com/first.mp4", "https://example.com/second.mp4"}
	got := launcher.sources()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("launched sources = %v, want %v", got, want)
	}
	if !notifier.saw(notifications.EventPlaylistFinished) {
		t.Error("expected playlist finished notification")
	}
}

func TestStartGroupLoopsWhenRequested(t *testing.T) {
	mgr, store, launcher, _ := newTestManager(t)
	only := testsupport.AddMedia(t, store, "Only", "https://example.com/only.mp4")
	if _, err := store.SetGroup(context.Background(), "loop", []string{only.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "loop", true); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "first pass", func() bool { return launcher.count() == 1 })
	launcher.session(0).exit(nil)
	waitFor(t, 2*time.Second, "looped pass", func() bool { return launcher.count() == 2 })

	if st := mgr.Status(); !st.Looping {
		t.Error("expected looping status")
	}
	sources := launcher.sources()
	if sources[0] != sources[1] {
		t.Fatalf("expected the same entry on loop, got %v", sources)
	}
}

func TestStartGroupSkipsEntriesMissingFromLibrary(t *testing.T) {
	mgr, store, launcher, _ := newTestManager(t)
	real := testsupport.AddMedia(t, store, "Real", "https://example.com/real.mp4")
	if _, err := store.SetGroup(context.Background(), "mixed", []string{"ghost-id", real.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "mixed", false); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "surviving entry", func() bool { return launcher.count() == 1 })
	if src := launcher.session(0).Source(); src != "https://example.com/real.mp4" {
		t.Fatalf("launched %q, want the surviving entry", src)
	}
	if st := mgr.Status(); st.QueuePosition != 2 {
		t.Errorf("QueuePosition = %d, want 2", st.QueuePosition)
	}
}

func TestStartGroupUnknownGroup(t *testing.T) {
	mgr, _, launcher, _ := newTestManager(t)
	err := mgr.StartGroup(context.Background(), "missing", true)
	if !errors.Is(err, library.ErrGroupNotFound) {
		t.Fatalf("expected group not found, got %v", err)
	}
	if launcher.count() != 0 {
		t.Fatalf("expected no launches, got %d", launcher.count())
	}
}

func TestStartGroupWithEmptyGroupIdles(t *testing.T) {
	mgr, store, launcher, _ := newTestManager(t)
	if _, err := store.SetGroup(context.Background(), "empty", nil); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "empty", true); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if launcher.count() != 0 {
		t.Fatalf("expected no launches for empty group, got %d", launcher.count())
	}
	if st := mgr.Status(); st.State != stream.StateIdle {
		t.Fatalf("State = %s, want IDLE", st.State)
	}
}

func TestStartSoloReplacesPlaylist(t *testing.T) {
	mgr, store, launcher, _ := newTestManager(t)
	only := testsupport.AddMedia(t, store, "Only", "https://example.com/only.mp4")
	if _, err := store.SetGroup(context.Background(), "loop", []string{only.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "loop", true); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "playlist entry", func() bool { return launcher.count() == 1 })

	if err := mgr.StartSolo(context.Background(), "https://example.com/solo.mp4"); err != nil {
		t.Fatalf("StartSolo returned error: %v", err)
	}
	if !launcher.session(0).wasStopped() {
		t.Error("expected playlist session to be stopped by solo start")
	}

	st := mgr.Status()
	if st.Group != "" || st.QueueLength != 0 || st.Looping {
		t.Fatalf("playlist state should be cleared, got %+v", st)
	}
	if st.CurrentURL != "https://example.com/solo.mp4" {
		t.Fatalf("CurrentURL = %q, want the solo source", st.CurrentURL)
	}

	// The cleared queue must stay cleared; no monitor tick may revive it.
	time.Sleep(100 * time.Millisecond)
	if launcher.count() != 2 {
		t.Fatalf("expected exactly two launches, got %d", launcher.count())
	}
}

func TestStopPlaybackHaltsAdvance(t *testing.T) {
	mgr, store, launcher, notifier := newTestManager(t)
	only := testsupport.AddMedia(t, store, "Only", "https://example.com/only.mp4")
	if _, err := store.SetGroup(context.Background(), "loop", []string{only.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "loop", true); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "playlist entry", func() bool { return launcher.count() == 1 })

	if err := mgr.StopPlayback(context.Background()); err != nil {
		t.Fatalf("StopPlayback returned error: %v", err)
	}
	if !launcher.session(0).wasStopped() {
		t.Error("expected session to be stopped")
	}
	time.Sleep(100 * time.Millisecond)
	if launcher.count() != 1 {
		t.Fatalf("monitor restarted playback after stop: %d launches", launcher.count())
	}
	if !notifier.saw(notifications.EventStreamStopped) {
		t.Error("expected stream stopped notification")
	}
}

func TestResetSessionKeepsPlaylist(t *testing.T) {
	mgr, store, launcher, _ := newTestManager(t)
	only := testsupport.AddMedia(t, store, "Only", "https://example.com/only.mp4")
	if _, err := store.SetGroup(context.Background(), "loop", []string{only.ID}); err != nil {
		t.Fatalf("SetGroup: %v", err)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer mgr.Stop()

	if err := mgr.StartGroup(context.Background(), "loop", true); err != nil {
		t.Fatalf("StartGroup returned error: %v", err)
	}
	waitFor(t, 2*time.Second, "playlist entry", func() bool { return launcher.count() == 1 })

	mgr.ResetSession(context.Background(), "memory pressure")
	if !launcher.session(0).wasStopped() {
		t.Error("expected session stopped by reset")
	}
	// The queue survives a reset, so the monitor restarts playback.
	waitFor(t, 2*time.Second, "playback to resume", func() bool { return launcher.count() == 2 })
	if st := mgr.Status(); st.Group != "loop" || st.Stopped {
		t.Fatalf("playlist should survive reset, got %+v", st)
	}
}

func TestManagerStopReapsSession(t *testing.T) {
	mgr, _, launcher, _ := newTestManager(t)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := mgr.StartSolo(context.Background(), "https://example.com/feed.mp4"); err != nil {
		t.Fatalf("StartSolo returned error: %v", err)
	}

	mgr.Stop()
	if !launcher.session(0).wasStopped() {
		t.Error("expected session stopped on manager shutdown")
	}
	// A second Stop must be a no-op.
	mgr.Stop()
}
