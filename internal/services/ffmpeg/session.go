package ffmpeg

import (
	"context"
	"sync"
	"time"
)

// Session is a running transcoder process owned by the stream manager.
type Session struct {
	id        string
	source    string
	startedAt time.Time
	proc      Process
	cancel    context.CancelFunc
	done      chan struct{}

	mu  sync.Mutex
	err error
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Source returns the URL the session is transcoding.
func (s *Session) Source() string { return s.source }

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// PID returns the transcoder process ID, or zero when unavailable.
func (s *Session) PID() int {
	if s.proc == nil {
		return 0
	}
	return s.proc.PID()
}

// Done is closed once the transcoder process has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports the process exit error. It is meaningful only after Done is
// closed; a clean exit yields nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop asks the transcoder to exit and waits for it. Termination starts with
// SIGTERM and escalates to SIGKILL after the executor grace period; the
// provided context bounds only how long Stop waits for the exit.
func (s *Session) Stop(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.cancel()
	close(s.done)
}
