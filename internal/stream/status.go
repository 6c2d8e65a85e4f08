package stream

import "time"

// State labels the engine's liveness.
type State string

const (
	// StateIdle means no transcoder session is running.
	StateIdle State = "IDLE"
	// StateLive means a transcoder session is producing segments.
	StateLive State = "LIVE"
)

// Status is a point-in-time snapshot of playback.
type Status struct {
	State        State
	CurrentTitle string
	CurrentURL   string
	SessionID    string
	PID          int
	StartedAt    time.Time

	Group         string
	QueuePosition int
	QueueLength   int
	Looping       bool
	Stopped       bool
}

// Status reports the current playback snapshot. A session that exited on its
// own reads as IDLE even before the monitor notices.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		State:       StateIdle,
		Group:       m.group,
		QueueLength: len(m.queue),
		Looping:     m.looping,
		Stopped:     m.stopped,
	}
	if !sessionAlive(m.session) {
		return st
	}
	st.State = StateLive
	st.CurrentTitle = m.currentTitle
	st.CurrentURL = m.session.Source()
	st.SessionID = m.session.ID()
	st.PID = m.session.PID()
	st.StartedAt = m.session.StartedAt()
	if len(m.queue) > 0 && m.index > 0 {
		st.QueuePosition = m.index
	}
	return st
}
