package stream

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"caster/internal/library"
	"caster/internal/logging"
	"caster/internal/notifications"
	"caster/internal/services"
)

// StartSolo clears any playlist and streams a single URL immediately.
func (m *Manager) StartSolo(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return services.Wrap(services.ErrValidation, "stream", "start", "stream url required", nil)
	}

	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.stopped = false
	m.queue = nil
	m.index = 0
	m.looping = false
	m.group = ""
	prev := m.session
	m.session = nil
	m.currentTitle = ""
	m.mu.Unlock()

	m.reapSession(prev)
	if err := m.launch(gen, url, url, ""); err != nil {
		return err
	}
	logging.WithContext(ctx, m.logger).Info("solo stream started",
		logging.String(logging.FieldSource, url),
		logging.String(logging.FieldEventType, "stream_started"),
	)
	m.notify(ctx, notifications.EventStreamStarted, notifications.Payload{"source": url})
	return nil
}

// StartGroup loads a playlist group and hands control to the monitor, which
// starts the first entry on its next tick.
func (m *Manager) StartGroup(ctx context.Context, name string, loop bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "stream", "start", "group name required", nil)
	}
	group, err := m.catalog.GetGroup(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.generation++
	m.stopped = false
	m.queue = append([]string(nil), group.MediaIDs...)
	m.index = 0
	m.looping = loop
	m.group = group.Name
	prev := m.session
	m.session = nil
	m.currentTitle = ""
	m.mu.Unlock()

	m.reapSession(prev)
	logging.WithContext(ctx, m.logger).Info("playlist started",
		logging.String(logging.FieldGroup, group.Name),
		logging.Int("queue_length", group.Size()),
		logging.Bool("looping", loop),
		logging.String(logging.FieldEventType, "playlist_started"),
	)
	m.notify(ctx, notifications.EventPlaylistStarted, notifications.Payload{
		"group":  group.Name,
		"length": strconv.Itoa(group.Size()),
	})
	return nil
}

// StopPlayback engages the stop signal, clears the playlist, and terminates
// the running session.
func (m *Manager) StopPlayback(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	m.stopped = true
	m.queue = nil
	m.index = 0
	m.looping = false
	m.group = ""
	prev := m.session
	m.session = nil
	m.currentTitle = ""
	m.mu.Unlock()

	m.reapSession(prev)
	logging.WithContext(ctx, m.logger).Info("stream stopped", logging.String(logging.FieldEventType, "stream_stopped"))
	m.notify(ctx, notifications.EventStreamStopped, notifications.Payload{"reason": "operator request"})
	return nil
}

// ResetSession terminates the running session without touching the playlist
// or the stop signal. The monitor resumes queued playback on its next tick;
// a solo stream stays down. The memory guard uses this to shed load.
func (m *Manager) ResetSession(ctx context.Context, reason string) {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.currentTitle = ""
	m.mu.Unlock()
	if sess == nil {
		return
	}
	m.reapSession(sess)
	logging.WarnWithContext(m.logger, "transcoder session reset", "session_reset",
		logging.String("reason", reason),
		logging.String(logging.FieldSessionID, sess.ID()),
		logging.String(logging.FieldImpact, "stream interrupted; playlist playback resumes on the next tick"),
		logging.String(logging.FieldErrorHint, "investigate host resource pressure"),
	)
}

// advance is one monitor tick: when playback is wanted and the transcoder
// slot is free, start the next playlist entry.
func (m *Manager) advance(ctx context.Context) {
	m.mu.Lock()
	if m.stopped || len(m.queue) == 0 || sessionAlive(m.session) {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.currentTitle = ""
	if m.index >= len(m.queue) {
		if !m.looping {
			group := m.group
			m.queue = nil
			m.index = 0
			m.group = ""
			m.mu.Unlock()
			m.logger.Info("playlist finished",
				logging.String(logging.FieldGroup, group),
				logging.String(logging.FieldEventType, "playlist_finished"),
			)
			m.notify(ctx, notifications.EventPlaylistFinished, notifications.Payload{"group": group})
			return
		}
		m.index = 0
		m.logger.Info("playlist looping back to start",
			logging.String(logging.FieldGroup, m.group),
			logging.String(logging.FieldEventType, "playlist_loop"),
		)
	}
	id := m.queue[m.index]
	m.index++
	gen := m.generation
	position := m.index
	length := len(m.queue)
	group := m.group
	m.mu.Unlock()

	media, err := m.catalog.GetMedia(ctx, id)
	if err != nil {
		// Broken entries are skipped; the index already moved past them.
		if errors.Is(err, library.ErrMediaNotFound) {
			m.logger.Warn("skipping playlist entry not in library",
				logging.String(logging.FieldMediaID, id),
				logging.String(logging.FieldGroup, group),
				logging.String(logging.FieldEventType, "playlist_entry_skipped"),
				logging.String(logging.FieldErrorHint, "remove the stale id from the group"),
			)
			return
		}
		m.logger.Error("playlist entry lookup failed",
			logging.Error(err),
			logging.String(logging.FieldMediaID, id),
			logging.String(logging.FieldEventType, "playlist_lookup_failed"),
		)
		return
	}

	if err := m.launch(gen, media.Title, media.URL, group); err != nil {
		m.notify(ctx, notifications.EventError, notifications.Payload{
			"context": "playlist playback",
			"error":   err.Error(),
		})
		return
	}
	m.logger.Info("playlist entry started",
		logging.String("media_title", media.Title),
		logging.String(logging.FieldMediaID, media.ID),
		logging.Int("queue_position", position),
		logging.Int("queue_length", length),
		logging.String(logging.FieldGroup, group),
		logging.String(logging.FieldEventType, "playlist_entry_started"),
	)
}

// launch starts a session and commits it unless an operator action
// superseded the attempt while the transcoder was starting. A playlist group
// rides the launch context so session logs carry it.
func (m *Manager) launch(gen uint64, title, url, group string) error {
	ctx := m.launchContext()
	if group != "" {
		ctx = services.WithGroup(ctx, group)
	}
	sess, err := m.launcher.Launch(ctx, url)
	if err != nil {
		m.logger.Error("failed to start transcoder",
			logging.Error(err),
			logging.String(logging.FieldSource, url),
			logging.String(logging.FieldEventType, "transcoder_start_failed"),
		)
		return err
	}

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.reapSession(sess)
		return nil
	}
	m.session = sess
	m.currentTitle = title
	m.mu.Unlock()
	return nil
}

func (m *Manager) reapSession(sess Session) {
	if sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.stopWait)
	defer cancel()
	if err := sess.Stop(ctx); err != nil {
		m.logger.Warn("transcoder did not stop in time",
			logging.Error(err),
			logging.String(logging.FieldSessionID, sess.ID()),
			logging.String(logging.FieldEventType, "transcoder_stop_timeout"),
			logging.String(logging.FieldErrorHint, "the process may need manual cleanup"),
		)
	}
}
