package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// EventArchive journals every published log event to disk as one JSON
// object per line. The HTTP log endpoint reads it when a client asks for
// history older than the in-memory hub still holds.
type EventArchive struct {
	path string

	mu sync.Mutex
	w  *os.File
}

// NewEventArchive opens a fresh journal at path, discarding any previous
// contents. An empty path disables archiving and returns (nil, nil).
func NewEventArchive(path string) (*EventArchive, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, nil
	}
	if err := ensureLogDir(p); err != nil {
		return nil, fmt.Errorf("prepare log journal dir: %w", err)
	}
	w, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log journal %s: %w", p, err)
	}
	return &EventArchive{path: p, w: w}, nil
}

// Append journals one event. Write failures are dropped so a full disk
// never takes the logger down with it.
func (ar *EventArchive) Append(event LogEvent) {
	if ar == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		return
	}
	line = append(line, '\n')

	ar.mu.Lock()
	defer ar.mu.Unlock()
	if ar.w == nil {
		w, err := os.OpenFile(ar.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		ar.w = w
	}
	_, _ = ar.w.Write(line)
}

// ReadSince returns up to limit events with sequence numbers above since,
// plus the sequence of the last event returned. A limit of zero means no
// cap. Callers resume by passing the returned cursor as the next since.
func (ar *EventArchive) ReadSince(since uint64, limit int) ([]LogEvent, uint64, error) {
	if ar == nil || strings.TrimSpace(ar.path) == "" {
		return nil, since, nil
	}
	f, err := os.Open(ar.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, since, nil
	case err != nil:
		return nil, since, fmt.Errorf("open log journal %s: %w", ar.path, err)
	}
	defer f.Close()

	var events []LogEvent
	cursor := since
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			// A torn final line from a crashed writer is not fatal.
			continue
		}
		cursor = max(cursor, event.Sequence)
		if event.Sequence <= since {
			continue
		}
		events = append(events, event)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return events, cursor, fmt.Errorf("scan log journal %s: %w", ar.path, err)
	}
	return events, cursor, nil
}

// Close releases the journal file handle. Append after Close reopens it.
func (ar *EventArchive) Close() error {
	if ar == nil {
		return nil
	}
	ar.mu.Lock()
	defer ar.mu.Unlock()
	w := ar.w
	ar.w = nil
	if w == nil {
		return nil
	}
	return w.Close()
}

// Path reports where the journal lives on disk.
func (ar *EventArchive) Path() string {
	if ar == nil {
		return ""
	}
	return ar.path
}
