package logging

import (
	"context"
	"slices"
	"sync"
	"time"
)

const defaultStreamCapacity = 512

// DetailField is one label/value bullet from the console handler's info
// rendering.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

// LogEvent is one structured log line as seen by IPC and HTTP log readers.
type LogEvent struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`

	// Stream attribution, present when the emitting code carried it.
	Component     string `json:"component,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	Source        string `json:"source,omitempty"`
	Group         string `json:"group,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`

	Fields  map[string]string `json:"fields,omitempty"`
	Details []DetailField     `json:"details,omitempty"`
}

// LogEventSink receives every published event, after sequencing.
type LogEventSink interface {
	Append(LogEvent)
}

// StreamHub keeps the most recent log events in a ring and wakes blocked
// readers when new ones arrive. Sequence numbers are dense: every publish
// increments by exactly one, which lets readers resume by number.
type StreamHub struct {
	capacity int

	mu    sync.Mutex
	cond  *sync.Cond
	ring  []LogEvent
	head  int
	size  int
	seq   uint64
	sinks []LogEventSink
}

// NewStreamHub builds a hub retaining up to capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = defaultStreamCapacity
	}
	hub := &StreamHub{capacity: capacity}
	hub.cond = sync.NewCond(&hub.mu)
	return hub
}

// AddSink registers a sink that sees every event published from now on.
func (hub *StreamHub) AddSink(sink LogEventSink) {
	if sink == nil || hub == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.sinks = append(hub.sinks, sink)
}

// Publish sequences evt, stores it, wakes waiting readers, and forwards it
// to the sinks. Sinks run outside the lock so a slow disk cannot stall
// logging.
func (hub *StreamHub) Publish(event LogEvent) {
	if hub == nil {
		return
	}

	hub.mu.Lock()
	hub.seq++
	event.Sequence = hub.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if hub.size < hub.capacity {
		hub.ring = append(hub.ring, event)
		hub.size++
	} else {
		hub.ring[hub.head] = event
		hub.head = (hub.head + 1) % hub.capacity
	}
	sinks := slices.Clone(hub.sinks)
	hub.cond.Broadcast()
	hub.mu.Unlock()

	for _, s := range sinks {
		s.Append(event)
	}
}

// Fetch returns buffered events with sequence above since, oldest first.
// With wait set it blocks until something arrives or ctx ends; otherwise it
// returns immediately, possibly empty. The returned cursor is the hub's
// latest sequence.
func (hub *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]LogEvent, uint64, error) {
	if hub == nil {
		return nil, since, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	limit = hub.clampLimit(limit)
	if wait {
		// Waiters sit in cond.Wait, which a cancelled context cannot
		// interrupt on its own.
		defer context.AfterFunc(ctx, hub.cond.Broadcast)()
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for {
		events, cursor := hub.collectLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, cursor, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, cursor, err
		}
		hub.cond.Wait()
		if err := ctx.Err(); err != nil {
			return nil, hub.seq, err
		}
	}
}

// Tail returns the newest limit events in publish order without blocking.
func (hub *StreamHub) Tail(limit int) ([]LogEvent, uint64) {
	if hub == nil {
		return nil, 0
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	n := min(hub.clampLimit(limit), hub.size)
	if n == 0 {
		return nil, hub.seq
	}
	out := make([]LogEvent, n)
	for i := range out {
		out[i] = hub.ring[(hub.head+hub.size-n+i)%hub.capacity]
	}
	return out, hub.seq
}

// FirstSequence reports the oldest sequence still buffered, or the latest
// sequence when the ring is empty.
func (hub *StreamHub) FirstSequence() uint64 {
	if hub == nil {
		return 0
	}
	hub.mu.Lock()
	first := hub.seq
	if hub.size > 0 {
		first = hub.ring[hub.head].Sequence
	}
	hub.mu.Unlock()
	return first
}

// collectLocked slices out events after since. Dense sequences make the
// ring offset a direct computation rather than a scan.
func (hub *StreamHub) collectLocked(since uint64, limit int) ([]LogEvent, uint64) {
	if hub.size == 0 || since >= hub.seq {
		return nil, hub.seq
	}
	oldest := hub.seq - uint64(hub.size) + 1
	offset := 0
	if since >= oldest {
		offset = int(since - oldest + 1)
	}
	n := min(hub.size-offset, limit)
	out := make([]LogEvent, n)
	for i := range out {
		out[i] = hub.ring[(hub.head+offset+i)%hub.capacity]
	}
	return out, hub.seq
}

// clampLimit bounds a caller-supplied page size to the ring capacity.
// capacity is immutable after construction, so no lock is needed.
func (hub *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > hub.capacity {
		return hub.capacity
	}
	return limit
}
