package logging

import (
	"strings"
	"time"
)

// ProgressSampler suppresses repetitive transcode progress logs while
// preserving signal when the progress state changes. Live output has no
// percentage, so sampling buckets by produced stream time instead.
type ProgressSampler struct {
	interval   time.Duration
	lastState  string
	lastBucket int64
}

// NewProgressSampler constructs a sampler that emits once per interval of
// stream output time (default 30s) and whenever the state changes.
func NewProgressSampler(interval time.Duration) *ProgressSampler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProgressSampler{interval: interval, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. outputTime is
// the stream time produced so far and may be negative to indicate "unknown";
// state carries ffmpeg's progress marker ("continue" or "end") and is trimmed
// before comparison.
func (ps *ProgressSampler) ShouldLog(outputTime time.Duration, state string) bool {
	if ps == nil {
		return true
	}
	state = strings.TrimSpace(state)
	emit := false
	if state != "" && state != ps.lastState {
		ps.lastState = state
		emit = true
		ps.lastBucket = -1
	}
	if outputTime >= 0 {
		if bucket := int64(outputTime / ps.interval); bucket > ps.lastBucket {
			ps.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new session starts).
func (ps *ProgressSampler) Reset() {
	if ps == nil {
		return
	}
	ps.lastState = ""
	ps.lastBucket = -1
}
