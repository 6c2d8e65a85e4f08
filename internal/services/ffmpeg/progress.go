package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress captures one block of ffmpeg -progress output.
type Progress struct {
	OutputTime time.Duration
	FPS        float64
	Speed      string
	Bitrate    string
	State      string
}

// progressParser assembles key=value lines from -progress pipe:1 into
// Progress updates. A block is complete when the progress= line arrives.
type progressParser struct {
	current Progress
}

func newProgressParser() *progressParser {
	return &progressParser{current: Progress{OutputTime: -1}}
}

func (p *progressParser) feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms carries microseconds despite the name.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.OutputTime = time.Duration(us) * time.Microsecond
		}
	case "fps":
		if fps, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = fps
		}
	case "speed":
		if value != "" && value != "N/A" {
			p.current.Speed = value
		}
	case "bitrate":
		if value != "" && value != "N/A" {
			p.current.Bitrate = value
		}
	case "progress":
		p.current.State = value
		update := p.current
		p.current = Progress{OutputTime: update.OutputTime}
		return update, true
	}
	return Progress{}, false
}
