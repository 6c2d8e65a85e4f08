package ffmpeg

import (
	"testing"
	"time"
)

func feedAll(t *testing.T, parser *progressParser, lines []string) []Progress {
	t.Helper()
	var updates []Progress
	for _, line := range lines {
		if update, ok := parser.feed(line); ok {
			updates = append(updates, update)
		}
	}
	return updates
}

func TestProgressParserEmitsOnProgressKey(t *testing.T) {
	parser := newProgressParser()
	updates := feedAll(t, parser, []string{
		"frame=120",
		"fps=29.97",
		"bitrate= 702.3kbits/s",
		"out_time_us=4000000",
		"speed=1.01x",
		"progress=continue",
	})
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	got := updates[0]
	if got.OutputTime != 4*time.Second {
		t.Errorf("OutputTime = %s, want 4s", got.OutputTime)
	}
	if got.FPS != 29.97 {
		t.Errorf("FPS = %v, want 29.97", got.FPS)
	}
	if got.Speed != "1.01x" {
		t.Errorf("Speed = %q, want 1.01x", got.Speed)
	}
	if got.Bitrate != "702.3kbits/s" {
		t.Errorf("Bitrate = %q, want 702.3kbits/s", got.Bitrate)
	}
	if got.State != "continue" {
		t.Errorf("State = %q, want continue", got.State)
	}
}

func TestProgressParserOutTimeVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Duration
	}{
		{"microseconds", "out_time_us=2500000", 2500 * time.Millisecond},
		{"ms key carries microseconds", "out_time_ms=1000000", time.Second},
		{"unparsable value ignored", "out_time_us=garbage", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := newProgressParser()
			updates := feedAll(t, parser, []string{tt.line, "progress=continue"})
			if len(updates) != 1 {
				t.Fatalf("expected one update, got %d", len(updates))
			}
			if updates[0].OutputTime != tt.want {
				t.Errorf("OutputTime = %d, want %d", updates[0].OutputTime, tt.want)
			}
		})
	}
}

func TestProgressParserSkipsUnavailableValues(t *testing.T) {
	parser := newProgressParser()
	updates := feedAll(t, parser, []string{
		"speed=N/A",
		"bitrate=N/A",
		"progress=continue",
	})
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	if updates[0].Speed != "" {
		t.Errorf("Speed = %q, want empty", updates[0].Speed)
	}
	if updates[0].Bitrate != "" {
		t.Errorf("Bitrate = %q, want empty", updates[0].Bitrate)
	}
}

func TestProgressParserIgnoresNoise(t *testing.T) {
	parser := newProgressParser()
	if _, ok := parser.feed("no key value separator here"); ok {
		t.Fatal("expected no update for non key=value line")
	}
	if _, ok := parser.feed(""); ok {
		t.Fatal("expected no update for empty line")
	}
}

func TestProgressParserKeepsOutputTimeAcrossBlocks(t *testing.T) {
	parser := newProgressParser()
	updates := feedAll(t, parser, []string{
		"out_time_us=8000000",
		"speed=1.00x",
		"progress=continue",
		"speed=0.99x",
		"progress=continue",
	})
	if len(updates) != 2 {
		t.Fatalf("expected two updates, got %d", len(updates))
	}
	if updates[1].OutputTime != 8*time.Second {
		t.Errorf("second block OutputTime = %s, want carried 8s", updates[1].OutputTime)
	}
	if updates[1].Speed != "0.99x" {
		t.Errorf("second block Speed = %q, want 0.99x", updates[1].Speed)
	}
}

func TestProgressParserUnknownOutputTimeIsNegative(t *testing.T) {
	parser := newProgressParser()
	updates := feedAll(t, parser, []string{"progress=end"})
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	if updates[0].OutputTime >= 0 {
		t.Errorf("OutputTime = %d, want negative sentinel", updates[0].OutputTime)
	}
	if updates[0].State != "end" {
		t.Errorf("State = %q, want end", updates[0].State)
	}
}
