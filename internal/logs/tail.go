package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of a log file Tail returns and whether it
// blocks waiting for new lines.
type TailOptions struct {
	// Offset is the byte position to resume from. Negative means take the
	// last Limit lines instead.
	Offset int64
	Limit  int

	// Wait bounds how long Follow may block for a new line.
	Wait   time.Duration
	Follow bool
}

// TailResult carries the returned lines and the byte offset to resume from.
type TailResult struct {
	Lines []string
	// Offset points just past the last complete line read.
	Offset int64
}

// Tail reads log lines from path. A missing file yields an empty result with
// offset zero rather than an error, since the daemon creates and rotates the
// file on its own schedule.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return TailResult{}, nil
	case err != nil:
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	case info.IsDir():
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var (
		lines []string
		next  int64
	)
	if opts.Offset < 0 {
		lines, next, err = readTail(path, opts.Limit)
	} else {
		lines, next, err = readFrom(path, min(opts.Offset, info.Size()))
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if len(lines) == 0 && opts.Follow && opts.Wait > 0 {
		return poll(ctx, path, next, opts.Wait)
	}
	return TailResult{Lines: lines, Offset: next}, nil
}

// Log lines are JSON objects that can outgrow bufio's default token size.
func newLineScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

// openLog opens the file for reading. A missing file reports ok=false with a
// nil error so tails treat it as empty; rotation can remove the file between
// any two reads.
func openLog(path string) (*os.File, bool, error) {
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("open %s: %w", path, err)
	}
	return f, true, nil
}

// readTail returns the last limit complete lines and the offset at the end of
// the file. The scan holds at most twice limit lines at a time, so asking for
// a short tail of a large file stays cheap.
func readTail(path string, limit int) ([]string, int64, error) {
	f, ok, err := openLog(path)
	if err != nil || !ok {
		return nil, 0, err
	}
	defer f.Close()

	var kept []string
	if limit > 0 {
		sc := newLineScanner(f)
		for sc.Scan() {
			kept = append(kept, sc.Text())
			if len(kept) == 2*limit {
				kept = append(kept[:0], kept[limit:]...)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", path, err)
		}
		if len(kept) > limit {
			kept = kept[len(kept)-limit:]
		}
	}

	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("locate end of %s: %w", path, err)
	}
	return kept, end, nil
}

// readFrom returns every complete line at or past offset plus the offset to
// resume from.
func readFrom(path string, offset int64) ([]string, int64, error) {
	f, ok, err := openLog(path)
	if err != nil || !ok {
		return nil, 0, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek to offset %d: %w", offset, err)
	}

	var lines []string
	sc := newLineScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", path, err)
	}

	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("locate end of %s: %w", path, err)
	}
	return lines, end, nil
}

// poll rereads the file every quarter second until a line shows up, the wait
// budget runs out, or ctx is cancelled. The returned offset always reflects
// the latest read so callers never see a line twice, and it tracks truncation
// if the file is rotated out from under the poll.
func poll(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	expired := time.NewTimer(wait)
	defer expired.Stop()
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for {
		lines, next, err := readFrom(path, offset)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(lines) > 0 {
			return TailResult{Lines: lines, Offset: next}, nil
		}
		offset = next

		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-expired.C:
			lines, next, err := readFrom(path, offset)
			if err != nil {
				return TailResult{Offset: offset}, err
			}
			return TailResult{Lines: lines, Offset: next}, nil
		case <-tick.C:
		}
	}
}
