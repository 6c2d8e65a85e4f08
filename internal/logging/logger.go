package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options describes how the daemon logger is assembled.
type Options struct {
	Level  string
	Format string

	// OutputPaths and ErrorOutputPaths accept file paths plus the
	// literals "stdout" and "stderr". Duplicates across the two lists
	// collapse to a single sink.
	OutputPaths      []string
	ErrorOutputPaths []string

	Development bool
	Stream      *StreamHub
	RunID       string
}

// New builds the daemon logger: a console or JSON handler writing to every
// configured path, optionally teed into the stream hub and stamped with the
// run ID.
func New(opts Options) (*slog.Logger, error) {
	out, err := openWriters(opts.OutputPaths, opts.ErrorOutputPaths)
	if err != nil {
		return nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		handler = newPrettyHandler(out, levelVar, addSource)
	case "json":
		handler = newJSONHandler(out, levelVar, addSource)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	if opts.Stream != nil {
		handler = newHubHandler(handler, opts.Stream)
	}
	if runID := strings.TrimSpace(opts.RunID); runID != "" {
		handler = newRunIDHandler(handler, runID)
	}

	return slog.New(handler), nil
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func parseLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// openWriters resolves the union of the output and error path lists into a
// single writer.
func openWriters(outputPaths, errorPaths []string) (io.Writer, error) {
	var writers []io.Writer
	seen := map[string]struct{}{}

	add := func(path string) error {
		path = strings.TrimSpace(path)
		if _, dup := seen[path]; path == "" || dup {
			return nil
		}
		seen[path] = struct{}{}
		switch path {
		case "stdout":
			writers = append(writers, os.Stdout)
			return nil
		case "stderr":
			writers = append(writers, os.Stderr)
			return nil
		}
		if err := ensureLogDir(path); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", path, err)
		}
		writers = append(writers, f)
		return nil
	}

	for _, list := range [][]string{outputPaths, errorPaths} {
		for _, path := range list {
			if err := add(path); err != nil {
				return nil, err
			}
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func ensureLogDir(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0o755)
	}
	return nil
}
