package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"caster/internal/config"
	"caster/internal/logging"
	"caster/internal/services"
)

// PlaylistName is the HLS playlist file ffmpeg writes into the live directory.
const PlaylistName = "index.m3u8"

// segmentPattern names the rolling transport stream chunks.
const segmentPattern = "chunk_%03d.ts"

const defaultStopGrace = 5 * time.Second

var versionPattern = regexp.MustCompile(`ffmpeg version\s+(\S+)`)

// Option customizes a Client beyond its configuration.
type Option func(*Client)

// WithExecutor substitutes the process launcher. Tests use it to fake
// transcoder runs. A nil executor keeps the real one.
func WithExecutor(exec Executor) Option {
	return func(c *Client) { c.exec = exec }
}

// WithStopGrace adjusts how long a stopping session may linger between
// SIGTERM and SIGKILL.
func WithStopGrace(grace time.Duration) Option {
	return func(c *Client) {
		if grace > 0 {
			c.grace = grace
		}
	}
}

// Client wraps ffmpeg CLI interactions for the restream engine.
type Client struct {
	binary  string
	liveDir string
	stream  config.Stream
	logger  *slog.Logger
	exec    Executor
	grace   time.Duration
}

// New constructs an ffmpeg client from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &Client{
		binary:  cfg.FFmpegBinary(),
		liveDir: cfg.Paths.LiveDir,
		stream:  cfg.Stream,
		logger:  logging.NewComponentLogger(logger, "ffmpeg"),
		grace:   defaultStopGrace,
	}
	for _, apply := range opts {
		apply(client)
	}
	if client.exec == nil {
		client.exec = commandExecutor{grace: client.grace}
	}
	return client, nil
}

// Launch starts a transcoder session for the provided source URL. The caller
// owns the returned session and is responsible for stopping it.
func (c *Client) Launch(ctx context.Context, source string) (*Session, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "ffmpeg", "launch", "stream source required", nil)
	}
	if err := os.MkdirAll(c.liveDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ffmpeg", "launch", "create live directory", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		id:        uuid.NewString(),
		source:    source,
		startedAt: time.Now().UTC(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	sessionCtx = services.WithSessionID(services.WithSource(sessionCtx, source), sess.id)
	logger := logging.WithContext(sessionCtx, c.logger)
	sampler := logging.NewProgressSampler(0)
	parser := newProgressParser()

	onStdout := func(line string) {
		update, ok := parser.feed(line)
		if !ok {
			return
		}
		if !sampler.ShouldLog(update.OutputTime, update.State) {
			return
		}
		logger.Info("transcode progress",
			logging.String(logging.FieldEventType, "transcode_progress"),
			logging.Duration(logging.FieldProgressTime, update.OutputTime),
			logging.String(logging.FieldProgressSpeed, update.Speed),
			logging.String(logging.FieldProgressBitrate, update.Bitrate),
		)
	}
	onStderr := func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		logger.Debug("transcoder output", logging.String("line", line))
	}

	args := c.hlsArgs(source)
	proc, err := c.exec.Start(sessionCtx, c.binary, args, onStdout, onStderr)
	if err != nil {
		cancel()
		return nil, services.Wrap(services.ErrExternalTool, "ffmpeg", "launch", "start transcoder", err)
	}
	sess.proc = proc

	go func() {
		waitErr := proc.Wait()
		sess.finish(waitErr)
		if waitErr != nil && sessionCtx.Err() == nil {
			logger.Warn("transcoder exited with error",
				logging.Error(waitErr),
				logging.String(logging.FieldEventType, "transcoder_exited"),
			)
			return
		}
		logger.Info("transcoder exited", logging.String(logging.FieldEventType, "transcoder_exited"))
	}()

	logger.Info("transcoder started",
		logging.String(logging.FieldEventType, "transcoder_started"),
		logging.Int("pid", proc.PID()),
		logging.String("command", c.binary+" "+strings.Join(args, " ")),
	)
	return sess, nil
}

// Version probes the ffmpeg binary and returns its reported version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var firstLine string
	err := c.exec.Run(ctx, c.binary, []string{"-version"}, func(line string) {
		if firstLine == "" {
			firstLine = strings.TrimSpace(line)
		}
	}, nil)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "ffmpeg", "version", "probe transcoder version", err)
	}
	match := versionPattern.FindStringSubmatch(firstLine)
	if len(match) < 2 {
		return "", services.Wrap(services.ErrExternalTool, "ffmpeg", "version",
			fmt.Sprintf("unrecognized version output %q", firstLine), nil)
	}
	return match[1], nil
}

// PlaylistPath returns the full path of the live playlist this client writes.
func (c *Client) PlaylistPath() string {
	return filepath.Join(c.liveDir, PlaylistName)
}

// hlsArgs assembles the transcode command line. The source is read at native
// speed and re-encoded to a low-latency H.264/AAC HLS ladder with a rolling
// segment window.
func (c *Client) hlsArgs(source string) []string {
	return []string{
		"-nostdin",
		"-y",
		"-nostats",
		"-progress", "pipe:1",
		"-re",
		"-i", source,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-b:v", c.stream.VideoBitrate,
		"-maxrate", c.stream.VideoMaxBitrate,
		"-bufsize", c.stream.VideoBufferSize,
		"-vf", fmt.Sprintf("scale=-2:%d", c.stream.ScaleHeight),
		"-c:a", "aac",
		"-ar", strconv.Itoa(c.stream.AudioSampleRate),
		"-b:a", c.stream.AudioBitrate,
		"-f", "hls",
		"-hls_time", strconv.Itoa(c.stream.SegmentSeconds),
		"-hls_list_size", strconv.Itoa(c.stream.PlaylistSize),
		"-hls_flags", "delete_segments+append_list+discont_start",
		"-hls_segment_filename", filepath.Join(c.liveDir, segmentPattern),
		filepath.Join(c.liveDir, PlaylistName),
	}
}
