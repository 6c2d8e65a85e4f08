package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory, database, and bind address configuration.
type Paths struct {
	LiveDir  string `toml:"live_dir"`
	LogDir   string `toml:"log_dir"`
	Database string `toml:"database"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Stream contains configuration for the HLS transcode pipeline.
type Stream struct {
	VideoBitrate    string `toml:"video_bitrate"`
	VideoMaxBitrate string `toml:"video_max_bitrate"`
	VideoBufferSize string `toml:"video_buffer_size"`
	ScaleHeight     int    `toml:"scale_height"`
	AudioBitrate    string `toml:"audio_bitrate"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
	SegmentSeconds  int    `toml:"segment_seconds"`
	PlaylistSize    int    `toml:"playlist_size"`
	Workers         int    `toml:"workers"`
	MinVersion      string `toml:"min_ffmpeg_version"`
}

// Playlist contains configuration for the playlist monitor loop.
type Playlist struct {
	PollInterval int `toml:"poll_interval"`
}

// Janitor contains configuration for the segment cleanup sweep.
type Janitor struct {
	SegmentTTL    int `toml:"segment_ttl"`
	SweepInterval int `toml:"sweep_interval"`
}

// Sysmon contains configuration for the memory guard.
type Sysmon struct {
	MemoryLimitPercent float64 `toml:"memory_limit_percent"`
	CheckInterval      int     `toml:"check_interval"`
}

// Notifications configures the ntfy publisher.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	StreamEvents   bool   `toml:"stream_events"`
	Errors         bool   `toml:"errors"`
}

// Logging configures log format, level, and retention.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for caster.
//
// Configuration sections by subsystem:
//   - Paths: live output directory, log directory, database, API bind
//   - Stream: ffmpeg transcode settings (bitrates, scaling, HLS windows)
//   - Playlist: playlist monitor timing
//   - Janitor: segment cleanup timing and retention
//   - Sysmon: memory guard thresholds
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Stream        Stream        `toml:"stream"`
	Playlist      Playlist      `toml:"playlist"`
	Janitor       Janitor       `toml:"janitor"`
	Sysmon        Sysmon        `toml:"sysmon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the user config file.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/caster/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults apply and exists reports false so callers can point
// at `caster config init`.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if exists {
		err = decodeInto(&cfg, resolved)
	}
	if err == nil {
		err = cfg.normalize()
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeInto(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// resolveConfigPath picks the config file to use. An explicit path always
// wins; otherwise the user config is tried first, then ./caster.toml.
func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		return firstExistingConfig()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	switch _, statErr := os.Stat(expanded); {
	case statErr == nil:
		return expanded, true, nil
	case errors.Is(statErr, fs.ErrNotExist):
		return expanded, false, nil
	default:
		return "", false, fmt.Errorf("stat config: %w", statErr)
	}
}

func firstExistingConfig() (string, bool, error) {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("caster.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to. All three
// are attempted even when one fails so the error names every bad path.
func (c *Config) EnsureDirectories() error {
	var errs []error
	for _, dir := range []string{c.Paths.LiveDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("create %q: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

// FFmpegBinary names the transcoder executable resolved on PATH.
func (c *Config) FFmpegBinary() string { return "ffmpeg" }

// FFprobeBinary names the stream prober resolved on PATH.
func (c *Config) FFprobeBinary() string { return "ffprobe" }

// BindHostPort splits the configured API bind address.
func (c *Config) BindHostPort() (string, string) {
	host, port, err := splitBind(c.Paths.APIBind)
	if err != nil {
		return "0.0.0.0", "10000"
	}
	return host, port
}

// ExpandPath applies the tilde and relative-path expansion rules used for
// every path in the config file.
func ExpandPath(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if raw == "~" || strings.HasPrefix(raw, "~/") || strings.HasPrefix(raw, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		raw = filepath.Join(home, strings.TrimLeft(strings.TrimPrefix(raw, "~"), `/\`))
	}
	abs, err := filepath.Abs(filepath.Clean(raw))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", raw, err)
	}
	return abs, nil
}

//go:embed sample_config.toml
var sampleConfig string

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
