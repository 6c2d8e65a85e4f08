package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// Validate rejects configurations the daemon cannot run with. All sections
// are checked so one pass reports every bad value.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateBind(),
		c.validateStream(),
		c.validateIntervals(),
		c.validateSysmon(),
		c.validateNotifications(),
	)
}

func (c *Config) validateBind() error {
	if _, _, err := splitBind(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind: %w", err)
	}
	return nil
}

func (c *Config) validateStream() error {
	for key, value := range map[string]string{
		"stream.video_bitrate":     c.Stream.VideoBitrate,
		"stream.video_max_bitrate": c.Stream.VideoMaxBitrate,
		"stream.video_buffer_size": c.Stream.VideoBufferSize,
		"stream.audio_bitrate":     c.Stream.AudioBitrate,
	} {
		if !validBitrate(value) {
			return fmt.Errorf("%s must look like 700k or 2m, got %q", key, value)
		}
	}
	if c.Stream.ScaleHeight%2 != 0 {
		return errors.New("stream.scale_height must be even for H.264 output")
	}
	if c.Stream.Workers > 8 {
		return errors.New("stream.workers must be 8 or fewer")
	}
	return requirePositive([]boundsCheck{
		{"stream.scale_height", c.Stream.ScaleHeight},
		{"stream.audio_sample_rate", c.Stream.AudioSampleRate},
		{"stream.segment_seconds", c.Stream.SegmentSeconds},
		{"stream.playlist_size", c.Stream.PlaylistSize},
		{"stream.workers", c.Stream.Workers},
	})
}

func (c *Config) validateIntervals() error {
	return requirePositive([]boundsCheck{
		{"playlist.poll_interval", c.Playlist.PollInterval},
		{"janitor.segment_ttl", c.Janitor.SegmentTTL},
		{"janitor.sweep_interval", c.Janitor.SweepInterval},
		{"notifications.request_timeout", c.Notifications.RequestTimeout},
	})
}

func (c *Config) validateSysmon() error {
	if limit := c.Sysmon.MemoryLimitPercent; limit <= 0 || limit > 100 {
		return errors.New("sysmon.memory_limit_percent must be between 1 and 100")
	}
	return requirePositive([]boundsCheck{{"sysmon.check_interval", c.Sysmon.CheckInterval}})
}

func (c *Config) validateNotifications() error {
	if strings.ContainsAny(c.Notifications.NtfyTopic, " \t") {
		return errors.New("notifications.ntfy_topic must not contain whitespace")
	}
	return nil
}

func splitBind(bind string) (string, string, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "", "", fmt.Errorf("must be host:port, got %q", bind)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", "", fmt.Errorf("port must be between 1 and 65535, got %q", port)
	}
	if host == "" {
		host = "0.0.0.0"
	}
	return host, port, nil
}

func validBitrate(value string) bool {
	if len(value) < 2 {
		return false
	}
	suffix := value[len(value)-1]
	if suffix != 'k' && suffix != 'm' {
		return false
	}
	n, err := strconv.Atoi(value[:len(value)-1])
	return err == nil && n > 0
}

type boundsCheck struct {
	key   string
	value int
}

// requirePositive reports the first field that is zero or negative, in
// declaration order so failures are stable.
func requirePositive(checks []boundsCheck) error {
	idx := slices.IndexFunc(checks, func(c boundsCheck) bool { return c.value <= 0 })
	if idx < 0 {
		return nil
	}
	return fmt.Errorf("%s must be positive", checks[idx].key)
}
