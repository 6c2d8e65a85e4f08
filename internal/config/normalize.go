package config

import (
	"fmt"
	"os"
	"strings"
)

// normalize trims, lowercases, and defaults every section before validation
// so the rest of the daemon never sees a half-filled config.
func (c *Config) normalize() error {
	c.normalizeStream()
	c.normalizeIntervals()
	c.normalizeNotifications()
	c.normalizeLogging()
	return c.normalizePaths()
}

func (c *Config) normalizePaths() error {
	for _, p := range []struct {
		key      string
		field    *string
		fallback string
	}{
		{"paths.live_dir", &c.Paths.LiveDir, defaultLiveDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.database", &c.Paths.Database, defaultDatabase},
	} {
		expanded, err := ExpandPath(trimmedOr(*p.field, p.fallback))
		if err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
		*p.field = expanded
	}
	c.Paths.APIBind = trimmedOr(c.Paths.APIBind, defaultAPIBind)
	c.Paths.APIToken = trimmedOr(c.Paths.APIToken, strings.TrimSpace(os.Getenv("CASTER_API_TOKEN")))
	return nil
}

func (c *Config) normalizeStream() {
	c.Stream.VideoBitrate = normalizeBitrate(c.Stream.VideoBitrate, defaultVideoBitrate)
	c.Stream.VideoMaxBitrate = normalizeBitrate(c.Stream.VideoMaxBitrate, c.Stream.VideoBitrate)
	c.Stream.VideoBufferSize = normalizeBitrate(c.Stream.VideoBufferSize, defaultVideoBufferSize)
	c.Stream.AudioBitrate = normalizeBitrate(c.Stream.AudioBitrate, defaultAudioBitrate)
	c.Stream.ScaleHeight = positiveOr(c.Stream.ScaleHeight, defaultScaleHeight)
	c.Stream.AudioSampleRate = positiveOr(c.Stream.AudioSampleRate, defaultAudioSampleRate)
	c.Stream.SegmentSeconds = positiveOr(c.Stream.SegmentSeconds, defaultSegmentSeconds)
	c.Stream.PlaylistSize = positiveOr(c.Stream.PlaylistSize, defaultPlaylistSize)
	c.Stream.Workers = positiveOr(c.Stream.Workers, defaultWorkers)
	c.Stream.MinVersion = trimmedOr(c.Stream.MinVersion, defaultMinFFmpegVersion)
}

func (c *Config) normalizeIntervals() {
	c.Playlist.PollInterval = positiveOr(c.Playlist.PollInterval, defaultPlaylistPoll)
	c.Janitor.SegmentTTL = positiveOr(c.Janitor.SegmentTTL, defaultSegmentTTL)
	c.Janitor.SweepInterval = positiveOr(c.Janitor.SweepInterval, defaultSweepInterval)
	c.Sysmon.MemoryLimitPercent = positiveOr(c.Sysmon.MemoryLimitPercent, defaultMemoryLimitPercent)
	c.Sysmon.CheckInterval = positiveOr(c.Sysmon.CheckInterval, defaultSysmonCheckInterval)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.RequestTimeout = positiveOr(c.Notifications.RequestTimeout, defaultNotifyTimeout)
}

func (c *Config) normalizeLogging() {
	// Every format except json renders through the console handler.
	if c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format)); c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = trimmedOr(strings.ToLower(c.Logging.Level), defaultLogLevel)
	c.Logging.RetentionDays = max(c.Logging.RetentionDays, 0)
}

// normalizeBitrate lowercases ffmpeg-style rate values such as "700K".
func normalizeBitrate(value, fallback string) string {
	return trimmedOr(strings.ToLower(value), fallback)
}

func trimmedOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func positiveOr[T int | float64](value, fallback T) T {
	if value > 0 {
		return value
	}
	return fallback
}
