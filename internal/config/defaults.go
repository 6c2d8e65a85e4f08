package config

const (
	defaultLiveDir             = "~/.local/share/caster/live"
	defaultLogDir              = "~/.local/share/caster/logs"
	defaultDatabase            = "~/.local/share/caster/library.db"
	defaultAPIBind             = "0.0.0.0:10000"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 60
	defaultVideoBitrate        = "700k"
	defaultVideoMaxBitrate     = "700k"
	defaultVideoBufferSize     = "1000k"
	defaultScaleHeight         = 480
	defaultAudioBitrate        = "64k"
	defaultAudioSampleRate     = 44100
	defaultSegmentSeconds      = 4
	defaultPlaylistSize        = 3
	defaultWorkers             = 1
	defaultMinFFmpegVersion    = "4.0.0"
	defaultPlaylistPoll        = 3
	defaultSegmentTTL          = 60
	defaultSweepInterval       = 30
	defaultMemoryLimitPercent  = 85
	defaultSysmonCheckInterval = 60
	defaultNotifyTimeout       = 10
)

// Default returns the configuration caster runs with before any file
// or flag overrides are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			LiveDir:  defaultLiveDir,
			LogDir:   defaultLogDir,
			Database: defaultDatabase,
			APIBind:  defaultAPIBind,
		},
		Logging: Logging{
			Level:         defaultLogLevel,
			Format:        defaultLogFormat,
			RetentionDays: defaultLogRetentionDays,
		},
		Stream: Stream{
			VideoBitrate:    defaultVideoBitrate,
			VideoMaxBitrate: defaultVideoMaxBitrate,
			VideoBufferSize: defaultVideoBufferSize,
			ScaleHeight:     defaultScaleHeight,
			AudioBitrate:    defaultAudioBitrate,
			AudioSampleRate: defaultAudioSampleRate,
			SegmentSeconds:  defaultSegmentSeconds,
			PlaylistSize:    defaultPlaylistSize,
			Workers:         defaultWorkers,
			MinVersion:      defaultMinFFmpegVersion,
		},
		Playlist: Playlist{
			PollInterval: defaultPlaylistPoll,
		},
		Janitor: Janitor{
			SegmentTTL:    defaultSegmentTTL,
			SweepInterval: defaultSweepInterval,
		},
		Sysmon: Sysmon{
			MemoryLimitPercent: defaultMemoryLimitPercent,
			CheckInterval:      defaultSysmonCheckInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			StreamEvents:   true,
			Errors:         true,
		},
	}
}
