// Package config provides configuration management for vodarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort          = 8096
	defaultServerTimeout       = 30 * time.Second
	defaultShutdownTimeout     = 10 * time.Second
	defaultMaxOpenConns        = 25
	defaultMaxIdleConns        = 10
	defaultConnMaxIdleTime     = 30 * time.Minute
	defaultSessionIdleTimeout  = 60 * time.Second
	defaultPlaylistWaitTimeout = 10 * time.Second
	defaultShutdownGrace       = 3 * time.Second
	defaultHeartbeatTTL        = 90 * time.Second
	defaultHLSSegmentSeconds   = 4
	defaultCacheLimit          = ByteSize(20 * 1024 * 1024 * 1024) // 20GB
	defaultReaperSchedule      = "@every 5m"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Streaming StreamingConfig `mapstructure:"streaming"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	// DataDir is the base directory for runtime state.
	DataDir string `mapstructure:"data_dir"`
	// TranscodeDir holds completed and in-progress transcode outputs.
	TranscodeDir string `mapstructure:"transcode_dir"`
	// HLSDir holds per-session HLS playlists and segments.
	HLSDir string `mapstructure:"hls_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FFmpegConfig holds FFmpeg binary configuration.
type FFmpegConfig struct {
	BinaryPath string `mapstructure:"binary_path"` // Path to ffmpeg binary (empty = auto-detect)
	ProbePath  string `mapstructure:"probe_path"`  // Path to ffprobe binary (empty = auto-detect)
}

// StreamingConfig holds playback session and transcode pipeline configuration.
type StreamingConfig struct {
	// SessionIdleTimeout is how long an HLS session may go without a
	// playlist or segment request before it is reaped.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	// PlaylistWaitTimeout bounds how long a playlist request blocks while
	// waiting for ffmpeg to produce the first segment.
	PlaylistWaitTimeout time.Duration `mapstructure:"playlist_wait_timeout"`
	// ShutdownGrace is the window between the graceful stop signal and
	// SIGKILL when terminating a pipeline subprocess.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	// HeartbeatTTL is how long a direct-play session survives without a
	// heartbeat.
	HeartbeatTTL time.Duration `mapstructure:"heartbeat_ttl"`
	// HLSSegmentSeconds is the target segment duration.
	HLSSegmentSeconds int `mapstructure:"hls_segment_seconds"`
	// CacheLimit bounds the total size of retained transcode outputs.
	// Supports human-readable values like "20GB" or raw byte counts.
	CacheLimit ByteSize `mapstructure:"cache_limit"`
	// ReaperSchedule is the cron schedule for cache eviction sweeps.
	ReaperSchedule string `mapstructure:"reaper_schedule"`
	// Presets maps resolution names to encode settings.
	Presets map[string]PresetConfig `mapstructure:"presets"`
}

// PresetConfig holds encode settings for one output resolution.
type PresetConfig struct {
	Height        int    `mapstructure:"height"`
	VideoBitrate  string `mapstructure:"video_bitrate"`
	MaxRate       string `mapstructure:"max_rate"`
	BufSize       string `mapstructure:"buf_size"`
	CRF           int    `mapstructure:"crf"`
	Preset        string `mapstructure:"preset"`
	AudioBitrate  string `mapstructure:"audio_bitrate"`
	AudioChannels int    `mapstructure:"audio_channels"`
}

// SetDefaults sets default values on the provided Viper instance.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	// Long-lived byte-serving responses; the server-level write timeout
	// must not cut off streams.
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vodarr.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.transcode_dir", "./data/transcode")
	v.SetDefault("storage.hls_dir", "./data/hls")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)

	// FFmpeg defaults (empty = auto-detect from PATH)
	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")

	// Streaming defaults
	v.SetDefault("streaming.session_idle_timeout", defaultSessionIdleTimeout)
	v.SetDefault("streaming.playlist_wait_timeout", defaultPlaylistWaitTimeout)
	v.SetDefault("streaming.shutdown_grace", defaultShutdownGrace)
	v.SetDefault("streaming.heartbeat_ttl", defaultHeartbeatTTL)
	v.SetDefault("streaming.hls_segment_seconds", defaultHLSSegmentSeconds)
	v.SetDefault("streaming.cache_limit", defaultCacheLimit.String())
	v.SetDefault("streaming.reaper_schedule", defaultReaperSchedule)
}

// DefaultPresets returns the built-in encode presets keyed by resolution name.
// Config-file presets are merged over these.
func DefaultPresets() map[string]PresetConfig {
	return map[string]PresetConfig{
		"1080p": {
			Height:        1080,
			VideoBitrate:  "8000k",
			MaxRate:       "10000k",
			BufSize:       "16000k",
			CRF:           20,
			Preset:        "fast",
			AudioBitrate:  "192k",
			AudioChannels: 2,
		},
		"720p": {
			Height:        720,
			VideoBitrate:  "4000k",
			MaxRate:       "5000k",
			BufSize:       "8000k",
			CRF:           21,
			Preset:        "fast",
			AudioBitrate:  "128k",
			AudioChannels: 2,
		},
		"480p": {
			Height:        480,
			VideoBitrate:  "1500k",
			MaxRate:       "2000k",
			BufSize:       "3000k",
			CRF:           23,
			Preset:        "fast",
			AudioBitrate:  "96k",
			AudioChannels: 2,
		},
	}
}

// Load unmarshals the provided Viper instance into a Config and validates it.
// Defaults must already have been applied via SetDefaults.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))

	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Merge configured presets over the built-in defaults.
	presets := DefaultPresets()
	for name, p := range cfg.Streaming.Presets {
		presets[name] = p
	}
	cfg.Streaming.Presets = presets

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database DSN is required")
	}

	if c.Storage.TranscodeDir == "" {
		return errors.New("storage transcode_dir is required")
	}
	if c.Storage.HLSDir == "" {
		return errors.New("storage hls_dir is required")
	}

	if c.Streaming.SessionIdleTimeout <= 0 {
		return errors.New("streaming session_idle_timeout must be positive")
	}
	if c.Streaming.PlaylistWaitTimeout <= 0 {
		return errors.New("streaming playlist_wait_timeout must be positive")
	}
	if c.Streaming.ShutdownGrace <= 0 {
		return errors.New("streaming shutdown_grace must be positive")
	}
	if c.Streaming.HLSSegmentSeconds <= 0 {
		return errors.New("streaming hls_segment_seconds must be positive")
	}
	if c.Streaming.CacheLimit < 0 {
		return errors.New("streaming cache_limit must not be negative")
	}

	return nil
}
