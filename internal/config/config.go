// Package config provides configuration management for demuxcache using
// Viper. It supports configuration from files, environment variables, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultMinSecs             = 1.0
	defaultMinSecsCache        = 10.0
	defaultMaxBytes            = ByteSize(400 * 1024 * 1024)
	defaultMaxBytesBackward    = ByteSize(0)
	defaultPacketOverheadBytes = ByteSize(64)
	defaultDemoDuration        = Duration(60 * time.Second)
	defaultBatchPackets        = 32
)

// Config holds all configuration for the application.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache"`
	Demo    DemoConfig    `mapstructure:"demo"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CacheConfig holds the tunables handed to pkg/cache.Config. Byte sizes
// accept human-readable forms ("400MiB", "1.5GB") via ByteSize instead of
// bare integers.
type CacheConfig struct {
	MinSecs             float64  `mapstructure:"min_secs"`
	MinSecsCache        float64  `mapstructure:"min_secs_cache"`
	MaxBytes            ByteSize `mapstructure:"max_bytes"`
	MaxBytesBackward    ByteSize `mapstructure:"max_bytes_backward"`
	SeekableCache       bool     `mapstructure:"seekable_cache"`
	PacketOverheadBytes ByteSize `mapstructure:"packet_overhead_bytes"`
}

// DemoConfig configures the synthetic producer driven by `demuxcache run`.
type DemoConfig struct {
	Duration     Duration `mapstructure:"duration"`
	BatchPackets int      `mapstructure:"batch_packets"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with DEMUXCACHE_ and use underscores
// for nesting. Example: DEMUXCACHE_CACHE_MAX_BYTES=1GiB.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/demuxcache")
		v.AddConfigPath("$HOME/.demuxcache")
	}

	v.SetEnvPrefix("DEMUXCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cache.min_secs", defaultMinSecs)
	v.SetDefault("cache.min_secs_cache", defaultMinSecsCache)
	v.SetDefault("cache.max_bytes", defaultMaxBytes.String())
	v.SetDefault("cache.max_bytes_backward", defaultMaxBytesBackward.String())
	v.SetDefault("cache.seekable_cache", false)
	v.SetDefault("cache.packet_overhead_bytes", defaultPacketOverheadBytes.String())

	v.SetDefault("demo.duration", defaultDemoDuration.String())
	v.SetDefault("demo.batch_packets", defaultBatchPackets)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Cache.MinSecs <= 0 {
		return fmt.Errorf("cache.min_secs must be positive")
	}
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("cache.max_bytes must be positive")
	}
	if c.Cache.MaxBytesBackward < 0 {
		return fmt.Errorf("cache.max_bytes_backward must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Demo.BatchPackets < 1 {
		return fmt.Errorf("demo.batch_packets must be at least 1")
	}

	return nil
}

// ToCacheConfig converts the loaded configuration into the plain values a
// pkg/cache.Config is built from. Kept separate from pkg/cache so the cache core has no dependency on
// viper or mapstructure tags.
func (c *Config) ToCacheConfig() CacheConfigValues {
	return CacheConfigValues{
		MinSecs:             c.Cache.MinSecs,
		MinSecsCache:        c.Cache.MinSecsCache,
		MaxBytes:            c.Cache.MaxBytes.Bytes(),
		MaxBytesBackward:    c.Cache.MaxBytesBackward.Bytes(),
		SeekableCache:       c.Cache.SeekableCache,
		PacketOverheadBytes: c.Cache.PacketOverheadBytes.Bytes(),
	}
}

// CacheConfigValues mirrors the fields of pkg/cache.Config in plain int64/
// float64 form, letting cmd/demuxcache build a cache.Config without this
// package importing pkg/cache.
type CacheConfigValues struct {
	MinSecs             float64
	MinSecsCache        float64
	MaxBytes            int64
	MaxBytesBackward    int64
	SeekableCache       bool
	PacketOverheadBytes int64
}
