package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
// Example: DITTOPNFS_LOGGING_LEVEL=DEBUG
const EnvPrefix = "DITTOPNFS"

// Config represents the complete dittopnfs configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOPNFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Store Configuration Pattern:
// Each layout store implementation defines its own configuration type and
// factory. Metadata holds one map per store type and only the section
// matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server"`

	// PNFS configures the device manager and its layout drivers
	PNFS PNFSConfig `mapstructure:"pnfs"`

	// Metadata selects the layout store answering "does this file have an I/O layout"
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Telemetry configures the layout-return report pipeline
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// Layout type names accepted in pnfs.layout_types.
const (
	LayoutTypeFiles     = "nfsv4_1_files"
	LayoutTypeFlexFiles = "flex_files"
)

// PNFSConfig configures the device manager.
type PNFSConfig struct {
	// DataServers lists the data servers as host:port. Host names are
	// resolved at load time and every address becomes a candidate.
	DataServers []string `mapstructure:"data_servers" validate:"dive,required"`

	// LayoutTypes lists the served layout types; the first one is the
	// default offered to clients.
	LayoutTypes []string `mapstructure:"layout_types" validate:"required,min=1,unique,dive,oneof=nfsv4_1_files flex_files"`

	// StripeSize is the stripe unit encoded in layouts, in bytes.
	// Must be a multiple of 64 (the file layout reserves the low bits).
	StripeSize uint32 `mapstructure:"stripe_size" validate:"required,gte=64"`

	// FlexFiles parameterizes the flex file layout driver
	FlexFiles FlexFilesConfig `mapstructure:"flex_files"`
}

// FlexFilesConfig parameterizes the flex file layout driver.
type FlexFilesConfig struct {
	// Version is the NFS version spoken by the data servers (3 or 4)
	Version uint32 `mapstructure:"version" validate:"oneof=3 4"`

	// MinorVersion is the NFS minor version (0 for NFSv3)
	MinorVersion uint32 `mapstructure:"minor_version" validate:"lte=2"`

	// User and Group are the synthetic credentials clients present to
	// loosely coupled data servers
	User  string `mapstructure:"user" validate:"required"`
	Group string `mapstructure:"group" validate:"required"`

	// RSize and WSize are advertised per data server
	RSize uint32 `mapstructure:"rsize"`
	WSize uint32 `mapstructure:"wsize"`

	// StatsCollectHint asks clients to report I/O statistics every n seconds
	StatsCollectHint uint32 `mapstructure:"stats_collect_hint"`
}

// MetadataConfig specifies the layout store.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type MetadataConfig struct {
	// Type specifies which layout store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// DefaultIOLayout is the answer for files without an explicit decision.
	// Default: true (files are served by data servers)
	DefaultIOLayout *bool `mapstructure:"default_io_layout"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// TelemetryConfig configures the layout-return report pipeline.
type TelemetryConfig struct {
	// Enabled turns on forwarding of flex file layout return statistics
	Enabled bool `mapstructure:"enabled"`

	// RateLimit throttles reports per client
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Log writes reports to the process log
	Log LogSinkConfig `mapstructure:"log"`

	// S3 archives reports as JSON objects
	S3 S3SinkConfig `mapstructure:"s3"`
}

// RateLimitConfig configures a token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (0 = unlimited)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`

	// Burst is the bucket capacity
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// LogSinkConfig configures the log sink.
type LogSinkConfig struct {
	// Enabled defaults to true
	Enabled *bool `mapstructure:"enabled"`
}

// S3SinkConfig configures the S3 archive sink.
type S3SinkConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Bucket and Region are required when enabled
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`

	// KeyPrefix is prepended to every object key
	KeyPrefix string `mapstructure:"key_prefix"`

	// Endpoint overrides the S3 endpoint (MinIO, Localstack)
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`

	// AccessKeyID and SecretAccessKey are optional static credentials;
	// the default AWS credential chain is used otherwise
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// MaxRetries is the AWS SDK retry budget per request
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`

	// Timeout bounds a single upload
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port serves /metrics and /healthz
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	return decode(v)
}

// decode unmarshals, defaults and validates the configuration held by v.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/dittopnfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittopnfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittopnfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}

// BoolValue dereferences an optional boolean, using def when unset.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
