package config

import (
	"strings"
	"time"
)

// Default values for fields left unset.
const (
	DefaultShutdownTimeout       = 30 * time.Second
	DefaultStripeSize            = 1 << 20
	DefaultFlexVersion           = 3
	DefaultFlexUser              = "17"
	DefaultFlexGroup             = "17"
	DefaultFlexIOSize            = 1 << 20
	DefaultTelemetryRate         = 1000
	DefaultTelemetryBurst        = 2000
	DefaultS3MaxRetries          = 3
	DefaultS3Timeout             = 10 * time.Second
	DefaultMetricsPort           = 9090
	DefaultBadgerDBPath          = "/var/lib/dittopnfs/layouts"
	DefaultMetadataStoreType     = "memory"
	DefaultTelemetryS3KeyPrefix  = "layoutreturns"
	DefaultTelemetryLogSinkState = true
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyPNFSDefaults(&cfg.PNFS)
	applyMetadataDefaults(&cfg.Metadata)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyPNFSDefaults(cfg *PNFSConfig) {
	if len(cfg.LayoutTypes) == 0 {
		cfg.LayoutTypes = []string{LayoutTypeFiles, LayoutTypeFlexFiles}
	}
	for i, t := range cfg.LayoutTypes {
		cfg.LayoutTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}
	if cfg.StripeSize == 0 {
		cfg.StripeSize = DefaultStripeSize
	}

	ff := &cfg.FlexFiles
	if ff.Version == 0 {
		ff.Version = DefaultFlexVersion
	}
	if ff.User == "" {
		ff.User = DefaultFlexUser
	}
	if ff.Group == "" {
		ff.Group = DefaultFlexGroup
	}
	if ff.RSize == 0 {
		ff.RSize = DefaultFlexIOSize
	}
	if ff.WSize == 0 {
		ff.WSize = DefaultFlexIOSize
	}
}

// applyMetadataDefaults sets layout store defaults.
func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = DefaultMetadataStoreType
	}
	if cfg.DefaultIOLayout == nil {
		v := true
		cfg.DefaultIOLayout = &v
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Type == "badger" {
		if _, ok := cfg.Badger["db_path"]; !ok {
			cfg.Badger["db_path"] = DefaultBadgerDBPath
		}
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.RateLimit.RequestsPerSecond == 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.RequestsPerSecond = DefaultTelemetryRate
		cfg.RateLimit.Burst = DefaultTelemetryBurst
	}
	if cfg.Log.Enabled == nil {
		v := DefaultTelemetryLogSinkState
		cfg.Log.Enabled = &v
	}
	if cfg.S3.KeyPrefix == "" {
		cfg.S3.KeyPrefix = DefaultTelemetryS3KeyPrefix
	}
	if cfg.S3.MaxRetries == 0 {
		cfg.S3.MaxRetries = DefaultS3MaxRetries
	}
	if cfg.S3.Timeout == 0 {
		cfg.S3.Timeout = DefaultS3Timeout
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
