package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(cfg *Config) {},
		},
		{
			name: "IPv6 data server",
			mutate: func(cfg *Config) {
				cfg.PNFS.DataServers = []string{"[fd00::1]:2049", "ds1.example.org:2049"}
			},
		},
		{
			name:    "invalid log level",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "TRACE" },
			wantErr: "Level",
		},
		{
			name:    "data server without port",
			mutate:  func(cfg *Config) { cfg.PNFS.DataServers = []string{"10.0.0.1"} },
			wantErr: "pnfs.data_servers[0]",
		},
		{
			name:    "data server with port zero",
			mutate:  func(cfg *Config) { cfg.PNFS.DataServers = []string{"10.0.0.1:0"} },
			wantErr: "invalid port",
		},
		{
			name:    "duplicate layout type",
			mutate:  func(cfg *Config) { cfg.PNFS.LayoutTypes = []string{LayoutTypeFiles, LayoutTypeFiles} },
			wantErr: "unique",
		},
		{
			name:    "unsupported layout type",
			mutate:  func(cfg *Config) { cfg.PNFS.LayoutTypes = []string{"scsi"} },
			wantErr: "oneof",
		},
		{
			name:    "stripe size not aligned",
			mutate:  func(cfg *Config) { cfg.PNFS.StripeSize = 1000 },
			wantErr: "multiple of 64",
		},
		{
			name:    "NFSv3 with minor version",
			mutate:  func(cfg *Config) { cfg.PNFS.FlexFiles.MinorVersion = 1 },
			wantErr: "minor_version",
		},
		{
			name:    "unknown metadata type",
			mutate:  func(cfg *Config) { cfg.Metadata.Type = "postgres" },
			wantErr: "Type",
		},
		{
			name: "S3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Telemetry.S3.Enabled = true
				cfg.Telemetry.S3.Region = "us-east-1"
			},
			wantErr: "bucket",
		},
		{
			name: "S3 without region",
			mutate: func(cfg *Config) {
				cfg.Telemetry.S3.Enabled = true
				cfg.Telemetry.S3.Bucket = "reports"
			},
			wantErr: "region",
		},
		{
			name: "S3 with half credentials",
			mutate: func(cfg *Config) {
				cfg.Telemetry.S3.Enabled = true
				cfg.Telemetry.S3.Bucket = "reports"
				cfg.Telemetry.S3.Region = "us-east-1"
				cfg.Telemetry.S3.AccessKeyID = "AKIA"
			},
			wantErr: "together",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
