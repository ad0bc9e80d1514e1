package config

import (
	"context"

	"github.com/marmos91/dittopnfs/pkg/metrics"
	promMetrics "github.com/marmos91/dittopnfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// PNFSMetrics is the collector for the device manager (never nil, uses noop if disabled)
	PNFSMetrics metrics.PNFSMetrics

	// TelemetryMetrics is the collector for the report pipeline (never nil, uses noop if disabled)
	TelemetryMetrics metrics.TelemetryMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server, answering /healthz with health
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config, health func(ctx context.Context) error) *MetricsResult {
	if !cfg.Metrics.Enabled {
		// Metrics disabled - return no-op implementations
		return &MetricsResult{
			Server:           nil,
			PNFSMetrics:      metrics.NewNoopPNFSMetrics(),
			TelemetryMetrics: metrics.NewNoopTelemetryMetrics(),
		}
	}

	// Initialize global Prometheus registry
	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:   cfg.Metrics.Port,
		Health: health,
	})

	return &MetricsResult{
		Server:           server,
		PNFSMetrics:      promMetrics.NewPNFSMetrics(),
		TelemetryMetrics: promMetrics.NewTelemetryMetrics(),
	}
}
