package config

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docker/go-events"
	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/internal/ratelimiter"
	"github.com/marmos91/dittopnfs/pkg/metrics"
	"github.com/marmos91/dittopnfs/pkg/pnfs/layout"
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
	"github.com/marmos91/dittopnfs/pkg/store/metadata/badger"
	"github.com/marmos91/dittopnfs/pkg/store/metadata/memory"
	"github.com/marmos91/dittopnfs/pkg/telemetry"
	"github.com/mitchellh/mapstructure"
)

// Resolver looks up the addresses of a host name.
// net.DefaultResolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// ResolveDataServers turns host:port entries into the candidate pool.
//
// IP literals are used as is. Host names are resolved and every returned
// address becomes a candidate, in resolver order. Duplicates are kept once.
func ResolveDataServers(ctx context.Context, resolver Resolver, entries []string) ([]netip.AddrPort, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	seen := make(map[netip.AddrPort]struct{}, len(entries))
	pool := make([]netip.AddrPort, 0, len(entries))
	add := func(ap netip.AddrPort) {
		if _, dup := seen[ap]; dup {
			return
		}
		seen[ap] = struct{}{}
		pool = append(pool, ap)
	}

	for i, entry := range entries {
		host, portStr, err := net.SplitHostPort(entry)
		if err != nil {
			return nil, fmt.Errorf("pnfs.data_servers[%d]: %w", i, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil || port == 0 {
			return nil, fmt.Errorf("pnfs.data_servers[%d]: invalid port %q", i, portStr)
		}

		if addr, err := netip.ParseAddr(host); err == nil {
			add(netip.AddrPortFrom(addr.Unmap(), uint16(port)))
			continue
		}

		addrs, err := resolver.LookupNetIP(ctx, "ip", host)
		if err != nil {
			return nil, fmt.Errorf("pnfs.data_servers[%d]: resolve %q: %w", i, host, err)
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("pnfs.data_servers[%d]: %q has no addresses", i, host)
		}
		for _, addr := range addrs {
			add(netip.AddrPortFrom(addr.Unmap(), uint16(port)))
		}
		logger.Debug("Resolved data server %s to %d address(es)", host, len(addrs))
	}

	return pool, nil
}

// BuildDrivers creates the layout driver table in the configured priority
// order.
func BuildDrivers(cfg *PNFSConfig) (*layout.Table, error) {
	drivers := make([]layout.Driver, 0, len(cfg.LayoutTypes))
	for _, name := range cfg.LayoutTypes {
		switch name {
		case LayoutTypeFiles:
			drivers = append(drivers, layout.NewFileDriver())
		case LayoutTypeFlexFiles:
			ff := cfg.FlexFiles
			drivers = append(drivers, layout.NewFlexFileDriver(layout.FlexFileOptions{
				Version:          ff.Version,
				MinorVersion:     ff.MinorVersion,
				User:             ff.User,
				Group:            ff.Group,
				RSize:            ff.RSize,
				WSize:            ff.WSize,
				StatsCollectHint: ff.StatsCollectHint,
			}))
		default:
			return nil, fmt.Errorf("unknown layout type: %q (supported: %s, %s)",
				name, LayoutTypeFiles, LayoutTypeFlexFiles)
		}
	}

	return layout.NewTable(drivers...)
}

// CreateLayoutStore creates a layout store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/metadata/memory (in-memory, ephemeral)
//   - "badger": Uses pkg/store/metadata/badger (BadgerDB, persistent)
func CreateLayoutStore(ctx context.Context, cfg *MetadataConfig) (metadata.LayoutStore, error) {
	defaultIOLayout := BoolValue(cfg.DefaultIOLayout, true)

	switch cfg.Type {
	case "memory":
		return createMemoryLayoutStore(ctx, cfg.Memory, defaultIOLayout)
	case "badger":
		return createBadgerLayoutStore(ctx, cfg.Badger, defaultIOLayout)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createMemoryLayoutStore creates an in-memory layout store.
func createMemoryLayoutStore(ctx context.Context, options map[string]any, defaultIOLayout bool) (metadata.LayoutStore, error) {
	// Check context before creating store
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	storeCfg := memory.MemoryLayoutStoreConfig{DefaultIOLayout: defaultIOLayout}
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory layout store options: %w", err)
	}

	return memory.NewMemoryLayoutStore(storeCfg), nil
}

// createBadgerLayoutStore creates a BadgerDB-based persistent layout store.
func createBadgerLayoutStore(ctx context.Context, options map[string]any, defaultIOLayout bool) (metadata.LayoutStore, error) {
	// Check context before creating store
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	storeCfg := badger.BadgerLayoutStoreConfig{DefaultIOLayout: defaultIOLayout}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger layout store options: %w", err)
	}

	// Validate required fields
	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger layout store: db_path is required")
	}

	store, err := badger.NewBadgerLayoutStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger layout store: %w", err)
	}

	return store, nil
}

// CreateTelemetryReporter builds the report pipeline with the configured
// sinks. It returns nil when telemetry is disabled.
func CreateTelemetryReporter(ctx context.Context, cfg *TelemetryConfig, m metrics.TelemetryMetrics) (*telemetry.Reporter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	sinks := []events.Sink{telemetry.NewMetricsSink(m)}
	if BoolValue(cfg.Log.Enabled, true) {
		sinks = append(sinks, telemetry.NewLogSink())
	}

	if cfg.S3.Enabled {
		sink, err := createS3Sink(ctx, &cfg.S3, m)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, telemetry.NewRetryingSink(sink, 5, time.Second, cfg.S3.MaxRetries))
	}

	return telemetry.NewReporter(telemetry.ReporterConfig{
		Sinks:   sinks,
		Limiter: ratelimiter.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Metrics: m,
	}), nil
}

// createS3Sink creates the S3 archive sink.
func createS3Sink(ctx context.Context, cfg *S3SinkConfig, m metrics.TelemetryMetrics) (*telemetry.S3Sink, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultS3MaxRetries
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Sink
	// ========================================================================

	sink, err := telemetry.NewS3Sink(telemetry.S3SinkConfig{
		Client:    client,
		Bucket:    cfg.Bucket,
		KeyPrefix: cfg.KeyPrefix,
		Timeout:   cfg.Timeout,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 telemetry sink: %w", err)
	}

	logger.Info("S3 telemetry sink initialized: bucket=%s, region=%s, prefix=%s",
		cfg.Bucket, cfg.Region, cfg.KeyPrefix)

	return sink, nil
}
