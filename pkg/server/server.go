package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/pkg/config"
	"github.com/marmos91/dittopnfs/pkg/metrics"
	"github.com/marmos91/dittopnfs/pkg/pnfs"
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
	"github.com/marmos91/dittopnfs/pkg/telemetry"
)

// PNFSServer hosts the pNFS device manager together with the components it
// depends on: the layout store, the telemetry pipeline and the metrics
// endpoint.
//
// Lifecycle:
//  1. Creation: New() builds every component from configuration
//  2. Startup: Serve() starts the metrics endpoint and blocks
//  3. Reload: Reload() applies a new configuration while serving
//  4. Shutdown: Context cancellation drains telemetry and closes the store
//
// The NFSv4.1 front end calls Manager() for LAYOUTGET, GETDEVICEINFO,
// GETDEVICELIST and LAYOUTRETURN.
//
// Example usage:
//
//	srv, err := server.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type PNFSServer struct {
	cfg *config.Config

	manager       *pnfs.DeviceManager
	store         metadata.LayoutStore
	reporter      *telemetry.Reporter
	metricsServer *metrics.Server

	// reloadMu serializes Reload calls
	reloadMu sync.Mutex

	served atomic.Bool
}

// New builds a PNFSServer from configuration.
//
// Host names in pnfs.data_servers are resolved here; a name that does not
// resolve is a startup error.
func New(ctx context.Context, cfg *config.Config) (*PNFSServer, error) {
	if cfg == nil {
		return nil, errors.New("server: configuration is required")
	}

	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	s := &PNFSServer{cfg: cfg}

	metricsResult := config.InitializeMetrics(cfg, s.healthcheck)
	s.metricsServer = metricsResult.Server

	drivers, err := config.BuildDrivers(&cfg.PNFS)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout drivers: %w", err)
	}

	pool, err := config.ResolveDataServers(ctx, nil, cfg.PNFS.DataServers)
	if err != nil {
		return nil, err
	}

	s.store, err = config.CreateLayoutStore(ctx, &cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create layout store: %w", err)
	}

	s.reporter, err = config.CreateTelemetryReporter(ctx, &cfg.Telemetry, metricsResult.TelemetryMetrics)
	if err != nil {
		_ = s.store.Close()
		return nil, fmt.Errorf("failed to create telemetry reporter: %w", err)
	}

	opts := pnfs.Options{
		Drivers:     drivers,
		Store:       s.store,
		DataServers: pool,
		StripeSize:  cfg.PNFS.StripeSize,
		Metrics:     metricsResult.PNFSMetrics,
	}
	if s.reporter != nil {
		opts.Reporter = s.reporter
	}

	s.manager, err = pnfs.NewDeviceManager(opts)
	if err != nil {
		s.closeComponents(ctx)
		return nil, err
	}

	logger.Info("pNFS device manager configured: layout types %v, %d data server address(es), store %s",
		drivers.Types(), len(pool), cfg.Metadata.Type)

	return s, nil
}

// Manager returns the device manager.
func (s *PNFSServer) Manager() *pnfs.DeviceManager {
	return s.manager
}

// Reload applies the parts of cfg that can change at runtime: the log
// level and the data server pool. Other changes need a restart and are
// ignored.
//
// The pool is swapped only after every entry resolved, so a failed reload
// leaves the previous pool in place.
func (s *PNFSServer) Reload(ctx context.Context, cfg *config.Config) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	pool, err := config.ResolveDataServers(ctx, nil, cfg.PNFS.DataServers)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	s.manager.SetDataServers(pool)

	logger.Info("Reloaded configuration: %d data server address(es)", len(pool))
	return nil
}

// Serve blocks until ctx is cancelled or the metrics endpoint fails, then
// shuts every component down within server.shutdown_timeout.
//
// Returns ctx.Err() after a graceful shutdown. Serve may only be called once.
func (s *PNFSServer) Serve(ctx context.Context) error {
	if !s.served.CompareAndSwap(false, true) {
		return errors.New("server: Serve already called")
	}

	errChan := make(chan error, 1)
	if s.metricsServer != nil {
		go func() {
			if err := s.metricsServer.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	logger.Info("dittopnfs is running")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		serveErr = ctx.Err()
	case err := <-errChan:
		logger.Error("Metrics endpoint failed: %v - initiating shutdown", err)
		serveErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.closeComponents(shutdownCtx)

	logger.Info("dittopnfs stopped")
	return serveErr
}

// closeComponents drains telemetry before closing the store so no report
// is lost to an early exit.
func (s *PNFSServer) closeComponents(ctx context.Context) {
	if s.reporter != nil {
		if err := s.reporter.Close(ctx); err != nil {
			logger.Warn("Telemetry did not drain before shutdown: %v", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Stop(ctx); err != nil {
			logger.Warn("Metrics server stop: %v", err)
		}
	}

	if err := s.store.Close(); err != nil {
		logger.Error("Failed to close layout store: %v", err)
	}
}

func (s *PNFSServer) healthcheck(ctx context.Context) error {
	if s.manager == nil {
		return errors.New("device manager not initialized")
	}
	return s.manager.Healthcheck(ctx)
}
