package telemetry

import (
	"context"
	"errors"
	"net/netip"
	"sync/atomic"
	"time"

	events "github.com/docker/go-events"
	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/internal/ratelimiter"
	"github.com/marmos91/dittopnfs/pkg/metrics"
)

// ErrReporterClosed is returned by Close when the reporter was already closed.
var ErrReporterClosed = errors.New("telemetry: reporter closed")

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	// Sinks receive every admitted report. Each sink gets its own queue so a
	// slow sink does not hold up the others.
	Sinks []events.Sink

	// Limiter throttles reports per client. Nil admits everything.
	Limiter *ratelimiter.RateLimiter

	// Metrics records dropped reports. Nil uses the no-op implementation.
	Metrics metrics.TelemetryMetrics
}

// Reporter turns layout returns into reports and dispatches them to the
// sinks without blocking the caller.
//
// Thread safety:
// ReportLayoutReturn and Report are safe for concurrent use and may race
// with Close; reports arriving after Close are dropped.
type Reporter struct {
	queue       *events.Queue
	broadcaster *events.Broadcaster
	limiter     *ratelimiter.RateLimiter
	metrics     metrics.TelemetryMetrics
	closed      atomic.Bool
	now         func() time.Time
}

// NewReporter starts the dispatch pipeline.
func NewReporter(config ReporterConfig) *Reporter {
	m := config.Metrics
	if m == nil {
		m = metrics.NewNoopTelemetryMetrics()
	}

	queued := make([]events.Sink, 0, len(config.Sinks))
	for _, sink := range config.Sinks {
		queued = append(queued, events.NewQueue(sink))
	}
	broadcaster := events.NewBroadcaster(queued...)

	return &Reporter{
		queue:       events.NewQueue(broadcaster),
		broadcaster: broadcaster,
		limiter:     config.Limiter,
		metrics:     m,
		now:         time.Now,
	}
}

// ReportLayoutReturn forwards every record of a flex file layout return.
// The stateid identifies the returned layout in logs only; each record
// carries its own stateid.
func (r *Reporter) ReportLayoutReturn(client netip.Addr, stateID types.StateID, lr *xdr.FlexLayoutReturn) {
	reports := ReportsFromLayoutReturn(client, lr, r.now())
	if len(reports) == 0 {
		return
	}

	logger.Debug("Layout return %s from %s: %d iostats, %d ioerr records",
		stateID, client, len(lr.IOStatsReport), len(lr.IOErrReport))

	for _, report := range reports {
		r.Report(report)
	}
}

// Report enqueues a single report. It returns false when the report was
// dropped by the rate limiter or because the reporter is closed.
func (r *Reporter) Report(report Report) bool {
	if r.closed.Load() {
		r.metrics.RecordDropped("closed")
		return false
	}
	if r.limiter != nil && !r.limiter.AllowKey(report.Client) {
		r.metrics.RecordDropped("rate_limited")
		return false
	}
	if err := r.queue.Write(report); err != nil {
		r.metrics.RecordDropped("closed")
		return false
	}
	return true
}

// Close flushes pending reports to the sinks and closes them. If ctx
// expires first, Close returns its error and the flush continues in the
// background.
func (r *Reporter) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrReporterClosed
	}

	done := make(chan error, 1)
	go func() {
		done <- r.queue.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Warn("Telemetry flush did not complete: %v", ctx.Err())
		return ctx.Err()
	}
}
