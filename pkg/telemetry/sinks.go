package telemetry

import (
	"encoding/hex"
	"fmt"
	"time"

	events "github.com/docker/go-events"
	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/pkg/metrics"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
)

// LogSink writes every report to the process log. I/O statistics go to
// DEBUG, I/O errors to WARN.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Write implements events.Sink.
func (s *LogSink) Write(event events.Event) error {
	report, err := asReport(event)
	if err != nil {
		return err
	}

	switch report.Kind {
	case KindIOStats:
		st := report.IOStats
		logger.Debug("iostats: client=%s device=%s stateid=%s read=%d ops/%d bytes write=%d ops/%d bytes",
			report.Client, st.DeviceID, report.StateID, st.ReadOps, st.ReadBytes, st.WriteOps, st.WriteBytes)
	case KindIOErr:
		for _, e := range report.IOErr.Errors {
			logger.Warn("ioerr: client=%s device=%s stateid=%s op=%s status=%s range=[%d, +%d]",
				report.Client, e.DeviceID, report.StateID, e.Op, e.Status, report.IOErr.Offset, report.IOErr.Length)
		}
	}
	return nil
}

// Close implements events.Sink.
func (s *LogSink) Close() error {
	return nil
}

// otherLabel replaces label values the server never issued.
const otherLabel = "other"

// MetricsSink aggregates reports into TelemetryMetrics.
//
// Device ids, statuses and operations come straight from the client, so
// only values this server can produce are used as labels. Anything else is
// counted under "other", which keeps the number of series bounded.
type MetricsSink struct {
	metrics metrics.TelemetryMetrics
}

// NewMetricsSink creates a MetricsSink. A nil m uses the no-op implementation.
func NewMetricsSink(m metrics.TelemetryMetrics) *MetricsSink {
	if m == nil {
		m = metrics.NewNoopTelemetryMetrics()
	}
	return &MetricsSink{metrics: m}
}

// Write implements events.Sink.
func (s *MetricsSink) Write(event events.Event) error {
	report, err := asReport(event)
	if err != nil {
		return err
	}

	switch report.Kind {
	case KindIOStats:
		st := report.IOStats
		dev := deviceLabel(st.DeviceID)
		s.metrics.RecordIOStats(dev, "read", st.ReadBytes, st.ReadOps, st.Read.TotalBusyTime)
		s.metrics.RecordIOStats(dev, "write", st.WriteBytes, st.WriteOps, st.Write.TotalBusyTime)
	case KindIOErr:
		for _, e := range report.IOErr.Errors {
			s.metrics.RecordIOError(deviceLabel(e.DeviceID), opLabel(e.Op), statusLabel(e.Status))
		}
	}
	return nil
}

// deviceLabel keeps hex device ids shaped like the ones the allocator hands
// out (or the MDS device) and folds the rest into otherLabel.
func deviceLabel(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil || len(raw) != len(device.ID{}) {
		return otherLabel
	}
	id := device.ID(raw)
	if id != device.IDOf(id.Number()) || id.Number() > device.MaxDynamicID {
		return otherLabel
	}
	return hexID
}

func statusLabel(status string) string {
	if !types.IsStatusName(status) {
		return otherLabel
	}
	return status
}

func opLabel(op string) string {
	if !types.IsOpName(op) {
		return otherLabel
	}
	return op
}

// Close implements events.Sink.
func (s *MetricsSink) Close() error {
	return nil
}

// NewRetryingSink wraps sink so failed writes are retried behind a circuit
// breaker: after threshold consecutive failures writes back off for
// backoff. A report is dropped after maxAttempts failed writes.
func NewRetryingSink(sink events.Sink, threshold int, backoff time.Duration, maxAttempts int) events.Sink {
	return events.NewRetryingSink(sink, &boundedBreaker{
		Breaker:     events.NewBreaker(threshold, backoff),
		maxAttempts: maxAttempts,
	})
}

// boundedBreaker is an events.Breaker that gives up on an event after
// maxAttempts consecutive failures. RetryingSink delivers events one at a
// time, so consecutive failures always belong to the same event.
type boundedBreaker struct {
	*events.Breaker
	maxAttempts int
	failures    int
}

func (b *boundedBreaker) Success(event events.Event) {
	b.failures = 0
	b.Breaker.Success(event)
}

func (b *boundedBreaker) Failure(event events.Event, err error) bool {
	b.Breaker.Failure(event, err)
	b.failures++
	if b.maxAttempts > 0 && b.failures >= b.maxAttempts {
		logger.Warn("Dropping telemetry report after %d failed attempts: %v", b.failures, err)
		b.failures = 0
		return true
	}
	return false
}

func asReport(event events.Event) (Report, error) {
	switch r := event.(type) {
	case Report:
		return r, nil
	case *Report:
		return *r, nil
	default:
		return Report{}, fmt.Errorf("telemetry: unexpected event %T", event)
	}
}
