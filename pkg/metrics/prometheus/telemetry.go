package prometheus

import (
	"time"

	"github.com/marmos91/dittopnfs/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// telemetryMetrics is the Prometheus implementation of metrics.TelemetryMetrics.
type telemetryMetrics struct {
	ioBytes    *prometheus.CounterVec
	ioOps      *prometheus.CounterVec
	ioBusy     *prometheus.CounterVec
	ioErrors   *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	sinkErrors *prometheus.CounterVec
}

// NewTelemetryMetrics creates a new Prometheus-backed TelemetryMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled.
func NewTelemetryMetrics() metrics.TelemetryMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopTelemetryMetrics()
	}
	return newTelemetryMetrics(metrics.GetRegistry())
}

func newTelemetryMetrics(reg prometheus.Registerer) *telemetryMetrics {
	return &telemetryMetrics{
		ioBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_client_io_bytes_total",
				Help: "Bytes completed against data servers as reported by clients on layout return",
			},
			[]string{"device", "direction"},
		),
		ioOps: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_client_io_operations_total",
				Help: "Operations completed against data servers as reported by clients",
			},
			[]string{"device", "direction"},
		),
		ioBusy: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_client_io_busy_seconds_total",
				Help: "Time data servers were busy as reported by clients",
			},
			[]string{"device", "direction"},
		),
		ioErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_client_io_errors_total",
				Help: "Data server errors reported by clients on layout return",
			},
			[]string{"device", "operation", "status"},
		),
		dropped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_telemetry_dropped_total",
				Help: "Layout-return reports dropped before reaching the sinks",
			},
			[]string{"reason"},
		),
		sinkErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittopnfs_telemetry_sink_errors_total",
				Help: "Failed writes to telemetry sinks",
			},
			[]string{"sink"},
		),
	}
}

func (m *telemetryMetrics) RecordIOStats(deviceID, direction string, bytes, ops uint64, busy time.Duration) {
	m.ioBytes.WithLabelValues(deviceID, direction).Add(float64(bytes))
	m.ioOps.WithLabelValues(deviceID, direction).Add(float64(ops))
	m.ioBusy.WithLabelValues(deviceID, direction).Add(busy.Seconds())
}

func (m *telemetryMetrics) RecordIOError(deviceID, op, status string) {
	m.ioErrors.WithLabelValues(deviceID, op, status).Inc()
}

func (m *telemetryMetrics) RecordDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *telemetryMetrics) RecordSinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}
