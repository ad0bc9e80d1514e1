package metrics

import "time"

// TelemetryMetrics provides observability for layout-return reports.
//
// Sink errors and drops are tracked separately from the report contents so a
// broken archive does not hide client-side I/O trouble.
type TelemetryMetrics interface {
	// RecordIOStats adds one ff_iostats4 record for a device.
	//
	// Parameters:
	//   - deviceID: hex device id, or "other" for ids the server never issued
	//   - direction: "read" or "write"
	//   - bytes: bytes completed
	//   - ops: operations completed
	//   - busy: time the device was busy
	RecordIOStats(deviceID, direction string, bytes, ops uint64, busy time.Duration)

	// RecordIOError counts one device error reported by a client. Unknown
	// operations and statuses arrive as "other".
	RecordIOError(deviceID, op, status string)

	// RecordDropped counts a report that never reached the sinks.
	//
	// reason is "rate_limited" or "closed".
	RecordDropped(reason string)

	// RecordSinkError counts a failed write to a sink.
	RecordSinkError(sink string)
}

// NewNoopTelemetryMetrics returns a TelemetryMetrics that does nothing.
func NewNoopTelemetryMetrics() TelemetryMetrics {
	return noopTelemetryMetrics{}
}

type noopTelemetryMetrics struct{}

func (noopTelemetryMetrics) RecordIOStats(deviceID, direction string, bytes, ops uint64, busy time.Duration) {
}
func (noopTelemetryMetrics) RecordIOError(deviceID, op, status string) {}
func (noopTelemetryMetrics) RecordDropped(reason string)               {}
func (noopTelemetryMetrics) RecordSinkError(sink string)               {}
