// Package telemetry forwards the I/O statistics and errors that flex file
// clients attach to LAYOUTRETURN to a set of sinks.
//
// Reports travel through an asynchronous go-events pipeline: the caller
// never waits for a sink, and sink failures never reach the caller.
//
//	Reporter -> Queue -> Broadcaster -> Queue -> LogSink
//	                                 -> Queue -> MetricsSink
//	                                 -> Queue -> RetryingSink -> S3Sink
package telemetry

import (
	"encoding/hex"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
)

// Kind distinguishes the two record types of a layout return.
type Kind string

const (
	KindIOStats Kind = "iostats"
	KindIOErr   Kind = "ioerr"
)

// Report is one record extracted from an ff_layoutreturn4 body.
// Exactly one of IOStats and IOErr is set, matching Kind.
type Report struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Client     string    `json:"client"`
	StateID    string    `json:"stateid"`
	ReceivedAt time.Time `json:"received_at"`

	IOStats *IOStats `json:"iostats,omitempty"`
	IOErr   *IOErr   `json:"ioerr,omitempty"`
}

// IOStats mirrors ff_iostats4.
type IOStats struct {
	Offset     uint64        `json:"offset"`
	Length     uint64        `json:"length"`
	DeviceID   string        `json:"device_id"`
	ReadOps    uint64        `json:"read_ops"`
	ReadBytes  uint64        `json:"read_bytes"`
	WriteOps   uint64        `json:"write_ops"`
	WriteBytes uint64        `json:"write_bytes"`
	ServerAddr string        `json:"server_addr,omitempty"`
	FileHandle string        `json:"file_handle,omitempty"`
	Read       Latency       `json:"read"`
	Write      Latency       `json:"write"`
	Duration   time.Duration `json:"duration_ns"`
	Local      bool          `json:"local"`
}

// Latency mirrors ff_io_latency4.
type Latency struct {
	OpsRequested            uint64        `json:"ops_requested"`
	BytesRequested          uint64        `json:"bytes_requested"`
	OpsCompleted            uint64        `json:"ops_completed"`
	BytesCompleted          uint64        `json:"bytes_completed"`
	BytesNotDelivered       uint64        `json:"bytes_not_delivered"`
	TotalBusyTime           time.Duration `json:"total_busy_time_ns"`
	AggregateCompletionTime time.Duration `json:"aggregate_completion_time_ns"`
}

// IOErr mirrors ff_ioerr4.
type IOErr struct {
	Offset uint64        `json:"offset"`
	Length uint64        `json:"length"`
	Errors []DeviceError `json:"errors"`
}

// DeviceError mirrors device_error4 with symbolic status and operation.
type DeviceError struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	Op       string `json:"op"`
}

// ReportsFromLayoutReturn flattens a decoded layout return into reports,
// I/O statistics first. The returned slice is empty when the client sent
// no records.
func ReportsFromLayoutReturn(client netip.Addr, lr *xdr.FlexLayoutReturn, now time.Time) []Report {
	reports := make([]Report, 0, len(lr.IOStatsReport)+len(lr.IOErrReport))
	clientStr := ""
	if client.IsValid() {
		clientStr = client.String()
	}

	for i := range lr.IOStatsReport {
		st := &lr.IOStatsReport[i]
		stats := &IOStats{
			Offset:     st.Offset,
			Length:     st.Length,
			DeviceID:   hex.EncodeToString(st.DeviceID[:]),
			ReadOps:    st.Read.Count,
			ReadBytes:  st.Read.Bytes,
			WriteOps:   st.Write.Count,
			WriteBytes: st.Write.Bytes,
			Read:       latencyOf(st.LayoutUpdate.Read),
			Write:      latencyOf(st.LayoutUpdate.Write),
			Duration:   durationOf(st.LayoutUpdate.Duration),
			Local:      st.LayoutUpdate.Local,
		}
		if len(st.LayoutUpdate.FHandle) > 0 {
			stats.FileHandle = hex.EncodeToString(st.LayoutUpdate.FHandle)
		}
		if st.LayoutUpdate.Addr.Addr != "" {
			stats.ServerAddr = st.LayoutUpdate.Addr.String()
		}
		reports = append(reports, Report{
			ID:         uuid.NewString(),
			Kind:       KindIOStats,
			Client:     clientStr,
			StateID:    st.StateID.String(),
			ReceivedAt: now,
			IOStats:    stats,
		})
	}

	for i := range lr.IOErrReport {
		e := &lr.IOErrReport[i]
		ioErr := &IOErr{
			Offset: e.Offset,
			Length: e.Length,
			Errors: make([]DeviceError, 0, len(e.Errors)),
		}
		for _, de := range e.Errors {
			ioErr.Errors = append(ioErr.Errors, DeviceError{
				DeviceID: hex.EncodeToString(de.DeviceID[:]),
				Status:   de.Status.String(),
				Op:       types.OpName(de.Opnum),
			})
		}
		reports = append(reports, Report{
			ID:         uuid.NewString(),
			Kind:       KindIOErr,
			Client:     clientStr,
			StateID:    e.StateID.String(),
			ReceivedAt: now,
			IOErr:      ioErr,
		})
	}

	return reports
}

func latencyOf(l xdr.FlexIOLatency) Latency {
	return Latency{
		OpsRequested:            l.OpsRequested,
		BytesRequested:          l.BytesRequested,
		OpsCompleted:            l.OpsCompleted,
		BytesCompleted:          l.BytesCompleted,
		BytesNotDelivered:       l.BytesNotDelivered,
		TotalBusyTime:           durationOf(l.TotalBusyTime),
		AggregateCompletionTime: durationOf(l.AggregateCompletionTime),
	}
}

func durationOf(t types.Time) time.Duration {
	return time.Duration(t.Seconds)*time.Second + time.Duration(t.Nseconds)
}
