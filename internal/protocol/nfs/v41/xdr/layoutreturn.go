package xdr

import (
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
)

// DeviceError is device_error4 (RFC 7862 Section 15.6).
type DeviceError struct {
	DeviceID [types.DeviceIDSize]byte
	Status   types.Status
	Opnum    uint32
}

// FlexIOErr is ff_ioerr4 (RFC 8435 Section 9.1.1).
type FlexIOErr struct {
	Offset  uint64
	Length  uint64
	StateID types.StateID
	Errors  []DeviceError
}

// IOInfo is io_info4 (RFC 7862 Section 15.5).
type IOInfo struct {
	Count uint64
	Bytes uint64
}

// FlexIOLatency is ff_io_latency4 (RFC 8435 Section 9.1.2).
type FlexIOLatency struct {
	OpsRequested            uint64
	BytesRequested          uint64
	OpsCompleted            uint64
	BytesCompleted          uint64
	BytesNotDelivered       uint64
	TotalBusyTime           types.Time
	AggregateCompletionTime types.Time
}

// FlexLayoutUpdate is ff_layoutupdate4 (RFC 8435 Section 9.1.3).
type FlexLayoutUpdate struct {
	Addr     NetAddr
	FHandle  []byte
	Read     FlexIOLatency
	Write    FlexIOLatency
	Duration types.Time
	Local    bool
}

// FlexIOStats is ff_iostats4 (RFC 8435 Section 9.1.3).
type FlexIOStats struct {
	Offset       uint64
	Length       uint64
	StateID      types.StateID
	Read         IOInfo
	Write        IOInfo
	DeviceID     [types.DeviceIDSize]byte
	LayoutUpdate FlexLayoutUpdate
}

// FlexLayoutReturn is ff_layoutreturn4 (RFC 8435 Section 9.3), the body a
// flex file client attaches to LAYOUTRETURN.
type FlexLayoutReturn struct {
	IOErrReport   []FlexIOErr
	IOStatsReport []FlexIOStats
}

// DecodeFlexLayoutReturn decodes the lrf_body of a flex file LAYOUTRETURN.
//
// An empty body is valid and yields an empty report.
func DecodeFlexLayoutReturn(body []byte) (*FlexLayoutReturn, error) {
	lr := &FlexLayoutReturn{}
	if len(body) == 0 {
		return lr, nil
	}
	if err := Unmarshal(body, lr); err != nil {
		return nil, err
	}
	return lr, nil
}
