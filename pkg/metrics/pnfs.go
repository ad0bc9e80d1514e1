package metrics

import "time"

// PNFSMetrics provides observability for device manager operations.
//
// op values are "LAYOUTGET", "GETDEVICEINFO", "GETDEVICELIST" and
// "LAYOUTRETURN". status is the nfsstat4 name: "NFS4_OK" on success,
// otherwise the NFS4ERR name of the failure.
type PNFSMetrics interface {
	// RecordOperation records a completed device manager call.
	RecordOperation(op string, duration time.Duration, status string)

	// RecordLayoutGrant records a successful LAYOUTGET.
	//
	// Parameters:
	//   - layoutType: e.g. "LAYOUT4_FLEX_FILES"
	//   - route: "mds" or "ds"
	//   - ioMode: "READ" or "RW"
	RecordLayoutGrant(layoutType, route, ioMode string)

	// RecordDeviceAllocated records a new registry entry. collision is true
	// when the allocated id replaced a live entry.
	RecordDeviceAllocated(collision bool)

	// SetRegisteredDevices updates the registry size gauge.
	SetRegisteredDevices(count int)

	// SetDataServers updates the configured data server gauge.
	SetDataServers(count int)
}

// NewNoopPNFSMetrics returns a PNFSMetrics that does nothing.
func NewNoopPNFSMetrics() PNFSMetrics {
	return noopPNFSMetrics{}
}

type noopPNFSMetrics struct{}

func (noopPNFSMetrics) RecordOperation(op string, duration time.Duration, status string) {}
func (noopPNFSMetrics) RecordLayoutGrant(layoutType, route, ioMode string)               {}
func (noopPNFSMetrics) RecordDeviceAllocated(collision bool)                             {}
func (noopPNFSMetrics) SetRegisteredDevices(count int)                                   {}
func (noopPNFSMetrics) SetDataServers(count int)                                         {}
