package xdr

import (
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
)

// DeviceAddr is device_addr4 (RFC 5661 Section 3.3.15).
//
// Body carries the layout-type specific address encoding, e.g. an encoded
// FileLayoutDSAddr or FlexDeviceAddr.
type DeviceAddr struct {
	LayoutType types.LayoutType
	Body       []byte
}

// MultipathList is multipath_list4: alternative addresses of one data server.
type MultipathList []NetAddr

// FileLayoutDSAddr is nfsv4_1_file_layout_ds_addr4 (RFC 5661 Section 13.2.1).
type FileLayoutDSAddr struct {
	// StripeIndices maps each stripe index to an entry of MultipathDSList
	StripeIndices []uint32

	// MultipathDSList lists the data servers, each with its multipath addresses
	MultipathDSList []MultipathList
}

// FlexDeviceVersion is ff_device_versions4 (RFC 8435 Section 4.1).
type FlexDeviceVersion struct {
	Version        uint32
	MinorVersion   uint32
	RSize          uint32
	WSize          uint32
	TightlyCoupled bool
}

// FlexDeviceAddr is ff_device_addr4 (RFC 8435 Section 4.1).
type FlexDeviceAddr struct {
	NetAddrs MultipathList
	Versions []FlexDeviceVersion
}
