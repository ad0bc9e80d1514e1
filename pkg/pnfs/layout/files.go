package layout

import (
	"net/netip"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
)

// FileDriver implements the NFSv4.1 file layout (RFC 5661 Section 13).
//
// Every data server gets its own stripe index and its own multipath entry.
// Commits are sent through the metadata server.
type FileDriver struct{}

// NewFileDriver creates the NFSv4.1 file layout driver.
func NewFileDriver() *FileDriver {
	return &FileDriver{}
}

func (*FileDriver) layoutDriver() {}

// Type implements Driver.
func (*FileDriver) Type() types.LayoutType {
	return types.LayoutNFSv41Files
}

// DeviceAddress implements Driver.
func (d *FileDriver) DeviceAddress(addrs []netip.AddrPort) (device.Address, error) {
	if len(addrs) == 0 {
		return device.Address{}, ErrNoAddresses
	}

	ds := xdr.FileLayoutDSAddr{
		StripeIndices:   make([]uint32, len(addrs)),
		MultipathDSList: make([]xdr.MultipathList, len(addrs)),
	}
	for i, addr := range addrs {
		na, err := xdr.NetAddrOf(addr)
		if err != nil {
			return device.Address{}, err
		}
		ds.StripeIndices[i] = uint32(i)
		ds.MultipathDSList[i] = xdr.MultipathList{na}
	}

	return encodeDeviceAddress(d.Type(), &ds)
}

// MDSDeviceAddress implements Driver.
func (d *FileDriver) MDSDeviceAddress(local netip.AddrPort) (device.Address, error) {
	return d.DeviceAddress([]netip.AddrPort{local})
}

// LayoutContent implements Driver.
func (d *FileDriver) LayoutContent(id device.ID, stateID types.StateID, stripeSize uint32, fh []byte) (Content, error) {
	body := xdr.FileLayout{
		DeviceID:         id,
		Util:             (stripeSize & types.FileLayoutStripeUnitSizeMask) | types.FileLayoutUtilCommitThruMDS,
		FirstStripeIndex: 0,
		PatternOffset:    0,
		FHList:           [][]byte{fh},
	}
	return encodeContent(d.Type(), &body)
}
