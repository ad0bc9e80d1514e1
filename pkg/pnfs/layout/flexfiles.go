package layout

import (
	"net/netip"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
)

// FlexFileOptions parameterizes the flex file layout driver.
type FlexFileOptions struct {
	// Version and MinorVersion are the NFS protocol version spoken by the
	// data servers (e.g. 3/0 or 4/1)
	Version      uint32
	MinorVersion uint32

	// User and Group are the synthetic owner strings the client presents to
	// loosely coupled data servers
	User  string
	Group string

	// RSize and WSize are the preferred I/O sizes advertised per data server
	RSize uint32
	WSize uint32

	// StatsCollectHint asks clients to report I/O statistics every n seconds (0 = no hint)
	StatsCollectHint uint32
}

// FlexFileDriver implements the flexible file layout (RFC 8435).
//
// All data servers go into one multipath list and the layout carries a
// single mirror with a single data server entry.
type FlexFileDriver struct {
	opts FlexFileOptions
}

// NewFlexFileDriver creates a flex file layout driver. Zero RSize/WSize
// default to types.DefaultMaxIOSize.
func NewFlexFileDriver(opts FlexFileOptions) *FlexFileDriver {
	if opts.RSize == 0 {
		opts.RSize = types.DefaultMaxIOSize
	}
	if opts.WSize == 0 {
		opts.WSize = types.DefaultMaxIOSize
	}
	return &FlexFileDriver{opts: opts}
}

func (*FlexFileDriver) layoutDriver() {}

// Type implements Driver.
func (*FlexFileDriver) Type() types.LayoutType {
	return types.LayoutFlexFiles
}

// Options returns the driver parameters.
func (d *FlexFileDriver) Options() FlexFileOptions {
	return d.opts
}

// DeviceAddress implements Driver.
func (d *FlexFileDriver) DeviceAddress(addrs []netip.AddrPort) (device.Address, error) {
	if len(addrs) == 0 {
		return device.Address{}, ErrNoAddresses
	}

	netAddrs, err := xdr.NetAddrsOf(addrs)
	if err != nil {
		return device.Address{}, err
	}

	addr := xdr.FlexDeviceAddr{
		NetAddrs: netAddrs,
		Versions: []xdr.FlexDeviceVersion{{
			Version:      d.opts.Version,
			MinorVersion: d.opts.MinorVersion,
			RSize:        d.opts.RSize,
			WSize:        d.opts.WSize,
			// only NFSv4.x data servers share state with the MDS
			TightlyCoupled: d.opts.Version >= 4,
		}},
	}
	return encodeDeviceAddress(d.Type(), &addr)
}

// MDSDeviceAddress implements Driver.
func (d *FlexFileDriver) MDSDeviceAddress(local netip.AddrPort) (device.Address, error) {
	return d.DeviceAddress([]netip.AddrPort{local})
}

// LayoutContent implements Driver.
func (d *FlexFileDriver) LayoutContent(id device.ID, stateID types.StateID, stripeSize uint32, fh []byte) (Content, error) {
	body := xdr.FlexLayout{
		StripeUnit: uint64(stripeSize),
		Mirrors: []xdr.FlexMirror{{
			DataServers: []xdr.FlexDataServer{{
				DeviceID:   id,
				Efficiency: 1,
				StateID:    stateID,
				FHVersions: [][]byte{fh},
				User:       d.opts.User,
				Group:      d.opts.Group,
			}},
		}},
		Flags:            types.FlexFlagsNoLayoutCommit,
		StatsCollectHint: d.opts.StatsCollectHint,
	}
	return encodeContent(d.Type(), &body)
}
