// Package layout contains the pNFS layout drivers: one per supported layout
// type, each knowing how to encode device addresses and layout bodies in its
// own wire format.
//
// The set of drivers is closed. Driver cannot be implemented outside this
// package, so a switch over *FileDriver and *FlexFileDriver is exhaustive.
package layout

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
)

// ErrNoAddresses is returned when a device address is requested for an
// empty list of data servers.
var ErrNoAddresses = errors.New("no data server addresses")

// Content is the layout_content4 handed to the client inside a layout.
type Content = xdr.LayoutContent

// Driver builds the layout-type specific parts of a pNFS layout.
type Driver interface {
	// Type returns the layout type this driver encodes.
	Type() types.LayoutType

	// DeviceAddress builds a device address listing the given data servers
	// in order. Fails with ErrNoAddresses when addrs is empty.
	DeviceAddress(addrs []netip.AddrPort) (device.Address, error)

	// MDSDeviceAddress builds the single-address device used for I/O through
	// the metadata server, pointing at the interface the client is connected to.
	MDSDeviceAddress(local netip.AddrPort) (device.Address, error)

	// LayoutContent encodes the layout body referencing the device.
	LayoutContent(id device.ID, stateID types.StateID, stripeSize uint32, fh []byte) (Content, error)

	layoutDriver()
}

// Table holds the drivers served by a server instance together with the
// order in which their layout types are advertised.
type Table struct {
	drivers [types.LayoutTypeMax + 1]Driver
	order   []types.LayoutType
}

// NewTable creates a driver table. The first driver's type is the default
// offered to clients; the remaining ones follow in the given order.
func NewTable(drivers ...Driver) (*Table, error) {
	if len(drivers) == 0 {
		return nil, errors.New("layout: at least one driver is required")
	}

	t := &Table{order: make([]types.LayoutType, 0, len(drivers))}
	for _, d := range drivers {
		lt := d.Type()
		if !lt.InRange() {
			return nil, fmt.Errorf("layout: driver type %s out of range", lt)
		}
		if t.drivers[lt] != nil {
			return nil, fmt.Errorf("layout: duplicate driver for %s", lt)
		}
		t.drivers[lt] = d
		t.order = append(t.order, lt)
	}
	return t, nil
}

// Lookup returns the driver for lt. The boolean is false when lt is out of
// range or not served by this table.
func (t *Table) Lookup(lt types.LayoutType) (Driver, bool) {
	if !lt.InRange() {
		return nil, false
	}
	d := t.drivers[lt]
	return d, d != nil
}

// Types returns the served layout types, default first.
func (t *Table) Types() []types.LayoutType {
	out := make([]types.LayoutType, len(t.order))
	copy(out, t.order)
	return out
}

func encodeDeviceAddress(lt types.LayoutType, body any) (device.Address, error) {
	data, err := xdr.Marshal(body)
	if err != nil {
		return device.Address{}, fmt.Errorf("encode %s device address: %w", lt, err)
	}
	return device.Address{LayoutType: lt, Body: data}, nil
}

func encodeContent(lt types.LayoutType, body any) (Content, error) {
	data, err := xdr.Marshal(body)
	if err != nil {
		return Content{}, fmt.Errorf("encode %s layout content: %w", lt, err)
	}
	return Content{LayoutType: lt, Body: data}, nil
}
