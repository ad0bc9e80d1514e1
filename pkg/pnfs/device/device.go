// Package device implements the pNFS device bookkeeping: device identifiers,
// the concurrent registry mapping them to device addresses, the allocator
// handing out new identifiers and the locality filter deciding which data
// server addresses a client may see.
package device

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
)

// ID is a deviceid4. Only the first four bytes carry the numeric id
// (big-endian); the remaining bytes are always zero.
type ID [types.DeviceIDSize]byte

// MDSID is the reserved device used for I/O through the metadata server.
// It is never stored in a Registry.
var MDSID = IDOf(0)

// IDOf builds the device id for the given number.
func IDOf(n uint32) ID {
	var id ID
	binary.BigEndian.PutUint32(id[:4], n)
	return id
}

// Number returns the numeric id stored in the leading bytes.
func (id ID) Number() uint32 {
	return binary.BigEndian.Uint32(id[:4])
}

// IsMDS reports whether id is the reserved metadata server device.
func (id ID) IsMDS() bool {
	return id == MDSID
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Address is a device_addr4: the layout-type specific description of how to
// reach one or more data servers. It is produced by a layout driver and
// treated as opaque by everything else.
type Address struct {
	LayoutType types.LayoutType
	Body       []byte
}

// Encode returns the XDR encoding of the device_addr4.
func (a Address) Encode() ([]byte, error) {
	return xdr.Marshal(&xdr.DeviceAddr{LayoutType: a.LayoutType, Body: a.Body})
}
