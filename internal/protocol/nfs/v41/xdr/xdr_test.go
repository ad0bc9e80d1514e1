package xdr

import (
	"bytes"
	"encoding/binary"
	"net/netip"
	"runtime"
	"testing"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetAddrOf(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		netid string
		uaddr string
	}{
		{"ipv4", "192.0.2.7:2049", NetIDTCP, "192.0.2.7.8.1"},
		{"ipv4 high port", "10.0.0.1:65535", NetIDTCP, "10.0.0.1.255.255"},
		{"ipv6", "[2001:db8::1]:2049", NetIDTCP6, "2001:db8::1.8.1"},
		{"ipv4-mapped", "[::ffff:198.51.100.9]:20049", NetIDTCP, "198.51.100.9.78.81"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ap := netip.MustParseAddrPort(tt.addr)
			na, err := NetAddrOf(ap)
			require.NoError(t, err)
			assert.Equal(t, tt.netid, na.Netid)
			assert.Equal(t, tt.uaddr, na.Addr)

			back, err := na.AddrPort()
			require.NoError(t, err)
			assert.Equal(t, ap.Addr().Unmap(), back.Addr())
			assert.Equal(t, ap.Port(), back.Port())
		})
	}
}

func TestNetAddrAddrPortRejectsGarbage(t *testing.T) {
	for _, uaddr := range []string{"", "nodots", "1.2", "192.0.2.7.300.1", "not.an.ip.8.1"} {
		_, err := NetAddr{Netid: NetIDTCP, Addr: uaddr}.AddrPort()
		assert.Error(t, err, "uaddr %q", uaddr)
	}
}

func TestMarshalDeviceAddrWireFormat(t *testing.T) {
	data, err := Marshal(&DeviceAddr{
		LayoutType: types.LayoutNFSv41Files,
		Body:       []byte{0xAA, 0xBB, 0xCC},
	})
	require.NoError(t, err)

	expected := []byte{
		0, 0, 0, 1, // da_layout_type
		0, 0, 0, 3, // body length
		0xAA, 0xBB, 0xCC, 0, // body + padding
	}
	assert.Equal(t, expected, data)
}

func TestDecodeFlexLayoutReturn(t *testing.T) {
	var buf bytes.Buffer
	put32 := func(v uint32) { _ = binary.Write(&buf, binary.BigEndian, v) }
	put64 := func(v uint64) { _ = binary.Write(&buf, binary.BigEndian, v) }

	// fflr_ioerr_report<1>
	put32(1)
	put64(0)    // ffie_offset
	put64(4096) // ffie_length
	put32(7)    // stateid seqid
	buf.Write(bytes.Repeat([]byte{0x11}, types.StateIDOtherSize))
	put32(1) // ffie_errors<1>
	devID := make([]byte, types.DeviceIDSize)
	devID[3] = 42
	buf.Write(devID)
	put32(uint32(types.NFS4ErrInval))
	put32(types.OpWrite)

	// fflr_iostats_report<0>
	put32(0)

	lr, err := DecodeFlexLayoutReturn(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, lr.IOErrReport, 1)
	assert.Empty(t, lr.IOStatsReport)

	ioerr := lr.IOErrReport[0]
	assert.Equal(t, uint64(4096), ioerr.Length)
	assert.Equal(t, uint32(7), ioerr.StateID.Seqid)
	require.Len(t, ioerr.Errors, 1)
	assert.Equal(t, byte(42), ioerr.Errors[0].DeviceID[3])
	assert.Equal(t, types.NFS4ErrInval, ioerr.Errors[0].Status)
	assert.Equal(t, types.OpWrite, ioerr.Errors[0].Opnum)
}

func TestDecodeFlexLayoutReturnEmptyBody(t *testing.T) {
	lr, err := DecodeFlexLayoutReturn(nil)
	require.NoError(t, err)
	assert.Empty(t, lr.IOErrReport)
	assert.Empty(t, lr.IOStatsReport)
}

func TestDecodeFlexLayoutReturnTruncated(t *testing.T) {
	// claims one ioerr record but carries no data
	_, err := DecodeFlexLayoutReturn([]byte{0, 0, 0, 1})
	assert.Error(t, err)
}

func TestDecodeFlexLayoutReturnOversizedCount(t *testing.T) {
	bodies := map[string][]byte{
		"max int32":         {0x7f, 0xff, 0xff, 0xff},
		"16M records":       {0x01, 0x00, 0x00, 0x00},
		"1M records":        {0x00, 0x10, 0x00, 0x00},
		"count beyond body": {0x00, 0x00, 0x00, 0x09, 0, 0, 0, 0},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)

			_, err := DecodeFlexLayoutReturn(body)

			runtime.ReadMemStats(&after)
			require.Error(t, err)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20),
				"decoding a %d byte body must not allocate for the declared count", len(body))
		})
	}
}

func TestUnmarshalRejectsOversizedBody(t *testing.T) {
	var lr FlexLayoutReturn
	assert.Error(t, Unmarshal(make([]byte, MaxBodySize+4), &lr))
}

func TestNetAddrOfRejectsInvalidAddress(t *testing.T) {
	_, err := NetAddrOf(netip.AddrPort{})
	assert.Error(t, err)
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	data, err := Marshal(&IOInfo{Count: 1, Bytes: 2})
	require.NoError(t, err)

	var info IOInfo
	require.NoError(t, Unmarshal(data, &info))
	assert.Equal(t, IOInfo{Count: 1, Bytes: 2}, info)

	assert.Error(t, Unmarshal(append(data, 0, 0, 0, 0), &info))
}
