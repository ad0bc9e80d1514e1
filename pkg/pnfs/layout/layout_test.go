package layout

import (
	"net/netip"
	"testing"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ds1 = netip.MustParseAddrPort("203.0.113.5:2049")
	ds2 = netip.MustParseAddrPort("[2001:db8::7]:2049")
)

func testFlexDriver() *FlexFileDriver {
	return NewFlexFileDriver(FlexFileOptions{Version: 3, User: "17", Group: "17"})
}

func TestDriversRejectEmptyAddressList(t *testing.T) {
	for _, d := range []Driver{NewFileDriver(), testFlexDriver()} {
		_, err := d.DeviceAddress(nil)
		assert.ErrorIs(t, err, ErrNoAddresses, d.Type().String())
	}
}

func TestDriversRejectInvalidAddress(t *testing.T) {
	for _, d := range []Driver{NewFileDriver(), testFlexDriver()} {
		_, err := d.MDSDeviceAddress(netip.AddrPort{})
		assert.Error(t, err, d.Type().String())

		_, err = d.DeviceAddress([]netip.AddrPort{ds1, {}})
		assert.Error(t, err, d.Type().String())
	}
}

func TestFileDriverDeviceAddress(t *testing.T) {
	d := NewFileDriver()
	addr, err := d.DeviceAddress([]netip.AddrPort{ds1, ds2})
	require.NoError(t, err)
	assert.Equal(t, types.LayoutNFSv41Files, addr.LayoutType)

	var body xdr.FileLayoutDSAddr
	require.NoError(t, xdr.Unmarshal(addr.Body, &body))
	assert.Equal(t, []uint32{0, 1}, body.StripeIndices)
	require.Len(t, body.MultipathDSList, 2)
	assert.Equal(t, xdr.MultipathList{{Netid: "tcp", Addr: "203.0.113.5.8.1"}}, body.MultipathDSList[0])
	assert.Equal(t, xdr.MultipathList{{Netid: "tcp6", Addr: "2001:db8::7.8.1"}}, body.MultipathDSList[1])
}

func TestFileDriverLayoutContent(t *testing.T) {
	d := NewFileDriver()
	fh := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}

	content, err := d.LayoutContent(device.IDOf(12), types.StateID{Seqid: 1}, types.DefaultStripeSize, fh)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutNFSv41Files, content.LayoutType)

	var body xdr.FileLayout
	require.NoError(t, xdr.Unmarshal(content.Body, &body))
	assert.Equal(t, device.IDOf(12), device.ID(body.DeviceID))
	assert.Equal(t, types.DefaultStripeSize|types.FileLayoutUtilCommitThruMDS, body.Util)
	assert.Zero(t, body.FirstStripeIndex)
	assert.Zero(t, body.PatternOffset)
	assert.Equal(t, [][]byte{fh}, body.FHList)
}

func TestFlexFileDriverDeviceAddress(t *testing.T) {
	d := testFlexDriver()
	addr, err := d.DeviceAddress([]netip.AddrPort{ds1, ds2})
	require.NoError(t, err)
	assert.Equal(t, types.LayoutFlexFiles, addr.LayoutType)

	var body xdr.FlexDeviceAddr
	require.NoError(t, xdr.Unmarshal(addr.Body, &body))
	expected, err := xdr.NetAddrsOf([]netip.AddrPort{ds1, ds2})
	require.NoError(t, err)
	assert.Equal(t, expected, []xdr.NetAddr(body.NetAddrs))
	require.Len(t, body.Versions, 1)
	assert.Equal(t, xdr.FlexDeviceVersion{
		Version:        3,
		MinorVersion:   0,
		RSize:          types.DefaultMaxIOSize,
		WSize:          types.DefaultMaxIOSize,
		TightlyCoupled: false,
	}, body.Versions[0])
}

func TestFlexFileDriverTightlyCoupledForNFSv4(t *testing.T) {
	d := NewFlexFileDriver(FlexFileOptions{Version: 4, MinorVersion: 1})
	addr, err := d.MDSDeviceAddress(netip.MustParseAddrPort("192.0.2.1:2049"))
	require.NoError(t, err)

	var body xdr.FlexDeviceAddr
	require.NoError(t, xdr.Unmarshal(addr.Body, &body))
	require.Len(t, body.NetAddrs, 1)
	assert.Equal(t, "192.0.2.1.8.1", body.NetAddrs[0].Addr)
	assert.True(t, body.Versions[0].TightlyCoupled)
}

func TestFlexFileDriverLayoutContent(t *testing.T) {
	d := NewFlexFileDriver(FlexFileOptions{Version: 3, User: "alice", Group: "staff", StatsCollectHint: 30})
	stateID := types.StateID{Seqid: 3, Other: [12]byte{1, 2, 3}}
	fh := []byte("handle")

	content, err := d.LayoutContent(device.IDOf(200), stateID, 65536, fh)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutFlexFiles, content.LayoutType)

	var body xdr.FlexLayout
	require.NoError(t, xdr.Unmarshal(content.Body, &body))
	assert.Equal(t, uint64(65536), body.StripeUnit)
	assert.Equal(t, types.FlexFlagsNoLayoutCommit, body.Flags)
	assert.Equal(t, uint32(30), body.StatsCollectHint)
	require.Len(t, body.Mirrors, 1)
	require.Len(t, body.Mirrors[0].DataServers, 1)

	ds := body.Mirrors[0].DataServers[0]
	assert.Equal(t, device.IDOf(200), device.ID(ds.DeviceID))
	assert.Equal(t, uint32(1), ds.Efficiency)
	assert.Equal(t, stateID, ds.StateID)
	assert.Equal(t, [][]byte{fh}, ds.FHVersions)
	assert.Equal(t, "alice", ds.User)
	assert.Equal(t, "staff", ds.Group)
}

func TestTable(t *testing.T) {
	files, flex := NewFileDriver(), testFlexDriver()
	table, err := NewTable(files, flex)
	require.NoError(t, err)

	assert.Equal(t, []types.LayoutType{types.LayoutNFSv41Files, types.LayoutFlexFiles}, table.Types())

	d, ok := table.Lookup(types.LayoutFlexFiles)
	require.True(t, ok)
	assert.Same(t, flex, d)

	_, ok = table.Lookup(types.LayoutBlockVolume)
	assert.False(t, ok)
	_, ok = table.Lookup(types.LayoutTypeMax + 1)
	assert.False(t, ok)
	_, ok = table.Lookup(0)
	assert.False(t, ok)

	// callers cannot mutate the advertised order
	lts := table.Types()
	lts[0] = types.LayoutSCSI
	assert.Equal(t, types.LayoutNFSv41Files, table.Types()[0])
}

func TestTableRejectsBadConfigurations(t *testing.T) {
	_, err := NewTable()
	assert.Error(t, err)

	_, err = NewTable(NewFileDriver(), NewFileDriver())
	assert.Error(t, err)
}
