package server

import (
	"context"
	"net/netip"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/pkg/config"
	"github.com/marmos91/dittopnfs/pkg/pnfs"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = "ERROR"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.PNFS.DataServers = []string{"10.0.0.1:2049", "203.0.113.5:2049"}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func compound(remote string) *pnfs.CompoundContext {
	return &pnfs.CompoundContext{
		Context:    context.Background(),
		RemoteAddr: netip.MustParseAddrPort(remote),
		LocalAddr:  netip.MustParseAddrPort("10.0.0.100:2049"),
	}
}

func TestNew_WiresManager(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { srv.closeComponents(context.Background()) })

	m := srv.Manager()
	require.NotNil(t, m)
	assert.Equal(t, []types.LayoutType{types.LayoutNFSv41Files, types.LayoutFlexFiles}, m.GetLayoutTypes())
	assert.Len(t, m.DataServers(), 2)

	lo, err := m.LayoutGet(compound("10.0.0.7:900"), []byte("fh"), types.LayoutNFSv41Files, types.IOModeRW, types.StateID{})
	require.NoError(t, err)
	assert.False(t, lo.DeviceID.IsMDS())
	assert.Equal(t, 1, m.Registry().Len())

	assert.NoError(t, srv.healthcheck(context.Background()))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Metadata.Type = "etcd"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Logging.Output = filepath.Join(t.TempDir(), "missing", "dir", "log")
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestReload_SwapsDataServers(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { srv.closeComponents(context.Background()) })

	next := testConfig(t)
	next.PNFS.DataServers = []string{"192.168.1.10:2049"}
	require.NoError(t, srv.Reload(context.Background(), next))
	assert.Equal(t, []netip.AddrPort{netip.MustParseAddrPort("192.168.1.10:2049")}, srv.Manager().DataServers())

	// An empty pool routes every file through the MDS.
	next.PNFS.DataServers = nil
	require.NoError(t, srv.Reload(context.Background(), next))
	_, err = srv.Manager().LayoutGet(compound("10.0.0.7:900"), []byte("fh"), types.LayoutFlexFiles, types.IOModeRead, types.StateID{})
	assert.True(t, pnfs.IsLayoutUnavailable(err))
}

func TestServe_ShutdownClosesComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metadata.Type = "badger"
	cfg.Metadata.Badger = map[string]any{"db_path": filepath.Join(t.TempDir(), "layouts")}

	srv, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	_, err = srv.store.HasIOLayout(context.Background(), metadata.FileHandle("fh"))
	assert.True(t, metadata.IsStoreError(err, metadata.ErrClosed), "store should be closed, got %v", err)

	assert.Error(t, srv.Serve(context.Background()), "second Serve must fail")
}

func TestGetDeviceInfo_MDSUsesLocalAddress(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { srv.closeComponents(context.Background()) })

	addr, err := srv.Manager().GetDeviceInfo(compound("10.0.0.7:900"), device.MDSID, types.LayoutNFSv41Files)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutNFSv41Files, addr.LayoutType)

	_, err = srv.Manager().GetDeviceInfo(compound("10.0.0.7:900"), device.IDOf(7), types.LayoutNFSv41Files)
	assert.True(t, pnfs.IsLayoutUnavailable(err))
}
