// Package pnfs implements the pNFS device manager of an NFSv4.1 metadata
// server: it grants layouts, hands out device addresses and keeps the
// device registry.
//
// For every LAYOUTGET the manager asks the metadata store whether the file
// is served by data servers. If not, the layout points at the reserved MDS
// device, whose address is always the interface the client is connected
// to. Otherwise a fresh device id is allocated and bound to the data
// servers visible from the client's network position.
package pnfs

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/xdr"
	"github.com/marmos91/dittopnfs/pkg/metrics"
	"github.com/marmos91/dittopnfs/pkg/pnfs/device"
	"github.com/marmos91/dittopnfs/pkg/pnfs/layout"
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
)

// LayoutReturnReporter receives the I/O statistics and errors flex file
// clients attach to LAYOUTRETURN. Implementations must not block.
type LayoutReturnReporter interface {
	ReportLayoutReturn(client netip.Addr, stateID types.StateID, lr *xdr.FlexLayoutReturn)
}

// Layout is the result of a LAYOUTGET.
type Layout struct {
	// ReturnOnClose is always true: layouts cover whole files
	ReturnOnClose bool

	// StateID is the layout stateid the grant is bound to
	StateID types.StateID

	// DeviceID is the device referenced by the layout content
	DeviceID device.ID

	// Segments holds the granted layouts, a single whole-file segment
	Segments []xdr.Layout
}

// Options configures a DeviceManager.
type Options struct {
	// Drivers lists the served layout types (required)
	Drivers *layout.Table

	// Store answers whether a file is served by data servers (required)
	Store metadata.LayoutStore

	// Registry holds the allocated devices. Nil creates an empty one.
	Registry *device.Registry

	// Allocator hands out device ids. Nil uses device.NewRandomAllocator.
	Allocator device.Allocator

	// DataServers is the initial data server pool
	DataServers []netip.AddrPort

	// StripeSize is encoded in every layout. Zero uses types.DefaultStripeSize.
	StripeSize uint32

	// Reporter receives layout return statistics. Nil discards them.
	Reporter LayoutReturnReporter

	// Metrics records operation outcomes. Nil uses the no-op implementation.
	Metrics metrics.PNFSMetrics
}

// DeviceManager implements the pNFS device and layout operations.
//
// Thread safety:
// All methods are safe for concurrent use. The only mutable shared state is
// the device registry and the data server pool; the pool is replaced as a
// whole so readers see either the old or the new list.
type DeviceManager struct {
	drivers     *layout.Table
	store       metadata.LayoutStore
	registry    *device.Registry
	allocator   device.Allocator
	dataServers atomic.Pointer[[]netip.AddrPort]
	stripeSize  uint32
	reporter    LayoutReturnReporter
	metrics     metrics.PNFSMetrics
}

// NewDeviceManager creates a DeviceManager.
func NewDeviceManager(opts Options) (*DeviceManager, error) {
	if opts.Drivers == nil {
		return nil, errors.New("pnfs: layout drivers are required")
	}
	if opts.Store == nil {
		return nil, errors.New("pnfs: layout store is required")
	}

	m := &DeviceManager{
		drivers:    opts.Drivers,
		store:      opts.Store,
		registry:   opts.Registry,
		allocator:  opts.Allocator,
		stripeSize: opts.StripeSize,
		reporter:   opts.Reporter,
		metrics:    opts.Metrics,
	}
	if m.registry == nil {
		m.registry = device.NewRegistry()
	}
	if m.allocator == nil {
		m.allocator = device.NewRandomAllocator()
	}
	if m.stripeSize == 0 {
		m.stripeSize = types.DefaultStripeSize
	}
	if m.metrics == nil {
		m.metrics = metrics.NewNoopPNFSMetrics()
	}
	m.SetDataServers(opts.DataServers)

	return m, nil
}

// SetDataServers replaces the data server pool. The slice is copied.
func (m *DeviceManager) SetDataServers(servers []netip.AddrPort) {
	pool := slices.Clone(servers)
	m.dataServers.Store(&pool)
	m.metrics.SetDataServers(len(pool))
	logger.Debug("pNFS data servers: %v", pool)
}

// DataServers returns a copy of the current data server pool.
func (m *DeviceManager) DataServers() []netip.AddrPort {
	return slices.Clone(m.pool())
}

func (m *DeviceManager) pool() []netip.AddrPort {
	if p := m.dataServers.Load(); p != nil {
		return *p
	}
	return nil
}

// Registry exposes the device registry.
func (m *DeviceManager) Registry() *device.Registry {
	return m.registry
}

// LayoutGet grants a whole-file layout for the file identified by fh.
//
// Errors:
//   - ErrBadLayout: layoutType outside the defined range
//   - ErrLayoutUnavailable: type not served, empty data server pool, or no
//     data server visible to the client
//   - ErrLayoutMismatch: the driver serves a different type
//   - any other error: metadata store or encoding failure
func (m *DeviceManager) LayoutGet(cc *CompoundContext, fh []byte, layoutType types.LayoutType, ioMode types.IOMode, stateID types.StateID) (lo *Layout, err error) {
	start := time.Now()
	defer func() { m.record("LAYOUTGET", start, err) }()

	driver, err := m.driver(layoutType)
	if err != nil {
		return nil, err
	}

	hasIOLayout, err := m.store.HasIOLayout(cc, metadata.FileHandle(fh))
	if err != nil {
		return nil, fmt.Errorf("layoutget: query io layout of %x: %w", fh, err)
	}

	id := device.MDSID
	route := "mds"
	if hasIOLayout {
		id, err = m.allocateDevice(cc, driver, stateID)
		if err != nil {
			return nil, err
		}
		route = "ds"
	}

	content, err := driver.LayoutContent(id, stateID, m.stripeSize, fh)
	if err != nil {
		return nil, fmt.Errorf("layoutget: %w", err)
	}

	m.metrics.RecordLayoutGrant(layoutType.String(), route, ioMode.String())

	return &Layout{
		ReturnOnClose: true,
		StateID:       stateID,
		DeviceID:      id,
		Segments: []xdr.Layout{{
			Offset:  0,
			Length:  types.UInt64Max,
			IOMode:  ioMode,
			Content: content,
		}},
	}, nil
}

// allocateDevice binds a new device id to the data servers visible to the
// client. An id colliding with a live entry overwrites it.
func (m *DeviceManager) allocateDevice(cc *CompoundContext, driver layout.Driver, stateID types.StateID) (device.ID, error) {
	servers := m.pool()
	if len(servers) == 0 {
		return device.ID{}, newLayoutError(ErrLayoutUnavailable, "no data servers available")
	}

	id := m.allocator.Next()

	client := cc.RemoteAddr.Addr()
	visible := device.FilterForClient(servers, client)
	if len(visible) == 0 {
		return device.ID{}, newLayoutError(ErrLayoutUnavailable, "no data server visible to client %s", client)
	}

	addr, err := driver.DeviceAddress(visible)
	if err != nil {
		return device.ID{}, fmt.Errorf("layoutget: build device address: %w", err)
	}

	replaced, err := m.registry.Put(id, addr)
	if err != nil {
		return device.ID{}, fmt.Errorf("layoutget: register device %s: %w", id, err)
	}

	m.metrics.RecordDeviceAllocated(replaced)
	m.metrics.SetRegisteredDevices(m.registry.Len())

	if logger.IsDebugEnabled() {
		logger.Debug("Generated device %s (%d) for stateid %s: servers=%v replaced=%v",
			id, id.Number(), stateID, visible, replaced)
	}
	return id, nil
}

// GetDeviceInfo returns the address of a device.
//
// The MDS device resolves to the local address of the calling connection
// and is recomputed on every call. Unknown devices and devices registered
// for another layout type report layout-unavailable.
func (m *DeviceManager) GetDeviceInfo(cc *CompoundContext, id device.ID, layoutType types.LayoutType) (addr device.Address, err error) {
	start := time.Now()
	defer func() { m.record("GETDEVICEINFO", start, err) }()

	logger.Debug("Lookup for device %s, type %s", id, layoutType)

	driver, err := m.driver(layoutType)
	if err != nil {
		return device.Address{}, err
	}

	if id.IsMDS() {
		addr, err = driver.MDSDeviceAddress(cc.LocalAddr)
		if err != nil {
			return device.Address{}, fmt.Errorf("getdeviceinfo: %w", err)
		}
		return addr, nil
	}

	addr, ok := m.registry.Get(id)
	if !ok {
		return device.Address{}, newLayoutError(ErrLayoutUnavailable, "unknown device %s", id)
	}
	if addr.LayoutType != layoutType {
		return device.Address{}, newLayoutError(ErrLayoutMismatch,
			"device %s is a %s device, %s requested", id, addr.LayoutType, layoutType)
	}
	return addr, nil
}

// GetDeviceList returns a snapshot of the registered device ids. The MDS
// device is never included.
func (m *DeviceManager) GetDeviceList(cc *CompoundContext) []device.ID {
	start := time.Now()
	ids := m.registry.ListIDs()
	m.record("GETDEVICELIST", start, nil)
	return ids
}

// LayoutReturn acknowledges a returned layout. No per-stateid state is
// kept, so nothing is released.
//
// For flex file layouts the body is decoded as ff_layoutreturn4 and its
// records are passed to the reporter. Decoding problems are logged and do
// not affect the acknowledgement.
func (m *DeviceManager) LayoutReturn(cc *CompoundContext, stateID types.StateID, layoutType types.LayoutType, body []byte) {
	start := time.Now()
	defer m.record("LAYOUTRETURN", start, nil)

	logger.Debug("Release device for stateid %s", stateID)

	if layoutType != types.LayoutFlexFiles || len(body) == 0 || m.reporter == nil {
		return
	}

	lr, err := xdr.DecodeFlexLayoutReturn(body)
	if err != nil {
		logger.Warn("Discarding layout return body from %s for stateid %s: %v", cc.RemoteAddr, stateID, err)
		return
	}
	m.reporter.ReportLayoutReturn(cc.RemoteAddr.Addr(), stateID, lr)
}

// Healthcheck verifies the metadata store backing LAYOUTGET.
func (m *DeviceManager) Healthcheck(ctx context.Context) error {
	return m.store.Healthcheck(ctx)
}

// GetLayoutTypes returns the served layout types, default first.
func (m *DeviceManager) GetLayoutTypes() []types.LayoutType {
	return m.drivers.Types()
}

// driver resolves and cross-checks the driver for a requested layout type.
func (m *DeviceManager) driver(layoutType types.LayoutType) (layout.Driver, error) {
	if !layoutType.InRange() {
		return nil, newLayoutError(ErrBadLayout, "invalid layout type requested (%d)", uint32(layoutType))
	}

	driver, ok := m.drivers.Lookup(layoutType)
	if !ok {
		return nil, newLayoutError(ErrLayoutUnavailable, "layout type %s not supported", layoutType)
	}
	if driver.Type() != layoutType {
		return nil, newLayoutError(ErrLayoutMismatch, "driver for %s serves %s", layoutType, driver.Type())
	}
	return driver, nil
}

func (m *DeviceManager) record(op string, start time.Time, err error) {
	status := StatusOf(err)
	if status != types.NFS4OK {
		logger.Debug("%s failed: %v", op, err)
	}
	m.metrics.RecordOperation(op, time.Since(start), status.String())
}
