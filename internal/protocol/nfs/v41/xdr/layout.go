package xdr

import (
	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
)

// LayoutContent is layout_content4 (RFC 5661 Section 3.3.17).
type LayoutContent struct {
	LayoutType types.LayoutType
	Body       []byte
}

// Layout is layout4 (RFC 5661 Section 3.3.18).
type Layout struct {
	Offset  uint64
	Length  uint64
	IOMode  types.IOMode
	Content LayoutContent
}

// FileLayout is nfsv4_1_file_layout4 (RFC 5661 Section 13.3).
type FileLayout struct {
	DeviceID         [types.DeviceIDSize]byte
	Util             uint32
	FirstStripeIndex uint32
	PatternOffset    uint64
	FHList           [][]byte
}

// FlexDataServer is ff_data_server4 (RFC 8435 Section 5.1).
type FlexDataServer struct {
	DeviceID   [types.DeviceIDSize]byte
	Efficiency uint32
	StateID    types.StateID
	FHVersions [][]byte
	User       string
	Group      string
}

// FlexMirror is ff_mirror4.
type FlexMirror struct {
	DataServers []FlexDataServer
}

// FlexLayout is ff_layout4 (RFC 8435 Section 5.1).
type FlexLayout struct {
	StripeUnit       uint64
	Mirrors          []FlexMirror
	Flags            uint32
	StatsCollectHint uint32
}
