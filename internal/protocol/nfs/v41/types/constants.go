package types

// pNFS Layout Types (RFC 5661 Section 3.3.13, RFC 8435, RFC 8154)
const (
	// LayoutNFSv41Files - NFSv4.1 file layout (RFC 5661 Section 13)
	LayoutNFSv41Files LayoutType = 1

	// LayoutOSD2Objects - object-based layout (RFC 5664)
	LayoutOSD2Objects LayoutType = 2

	// LayoutBlockVolume - block/volume layout (RFC 5663)
	LayoutBlockVolume LayoutType = 3

	// LayoutFlexFiles - flexible file layout (RFC 8435)
	LayoutFlexFiles LayoutType = 4

	// LayoutSCSI - SCSI layout (RFC 8154)
	LayoutSCSI LayoutType = 5

	// LayoutTypeMax is the highest layout type number known to this server.
	// Requests above it are rejected with NFS4ERR_BADLAYOUT.
	LayoutTypeMax = LayoutSCSI
)

// Layout I/O modes (RFC 5661 Section 3.3.20)
const (
	IOModeRead IOMode = 1
	IOModeRW   IOMode = 2
	IOModeAny  IOMode = 3
)

// NFSv4 status codes relevant to layout and device operations (RFC 5661 Section 15.1)
const (
	NFS4OK                   Status = 0
	NFS4ErrNoEnt             Status = 2
	NFS4ErrIO                Status = 5
	NFS4ErrNXIO              Status = 6
	NFS4ErrAccess            Status = 13
	NFS4ErrInval             Status = 22
	NFS4ErrStale             Status = 70
	NFS4ErrDelay             Status = 10008
	NFS4ErrBadLayout         Status = 10050
	NFS4ErrLayoutTryLater    Status = 10058
	NFS4ErrLayoutUnavailable Status = 10059
	NFS4ErrNoMatchingLayout  Status = 10060
	NFS4ErrUnknownLayoutType Status = 10062
)

// Sizes and sentinels from the NFSv4.1 XDR definitions
const (
	// DeviceIDSize is NFS4_DEVICEID4_SIZE
	DeviceIDSize = 16

	// StateIDOtherSize is NFS4_OTHER_SIZE
	StateIDOtherSize = 12

	// UInt64Max is NFS4_UINT64_MAX, used as a layout length meaning "to end of file"
	UInt64Max uint64 = 0xFFFFFFFFFFFFFFFF

	// FHSize is NFS4_FHSIZE, the maximum file handle length
	FHSize = 128
)

// File layout nfl_util4 flags (RFC 5661 Section 13.3)
const (
	FileLayoutUtilDense          uint32 = 0x00000001
	FileLayoutUtilCommitThruMDS  uint32 = 0x00000002
	FileLayoutStripeUnitSizeMask uint32 = 0xFFFFFFC0
)

// Flex file layout ffl_flags4 (RFC 8435 Section 5.1)
const (
	FlexFlagsNoLayoutCommit uint32 = 0x00000001
	FlexFlagsNoIOThruMDS    uint32 = 0x00000002
	FlexFlagsNoReadIO       uint32 = 0x00000004
)

// NFSv4 operation numbers used in device error reports (RFC 5661 Section 16.2)
const (
	OpCommit        uint32 = 5
	OpRead          uint32 = 25
	OpWrite         uint32 = 38
	OpGetDeviceInfo uint32 = 47
	OpGetDeviceList uint32 = 48
	OpLayoutCommit  uint32 = 49
	OpLayoutGet     uint32 = 50
	OpLayoutReturn  uint32 = 51
)

// Default sizes used when building layouts
const (
	// DefaultStripeSize is the stripe unit offered in layouts (1 MiB)
	DefaultStripeSize uint32 = 1 << 20

	// DefaultMaxIOSize is advertised as rsize/wsize for flex file data servers
	DefaultMaxIOSize uint32 = 1 << 20
)
