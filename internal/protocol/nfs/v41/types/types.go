package types

import (
	"encoding/hex"
	"fmt"
	"strconv"
)

// LayoutType is the layouttype4 enumeration.
type LayoutType uint32

// String returns the symbolic RFC name of the layout type.
func (t LayoutType) String() string {
	switch t {
	case LayoutNFSv41Files:
		return "LAYOUT4_NFSV4_1_FILES"
	case LayoutOSD2Objects:
		return "LAYOUT4_OSD2_OBJECTS"
	case LayoutBlockVolume:
		return "LAYOUT4_BLOCK_VOLUME"
	case LayoutFlexFiles:
		return "LAYOUT4_FLEX_FILES"
	case LayoutSCSI:
		return "LAYOUT4_SCSI"
	default:
		return "LAYOUT4_UNKNOWN(" + strconv.FormatUint(uint64(t), 10) + ")"
	}
}

// InRange reports whether t lies in the numeric range of defined layout types.
func (t LayoutType) InRange() bool {
	return t >= LayoutNFSv41Files && t <= LayoutTypeMax
}

// IOMode is the layoutiomode4 enumeration.
type IOMode uint32

func (m IOMode) String() string {
	switch m {
	case IOModeRead:
		return "READ"
	case IOModeRW:
		return "RW"
	case IOModeAny:
		return "ANY"
	default:
		return "IOMODE(" + strconv.FormatUint(uint64(m), 10) + ")"
	}
}

// Status is an nfsstat4 value.
type Status uint32

var statusNames = map[Status]string{
	NFS4OK:                   "NFS4_OK",
	NFS4ErrNoEnt:             "NFS4ERR_NOENT",
	NFS4ErrIO:                "NFS4ERR_IO",
	NFS4ErrNXIO:              "NFS4ERR_NXIO",
	NFS4ErrAccess:            "NFS4ERR_ACCESS",
	NFS4ErrInval:             "NFS4ERR_INVAL",
	NFS4ErrStale:             "NFS4ERR_STALE",
	NFS4ErrDelay:             "NFS4ERR_DELAY",
	NFS4ErrBadLayout:         "NFS4ERR_BADLAYOUT",
	NFS4ErrLayoutTryLater:    "NFS4ERR_LAYOUTTRYLATER",
	NFS4ErrLayoutUnavailable: "NFS4ERR_LAYOUTUNAVAILABLE",
	NFS4ErrNoMatchingLayout:  "NFS4ERR_NOMATCHING_LAYOUT",
	NFS4ErrUnknownLayoutType: "NFS4ERR_UNKNOWN_LAYOUTTYPE",
}

var statusByName = func() map[string]Status {
	m := make(map[string]Status, len(statusNames))
	for s, name := range statusNames {
		m[name] = s
	}
	return m
}()

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "NFS4ERR(" + strconv.FormatUint(uint64(s), 10) + ")"
}

// IsStatusName reports whether name is the symbolic name of a status known
// to this server, as returned by Status.String.
func IsStatusName(name string) bool {
	_, ok := statusByName[name]
	return ok
}

var opNames = map[uint32]string{
	OpCommit:        "COMMIT",
	OpRead:          "READ",
	OpWrite:         "WRITE",
	OpGetDeviceInfo: "GETDEVICEINFO",
	OpGetDeviceList: "GETDEVICELIST",
	OpLayoutCommit:  "LAYOUTCOMMIT",
	OpLayoutGet:     "LAYOUTGET",
	OpLayoutReturn:  "LAYOUTRETURN",
}

var opByName = func() map[string]uint32 {
	m := make(map[string]uint32, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// OpName returns the operation name for an NFSv4 opnum, as used in logs
// and metric labels.
func OpName(op uint32) string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "OP(" + strconv.FormatUint(uint64(op), 10) + ")"
}

// IsOpName reports whether name was produced by OpName for a known opnum.
func IsOpName(name string) bool {
	_, ok := opByName[name]
	return ok
}

// StateID is the stateid4 structure (RFC 5661 Section 3.3.12).
//
// Field order matches the wire format so the struct can be passed directly
// to the XDR encoder.
type StateID struct {
	// Seqid is incremented on every state-modifying operation
	Seqid uint32

	// Other identifies the state, opaque to the client
	Other [StateIDOtherSize]byte
}

// String renders the stateid the way NFS tooling usually prints it.
func (s StateID) String() string {
	return fmt.Sprintf("[%s, seq: %d]", hex.EncodeToString(s.Other[:]), s.Seqid)
}

// Time is nfstime4.
type Time struct {
	Seconds  int64
	Nseconds uint32
}
