package badger

import (
	"github.com/marmos91/dittopnfs/pkg/store/metadata"
)

// Database Key Namespace
// ======================
//
// Prefix   Key Format          Value
// ==========================================
// "io:"    io:<raw handle>     1 byte: 1 = data server I/O, 0 = MDS I/O
//
// File handles are opaque bytes and are used verbatim after the prefix;
// badger keys are binary safe.

const prefixIOLayout = "io:"

func keyIOLayout(handle metadata.FileHandle) []byte {
	key := make([]byte, 0, len(prefixIOLayout)+len(handle))
	key = append(key, prefixIOLayout...)
	return append(key, handle...)
}

func encodeFlag(enabled bool) []byte {
	if enabled {
		return []byte{1}
	}
	return []byte{0}
}

func decodeFlag(value []byte) bool {
	return len(value) > 0 && value[0] == 1
}
