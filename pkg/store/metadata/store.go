package metadata

import (
	"context"
	"encoding/hex"
)

// ============================================================================
// LayoutStore Interface
// ============================================================================

// FileHandle is the opaque NFS file handle identifying a file.
type FileHandle []byte

// String returns the handle in hex, suitable for logs.
func (h FileHandle) String() string {
	return hex.EncodeToString(h)
}

// LayoutStore answers the one metadata question the device manager needs:
// does a file have a dedicated I/O layout on the data servers, or must its
// I/O go through the metadata server?
//
// Files without an explicit entry fall back to the store's default policy.
// Files whose I/O must stay on the metadata server (control files, files
// still being migrated) are marked explicitly.
//
// Thread safety:
// Implementations must be safe for concurrent use. HasIOLayout is called on
// every LAYOUTGET and must not block behind writers longer than necessary.
type LayoutStore interface {
	// HasIOLayout reports whether I/O for the file is served by data servers.
	//
	// Returns:
	//   - bool: true for data server I/O, false for metadata server I/O
	//   - error: ErrInvalidHandle for empty handles, ErrIOError on backend failure
	HasIOLayout(ctx context.Context, handle FileHandle) (bool, error)

	// SetIOLayout records an explicit routing decision for the file.
	SetIOLayout(ctx context.Context, handle FileHandle, enabled bool) error

	// ClearIOLayout removes the explicit decision, restoring the default policy.
	ClearIOLayout(ctx context.Context, handle FileHandle) error

	// Healthcheck verifies the backend is usable.
	Healthcheck(ctx context.Context) error

	// Close releases backend resources. Further calls fail with ErrClosed.
	Close() error
}

// ValidateHandle checks that a handle can be stored.
func ValidateHandle(handle FileHandle) error {
	if len(handle) == 0 {
		return &StoreError{Code: ErrInvalidHandle, Message: "empty file handle"}
	}
	if len(handle) > MaxHandleSize {
		return &StoreError{Code: ErrInvalidHandle, Message: "file handle too long"}
	}
	return nil
}

// MaxHandleSize is NFS4_FHSIZE.
const MaxHandleSize = 128
