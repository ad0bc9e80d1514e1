package pnfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittopnfs/internal/protocol/nfs/v41/types"
)

// ErrorCode classifies layout failures reported to the protocol layer.
type ErrorCode int

const (
	// ErrBadLayout: the requested layout type is outside the defined range
	ErrBadLayout ErrorCode = iota

	// ErrLayoutUnavailable: the layout type is valid but cannot be served
	// right now (not configured, no data servers, unknown device)
	ErrLayoutUnavailable

	// ErrLayoutMismatch: a driver or device disagrees with the requested
	// layout type. Reported to clients as unavailable.
	ErrLayoutMismatch
)

func (c ErrorCode) String() string {
	switch c {
	case ErrBadLayout:
		return "bad layout"
	case ErrLayoutUnavailable:
		return "layout unavailable"
	case ErrLayoutMismatch:
		return "layout mismatch"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// LayoutError is the typed failure of a layout or device operation.
// None of these are fatal; the client may retry or fall back to MDS I/O.
type LayoutError struct {
	Code    ErrorCode
	Message string
}

func (e *LayoutError) Error() string {
	return e.Code.String() + ": " + e.Message
}

// Status maps the error to the nfsstat4 sent to the client.
func (e *LayoutError) Status() types.Status {
	if e.Code == ErrBadLayout {
		return types.NFS4ErrBadLayout
	}
	return types.NFS4ErrLayoutUnavailable
}

func newLayoutError(code ErrorCode, format string, args ...any) *LayoutError {
	return &LayoutError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsBadLayout reports whether err carries ErrBadLayout.
func IsBadLayout(err error) bool {
	var le *LayoutError
	return errors.As(err, &le) && le.Code == ErrBadLayout
}

// IsLayoutUnavailable reports whether err maps to NFS4ERR_LAYOUTUNAVAILABLE,
// which includes mismatches.
func IsLayoutUnavailable(err error) bool {
	var le *LayoutError
	return errors.As(err, &le) && le.Code != ErrBadLayout
}

// StatusOf returns the nfsstat4 for err. Errors that are not LayoutErrors
// are infrastructure failures and map to NFS4ERR_IO.
func StatusOf(err error) types.Status {
	if err == nil {
		return types.NFS4OK
	}
	var le *LayoutError
	if errors.As(err, &le) {
		return le.Status()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NFS4ErrDelay
	}
	return types.NFS4ErrIO
}
