package metadata

import "errors"

// StoreError represents a domain error from layout store operations.
//
// Callers translate the Code into protocol status values; the device manager
// treats every StoreError as an infrastructure failure of LAYOUTGET.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Err is the underlying backend error, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying backend error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrInvalidHandle indicates the file handle is empty or oversized
	ErrInvalidHandle ErrorCode = iota

	// ErrIOError indicates the backend failed to read or write
	ErrIOError

	// ErrClosed indicates the store has been closed
	ErrClosed
)

// IsStoreError reports whether err is a StoreError with the given code.
func IsStoreError(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}
