// Package xdr holds the XDR representations of the pNFS structures handed out
// by the device manager (RFC 5661 Sections 3.3 and 13, RFC 8435) together
// with helpers to encode and decode them.
//
// The structs in this package mirror the RFC definitions field by field so
// they can be fed straight to the go-xdr reflection codec. Field order is
// significant and must not be changed.
package xdr

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// MaxBodySize bounds opaque bodies accepted for decoding (layoutreturn
// payloads).
const MaxBodySize = 64 << 10

// Marshal encodes v into a freshly allocated XDR byte slice.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a pointer.
//
// Trailing bytes after the decoded structure are reported as an error since
// every body handled here is a single self-contained XDR structure.
func Unmarshal(data []byte, v any) error {
	if len(data) > MaxBodySize {
		return fmt.Errorf("xdr unmarshal %T: body of %d bytes exceeds limit of %d", v, len(data), MaxBodySize)
	}

	// Every array element and opaque byte occupies wire space, so a declared
	// length beyond the body itself is rejected before anything is allocated.
	n, err := xdr.UnmarshalLimited(bytes.NewReader(data), v, uint(len(data)))
	if err != nil {
		return fmt.Errorf("xdr unmarshal %T: %w", v, err)
	}
	if n != len(data) {
		return fmt.Errorf("xdr unmarshal %T: %d trailing bytes", v, len(data)-n)
	}
	return nil
}
