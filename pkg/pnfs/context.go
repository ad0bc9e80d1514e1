package pnfs

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// CompoundContext carries the per-request state the device manager needs
// from the NFS layer: cancellation and the two ends of the client
// connection.
type CompoundContext struct {
	context.Context

	// RemoteAddr is the client's address as seen by the server
	RemoteAddr netip.AddrPort

	// LocalAddr is the server interface the client connected to
	LocalAddr netip.AddrPort
}

// NewCompoundContext derives the addresses from an accepted connection.
// IPv4-mapped addresses are unmapped so locality checks see plain IPv4.
func NewCompoundContext(ctx context.Context, conn net.Conn) (*CompoundContext, error) {
	remote, err := addrPortOf(conn.RemoteAddr())
	if err != nil {
		return nil, fmt.Errorf("remote address: %w", err)
	}
	local, err := addrPortOf(conn.LocalAddr())
	if err != nil {
		return nil, fmt.Errorf("local address: %w", err)
	}
	return &CompoundContext{Context: ctx, RemoteAddr: remote, LocalAddr: local}, nil
}

func addrPortOf(addr net.Addr) (netip.AddrPort, error) {
	var ap netip.AddrPort
	switch a := addr.(type) {
	case *net.TCPAddr:
		ap = a.AddrPort()
	case *net.UDPAddr:
		ap = a.AddrPort()
	default:
		if addr == nil {
			return netip.AddrPort{}, fmt.Errorf("no address")
		}
		parsed, err := netip.ParseAddrPort(addr.String())
		if err != nil {
			return netip.AddrPort{}, err
		}
		ap = parsed
	}
	if !ap.IsValid() {
		return netip.AddrPort{}, fmt.Errorf("invalid address %v", addr)
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}
