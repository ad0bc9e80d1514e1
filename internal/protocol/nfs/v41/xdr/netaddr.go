package xdr

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Network identifiers for netaddr4 (RFC 5665 Section 5.2.3.4)
const (
	NetIDTCP  = "tcp"
	NetIDTCP6 = "tcp6"
)

// NetAddr is netaddr4 (RFC 5661 Section 3.3.9).
type NetAddr struct {
	// Netid is the transport identifier ("tcp" or "tcp6")
	Netid string

	// Addr is the universal address: the textual IP followed by the port
	// split into two decimal octets, e.g. "192.0.2.7.8.1" for port 2049.
	Addr string
}

// NetAddrOf converts a socket address to its netaddr4 representation.
//
// IPv4-mapped IPv6 addresses are reported as plain IPv4 over "tcp" so that
// clients on either stack can reach them. The zero AddrPort is rejected.
func NetAddrOf(ap netip.AddrPort) (NetAddr, error) {
	if !ap.IsValid() {
		return NetAddr{}, fmt.Errorf("netaddr: invalid socket address %q", ap)
	}
	addr := ap.Addr().Unmap()
	port := ap.Port()

	netid := NetIDTCP
	if addr.Is6() {
		netid = NetIDTCP6
	}

	return NetAddr{
		Netid: netid,
		Addr:  fmt.Sprintf("%s.%d.%d", addr.WithZone("").String(), port>>8, port&0xff),
	}, nil
}

// NetAddrsOf converts a list of socket addresses preserving order.
func NetAddrsOf(addrs []netip.AddrPort) ([]NetAddr, error) {
	out := make([]NetAddr, 0, len(addrs))
	for _, ap := range addrs {
		na, err := NetAddrOf(ap)
		if err != nil {
			return nil, err
		}
		out = append(out, na)
	}
	return out, nil
}

// AddrPort parses the universal address back into a socket address.
func (n NetAddr) AddrPort() (netip.AddrPort, error) {
	// The last two dot-separated fields are the port octets.
	last := strings.LastIndexByte(n.Addr, '.')
	if last < 0 {
		return netip.AddrPort{}, fmt.Errorf("universal address %q: missing port", n.Addr)
	}
	prev := strings.LastIndexByte(n.Addr[:last], '.')
	if prev < 0 {
		return netip.AddrPort{}, fmt.Errorf("universal address %q: missing port", n.Addr)
	}

	hi, err := strconv.ParseUint(n.Addr[prev+1:last], 10, 8)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("universal address %q: bad port octet: %w", n.Addr, err)
	}
	lo, err := strconv.ParseUint(n.Addr[last+1:], 10, 8)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("universal address %q: bad port octet: %w", n.Addr, err)
	}

	addr, err := netip.ParseAddr(n.Addr[:prev])
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("universal address %q: %w", n.Addr, err)
	}

	return netip.AddrPortFrom(addr, uint16(hi<<8|lo)), nil
}

// String renders the address as host:port when parsable.
func (n NetAddr) String() string {
	ap, err := n.AddrPort()
	if err != nil {
		return n.Netid + "://" + n.Addr
	}
	return n.Netid + "://" + ap.String()
}
