package device

import (
	"net/netip"
)

// Class is the locality class of an address, from most private to public.
type Class int

const (
	ClassGlobal Class = iota
	ClassSiteLocal
	ClassLinkLocal
	ClassLoopback
)

func (c Class) String() string {
	switch c {
	case ClassLoopback:
		return "loopback"
	case ClassLinkLocal:
		return "link-local"
	case ClassSiteLocal:
		return "site-local"
	default:
		return "global"
	}
}

var (
	// deprecated IPv6 site-local prefix (RFC 3879)
	ipv6SiteLocal = netip.MustParsePrefix("fec0::/10")
)

// IsSiteLocal reports whether addr is a private-network address: the
// RFC 1918 IPv4 ranges, IPv6 unique local addresses (fc00::/7) and the
// deprecated fec0::/10 site-local prefix.
func IsSiteLocal(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() || (addr.Is6() && ipv6SiteLocal.Contains(addr))
}

// IsLinkLocal reports whether addr is a link-local unicast address.
func IsLinkLocal(addr netip.Addr) bool {
	return addr.Unmap().IsLinkLocalUnicast()
}

// IsLoopback reports whether addr is a loopback address.
func IsLoopback(addr netip.Addr) bool {
	return addr.Unmap().IsLoopback()
}

// ClassOf returns the most private locality class addr belongs to.
func ClassOf(addr netip.Addr) Class {
	switch {
	case IsLoopback(addr):
		return ClassLoopback
	case IsLinkLocal(addr):
		return ClassLinkLocal
	case IsSiteLocal(addr):
		return ClassSiteLocal
	default:
		return ClassGlobal
	}
}

// FilterForClient returns the candidates a client at clientAddr may be told
// about, preserving order.
//
// Each locality class (loopback, link-local, site-local) is checked on its
// own: a candidate in a class is kept only if the client is in the same
// class. Globally routable candidates are always kept. The result may be
// empty.
func FilterForClient(candidates []netip.AddrPort, clientAddr netip.Addr) []netip.AddrPort {
	clientLoopback := IsLoopback(clientAddr)
	clientLinkLocal := IsLinkLocal(clientAddr)
	clientSiteLocal := IsSiteLocal(clientAddr)

	visible := make([]netip.AddrPort, 0, len(candidates))
	for _, candidate := range candidates {
		addr := candidate.Addr()
		if IsLoopback(addr) && !clientLoopback {
			continue
		}
		if IsLinkLocal(addr) && !clientLinkLocal {
			continue
		}
		if IsSiteLocal(addr) && !clientSiteLocal {
			continue
		}
		visible = append(visible, candidate)
	}
	return visible
}
