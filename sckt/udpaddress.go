package sckt

import "net"

// UDPAddress adapts *net.UDPAddr to the Address interface.
type UDPAddress struct {
	addr *net.UDPAddr
}

// NewUDPAddress wraps a resolved UDP address.
func NewUDPAddress(addr *net.UDPAddr) UDPAddress {
	return UDPAddress{addr: addr}
}

func (a UDPAddress) String() string {
	if a.addr == nil {
		return "<nil>"
	}
	return a.addr.String()
}

func (a UDPAddress) IsMulticast() bool {
	return a.addr != nil && a.addr.IP.IsMulticast()
}

func (a UDPAddress) Port() uint16 {
	if a.addr == nil {
		return 0
	}
	return uint16(a.addr.Port)
}

// ConformingTo reports whether a is reachable from local's address family
// (both IPv4, or both IPv6); a wildcard local address conforms to anything.
func (a UDPAddress) ConformingTo(local Address) bool {
	lu, ok := local.(UDPAddress)
	if !ok || lu.addr == nil || a.addr == nil {
		return false
	}
	if lu.addr.IP.IsUnspecified() {
		return true
	}
	return (lu.addr.IP.To4() == nil) == (a.addr.IP.To4() == nil)
}

func (a UDPAddress) Equal(other Address) bool {
	ou, ok := other.(UDPAddress)
	if !ok {
		return false
	}
	if a.addr == nil || ou.addr == nil {
		return a.addr == ou.addr
	}
	return a.addr.IP.Equal(ou.addr.IP) && a.addr.Port == ou.addr.Port && a.addr.Zone == ou.addr.Zone
}

// UDPAddr exposes the underlying *net.UDPAddr for callers (e.g. a transport
// implementation) that need it directly.
func (a UDPAddress) UDPAddr() *net.UDPAddr {
	return a.addr
}
