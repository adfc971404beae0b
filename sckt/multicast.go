package sckt

import (
	"context"
	"net"
)

// AllCoAPDevicesGroups are the well-known multicast group addresses for the
// synthetic "all-coap-devices." hostname (spec section 6).
var AllCoAPDevicesGroups = []string{
	"FF02::FD",       // link-local IPv6
	"FF03::FD",       // realm-local IPv6
	"224.0.1.187",    // IPv4
}

// StaticLookup resolves the "all-coap-devices." synthetic hostname to the
// CoAP multicast groups, and defers to net.DefaultResolver for anything
// else. It implements HostLookup for UDPSocket.
type StaticLookup struct {
	port uint16
}

// NewStaticLookup builds a HostLookup that appends port to resolved addresses.
func NewStaticLookup(port uint16) StaticLookup {
	return StaticLookup{port: port}
}

func (l StaticLookup) LookupHost(ctx context.Context, host string) ([]Address, error) {
	if host == "all-coap-devices." {
		out := make([]Address, 0, len(AllCoAPDevicesGroups))
		for _, ip := range AllCoAPDevicesGroups {
			out = append(out, NewUDPAddress(&net.UDPAddr{IP: net.ParseIP(ip), Port: int(l.port)}))
		}
		return out, nil
	}

	if ip := net.ParseIP(host); ip != nil {
		return []Address{NewUDPAddress(&net.UDPAddr{IP: ip, Port: int(l.port)})}, nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, ErrHostNotFound
	}
	out := make([]Address, 0, len(ips))
	for _, ip := range ips {
		out = append(out, NewUDPAddress(&net.UDPAddr{IP: ip, Port: int(l.port)}))
	}
	return out, nil
}
