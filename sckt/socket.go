// Package sckt defines the datagram socket contract the CoAP engine needs
// from any transport (RFC 7252 section 1.1's "unreliable datagram
// transport"), and ships three concrete implementations: a real UDP
// socket, an in-process loopback pair, and a null sink. DTLS/TLS and
// CoAP-over-TCP transports are not part of this contract; they are
// external collaborators per the engine's scope.
package sckt

import (
	"context"
	"fmt"
)

// Address is what the engine needs to know about a peer: enough to log it,
// compare it, and decide whether a reply must come from a specific local
// interface (the multicast case).
type Address interface {
	fmt.Stringer
	// IsMulticast reports whether this address names a multicast group.
	IsMulticast() bool
	// Port returns the transport port, or 0 if not applicable.
	Port() uint16
	// ConformingTo reports whether this address is routable from the
	// given local address. The coap tracker does not consult it; it
	// matches sources with Equal.
	ConformingTo(local Address) bool
	// Equal reports value equality; Address implementations must be safe
	// to use as map keys via their String() form.
	Equal(other Address) bool
}

// Datagram is one received packet: its payload, the remote it came from,
// and — for a socket bound to a multicast or wildcard address — the local
// address it actually arrived on, so a reply can be sent from the correct
// unicast source.
type Datagram struct {
	Data      []byte
	Remote    Address
	LocalHint Address
}

// Socket is the trait surface the engine requires of any datagram
// transport. Calls block the calling goroutine but must honor ctx
// cancellation; the engine always invokes them from a dedicated goroutine,
// so "non-blocking" in the protocol sense is achieved by cooperative
// scheduling rather than a poll-based API, which is the idiomatic
// equivalent in a goroutine-based runtime.
type Socket interface {
	// LocalAddr returns the address this socket is bound to.
	LocalAddr() Address

	// SendTo writes buf to addr. Partial writes are not possible for a
	// datagram transport: a successful return means the whole datagram
	// was handed to the transport.
	SendTo(ctx context.Context, buf []byte, addr Address) error

	// RecvFrom blocks until a datagram arrives or ctx is done. buf must
	// be sized to the transport's maximum datagram size; n is the number
	// of bytes written into buf.
	RecvFrom(ctx context.Context, buf []byte) (n int, remote Address, localHint Address, err error)

	// JoinMulticastGroup and LeaveMulticastGroup manage group membership
	// for sockets that support it. A socket that does not support
	// multicast returns ErrMulticastUnsupported.
	JoinMulticastGroup(group Address) error
	LeaveMulticastGroup(group Address) error

	// Close releases the underlying transport resource.
	Close() error
}

// HostLookup resolves a hostname to zero or more addresses appropriate for
// a given scheme/socket family. Implementations may consult DNS, a static
// table (the "all-coap-devices." synthetic hostname), or nothing at all
// (the null socket).
type HostLookup interface {
	LookupHost(ctx context.Context, host string) ([]Address, error)
}
