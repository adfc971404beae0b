package sckt

import "errors"

var (
	// ErrMulticastUnsupported is returned by sockets with no concept of
	// multicast group membership (LoopSocket, NullSocket).
	ErrMulticastUnsupported = errors.New("sckt: socket does not support multicast")

	// ErrClosed is returned by operations on a socket that has been closed.
	ErrClosed = errors.New("sckt: socket is closed")

	// ErrHostNotFound is returned by a HostLookup that found no addresses.
	ErrHostNotFound = errors.New("sckt: host not found")
)
