package sckt

import "context"

// NullAddress is the address of a NullSocket: equal to every other NullAddress.
type NullAddress struct{}

func (NullAddress) String() string                 { return "null:" }
func (NullAddress) IsMulticast() bool               { return false }
func (NullAddress) Port() uint16                    { return 0 }
func (NullAddress) ConformingTo(local Address) bool { return true }
func (NullAddress) Equal(other Address) bool {
	_, ok := other.(NullAddress)
	return ok
}

// NullSocket backs the "null" URI scheme: every send is silently discarded
// and every receive blocks until ctx is done. It is useful as the
// zero-value transport for a local endpoint that will never be used for
// I/O, e.g. one that only composes and inspects descriptors in tests.
type NullSocket struct{}

func NewNullSocket() *NullSocket {
	return &NullSocket{}
}

func (s *NullSocket) LocalAddr() Address {
	return NullAddress{}
}

func (s *NullSocket) SendTo(ctx context.Context, buf []byte, addr Address) error {
	return nil
}

func (s *NullSocket) RecvFrom(ctx context.Context, buf []byte) (int, Address, Address, error) {
	<-ctx.Done()
	return 0, nil, nil, ctx.Err()
}

func (s *NullSocket) JoinMulticastGroup(group Address) error {
	return ErrMulticastUnsupported
}

func (s *NullSocket) LeaveMulticastGroup(group Address) error {
	return ErrMulticastUnsupported
}

func (s *NullSocket) Close() error {
	return nil
}
