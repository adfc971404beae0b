package sckt

import (
	"context"
	"fmt"
	"sync"
)

// LoopAddress names one endpoint of an in-process loopback pair.
type LoopAddress struct {
	name string
}

func (a LoopAddress) String() string                      { return "loop:" + a.name }
func (a LoopAddress) IsMulticast() bool                    { return false }
func (a LoopAddress) Port() uint16                         { return 0 }
func (a LoopAddress) ConformingTo(local Address) bool      { return true }
func (a LoopAddress) Equal(other Address) bool {
	la, ok := other.(LoopAddress)
	return ok && la.name == a.name
}

// LoopSocket is a byte-perfect in-process transport backing the "loop" URI
// scheme (spec section 6). Two LoopSockets created by NewLoopSocketPair
// deliver each other's SendTo calls as RecvFrom datagrams, which is useful
// for driving the send engine and tracker in tests without a real network.
type LoopSocket struct {
	local Address
	peer  *LoopSocket

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Datagram
	closed bool
}

// NewLoopSocketPair returns two sockets, each other's sole peer.
func NewLoopSocketPair(nameA, nameB string) (*LoopSocket, *LoopSocket) {
	a := &LoopSocket{local: LoopAddress{name: nameA}}
	b := &LoopSocket{local: LoopAddress{name: nameB}}
	a.cond = sync.NewCond(&a.mu)
	b.cond = sync.NewCond(&b.mu)
	a.peer = b
	b.peer = a
	return a, b
}

func (s *LoopSocket) LocalAddr() Address {
	return s.local
}

func (s *LoopSocket) SendTo(ctx context.Context, buf []byte, addr Address) error {
	s.peer.mu.Lock()
	defer s.peer.mu.Unlock()
	if s.peer.closed {
		return ErrClosed
	}
	cp := append([]byte(nil), buf...)
	s.peer.queue = append(s.peer.queue, Datagram{Data: cp, Remote: s.local, LocalHint: addr})
	s.peer.cond.Signal()
	return nil
}

func (s *LoopSocket) RecvFrom(ctx context.Context, buf []byte) (int, Address, Address, error) {
	s.mu.Lock()
	for len(s.queue) == 0 && !s.closed {
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				s.mu.Lock()
				s.cond.Broadcast()
				s.mu.Unlock()
			case <-done:
			}
		}()
		s.cond.Wait()
		close(done)
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return 0, nil, nil, err
		}
	}
	if s.closed && len(s.queue) == 0 {
		s.mu.Unlock()
		return 0, nil, nil, ErrClosed
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	s.mu.Unlock()

	n := copy(buf, d.Data)
	return n, d.Remote, d.LocalHint, nil
}

func (s *LoopSocket) JoinMulticastGroup(group Address) error {
	return ErrMulticastUnsupported
}

func (s *LoopSocket) LeaveMulticastGroup(group Address) error {
	return ErrMulticastUnsupported
}

func (s *LoopSocket) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

var _ fmt.Stringer = LoopAddress{}
