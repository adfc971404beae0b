package coap

import (
	"sync"

	"github.com/lobaro/async-coap-go/sckt"
)

// sink is what the tracker delivers matched inbound traffic to. It is the
// type-erased half of a SendDesc[R] exchange: the generic Send/SendObserve/
// SendMulticast helpers close over their R and expose only this narrow interface, which
// is what lets exchanges of different result types share one tracker.
type sink interface {
	// deliver hands one matched InboundResult to the exchange. The return
	// value reports whether the exchange is finished and its registration
	// can be dropped.
	deliver(InboundResult) bool

	// ackOnly notifies the exchange that a bare empty ACK arrived: the
	// retransmit timer should stop, but this is not itself a response, so
	// it must never reach the descriptor's Handle.
	ackOnly()
}

type idKey struct {
	addr string
	id   uint16
}

type idEntry struct {
	sink sink
	addr sckt.Address
}

type tokenEntry struct {
	sink      sink
	addr      sckt.Address // nil => match any source (multicast registration)
	multicast bool
}

// ResponseTracker maps inbound datagrams to the pending exchange waiting
// for them. CoAP needs two independent matching schemes live at once (RFC
// 7252 5.3): message-ID matching for ACK/RST of a specific transmission,
// and token matching for the response itself, which may arrive piggybacked
// on the ACK or as a separate later message. Registrations are removed as
// soon as an exchange reports itself finished, which is the tracker's
// stand-in for the Rust implementation's weak-reference eviction — nothing
// here outlives the exchange that registered it.
type ResponseTracker struct {
	mu       sync.Mutex
	byID     map[idKey]idEntry
	byToken  map[string]tokenEntry
}

func NewResponseTracker() *ResponseTracker {
	return &ResponseTracker{
		byID:    make(map[idKey]idEntry),
		byToken: make(map[string]tokenEntry),
	}
}

func (t *ResponseTracker) RegisterID(addr sckt.Address, id uint16, s sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[idKey{addr: addr.String(), id: id}] = idEntry{sink: s, addr: addr}
}

func (t *ResponseTracker) UnregisterID(addr sckt.Address, id uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, idKey{addr: addr.String(), id: id})
}

// RegisterToken registers s to receive responses matching token. If
// multicast is true, addr is ignored and any source matches; registration
// is not removed automatically on a finished delivery since a multicast
// exchange expects many terminal deliveries, one per replying host.
func (t *ResponseTracker) RegisterToken(addr sckt.Address, token []byte, multicast bool, s sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := tokenEntry{sink: s, multicast: multicast}
	if !multicast {
		e.addr = addr
	}
	t.byToken[string(token)] = e
}

func (t *ResponseTracker) UnregisterToken(token []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byToken, string(token))
}

// DispatchByID delivers result to the exchange registered for (addr, id),
// if any, and reports whether a match was found.
func (t *ResponseTracker) DispatchByID(addr sckt.Address, id uint16, result InboundResult) bool {
	t.mu.Lock()
	e, ok := t.byID[idKey{addr: addr.String(), id: id}]
	t.mu.Unlock()
	if !ok {
		return false
	}
	if e.sink.deliver(result) {
		t.UnregisterID(addr, id)
	}
	return true
}

// AckByID stops the retransmit timer for the exchange registered at (addr,
// id) without delivering anything to its descriptor's Handle, and drops the
// id registration. Used for a bare empty ACK (RFC 7252 4.2), which confirms
// delivery but is never itself a response.
func (t *ResponseTracker) AckByID(addr sckt.Address, id uint16) bool {
	t.mu.Lock()
	e, ok := t.byID[idKey{addr: addr.String(), id: id}]
	t.mu.Unlock()
	if !ok {
		return false
	}
	e.sink.ackOnly()
	t.UnregisterID(addr, id)
	return true
}

// DispatchByToken delivers result to the exchange registered for token,
// subject to the address constraint recorded at registration time, and
// reports whether a match was found.
func (t *ResponseTracker) DispatchByToken(addr sckt.Address, token []byte, result InboundResult) bool {
	t.mu.Lock()
	e, ok := t.byToken[string(token)]
	t.mu.Unlock()
	if !ok {
		return false
	}
	if e.addr != nil && !e.addr.Equal(addr) {
		return false
	}
	if e.sink.deliver(result) && !e.multicast {
		t.UnregisterToken(token)
	}
	return true
}

// Len reports the number of live registrations, for tests and metrics.
func (t *ResponseTracker) Len() (byID int, byToken int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID), len(t.byToken)
}
