package coap

import (
	"math/rand"
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/sckt"
)

// statusKind discriminates the three ways a SendDesc handler can resolve.
type statusKind int

const (
	statusContinue statusKind = iota
	statusSendNext
	statusDone
	// statusAcked is engine-internal: it marks an outcome pushed by
	// exchange.ackOnly for a bare empty ACK, never produced by a
	// descriptor's Handle and never exposed via Done/SendNext/Continue.
	statusAcked
)

// ResponseStatus is a SendDesc[R].Handle return value: either the exchange
// is Done with a final R, wants the engine to SendNext (retransmit, fetch
// the next block, re-register an observation), or should Continue waiting
// without producing a value yet (an intermediate block, a duplicate ACK).
type ResponseStatus[R any] struct {
	kind  statusKind
	value R
}

func Done[R any](v R) ResponseStatus[R] {
	return ResponseStatus[R]{kind: statusDone, value: v}
}

func SendNext[R any]() ResponseStatus[R] {
	return ResponseStatus[R]{kind: statusSendNext}
}

func Continue[R any]() ResponseStatus[R] {
	return ResponseStatus[R]{kind: statusContinue}
}

func (s ResponseStatus[R]) IsDone() bool     { return s.kind == statusDone }
func (s ResponseStatus[R]) IsSendNext() bool { return s.kind == statusSendNext }
func (s ResponseStatus[R]) IsContinue() bool { return s.kind == statusContinue }
func (s ResponseStatus[R]) Value() R         { return s.value }

// SendDesc is a composable description of an outbound exchange. A base
// descriptor (Get, Put, Post, Delete, Observe, Ping) describes the request
// itself; wrapper functions (AddOption, PayloadWriter, UriHostPath, ...)
// decorate a SendDesc with additional options, payload, or response
// handling without the base needing to know about them. This mirrors the
// "send descriptor" composition from the async engine this package is
// modeled on, minus the zero-copy streaming encode: options are appended
// in any order here because coapmsg.Message sorts them on MarshalBinary.
type SendDesc[R any] interface {
	// WriteOptions appends this descriptor's own options (and, for a
	// wrapper, its inner descriptor's) onto msg.
	WriteOptions(msg *coapmsg.Message, remote sckt.Address)

	// WritePayload sets msg.Payload if this descriptor carries one.
	WritePayload(msg *coapmsg.Message, remote sckt.Address)

	// Handle is invoked once per matched inbound event for this exchange:
	// a piggybacked or separate response, or an error such as a reset. A
	// bare empty ACK and the engine's own timeout never reach it. It returns the next ResponseStatus and, if the event represents a
	// terminal failure the caller should see, a non-nil error.
	Handle(res InboundResult) (ResponseStatus[R], error)

	// DelayToRetransmit returns how long to wait before the n-th
	// retransmission (n starting at 1), and whether a retransmission
	// should happen at all.
	DelayToRetransmit(n int) (time.Duration, bool)

	// DelayToRestart is how long SendObserve waits without a notification
	// before registering the observation again. Zero (or less) makes
	// SendObserve use DefaultObserveRestart.
	DelayToRestart() time.Duration

	// MaxRTT bounds how long the engine waits for a response to a
	// confirmable message, measured from its first transmission and
	// including every retransmission.
	MaxRTT() time.Duration

	// TransmitWaitDuration bounds how long SendMulticast stays registered
	// collecting responses before it returns them. Zero (or less) makes
	// SendMulticast use DefaultTransmissionParams.DefaultLeisure.
	TransmitWaitDuration() time.Duration
}

// baseDesc is embedded by every leaf descriptor (Get/Put/Post/Delete/
// Observe/Ping) to supply the default timing profile: exponential-backoff
// retransmission for a confirmable message, none otherwise. Wrappers like Multicast/NonConfirmable
// override pieces of this by wrapping, not by mutating it.
type baseDesc struct {
	code    coapmsg.COAPCode
	msgType coapmsg.COAPType
	params  TransmissionParams

	// initialFactor is the per-exchange random multiplier in
	// [1.0, AckRandomFactor), drawn once when the descriptor is built and
	// held fixed across every retransmission of the same exchange, per RFC
	// 7252 4.8.2 ("the initial timeout is set to a random duration ...
	// each subsequent retransmission timeout scales the initial by 2").
	initialFactor float64
}

// newBaseDesc builds a baseDesc with its random retransmit factor drawn
// once, so callers never need to do it themselves.
func newBaseDesc(code coapmsg.COAPCode, msgType coapmsg.COAPType, params TransmissionParams) baseDesc {
	return baseDesc{code: code, msgType: msgType, params: params, initialFactor: randomAckFactor(params.AckRandomFactor)}
}

// randomAckFactor draws a value uniformly distributed in [1.0, factor), the
// ACK_RANDOM_FACTOR range RFC 7252 4.8.2 requires the initial retransmit
// timeout be scaled by.
func randomAckFactor(factor float64) float64 {
	if factor <= 1 {
		return 1
	}
	return 1 + rand.Float64()*(factor-1)
}

func (b baseDesc) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	msg.Type = b.msgType
	msg.Code = b.code
}

func (baseDesc) WritePayload(msg *coapmsg.Message, remote sckt.Address) {}

func (b baseDesc) DelayToRetransmit(n int) (time.Duration, bool) {
	if b.msgType != coapmsg.Confirmable {
		return 0, false
	}
	if n > b.params.MaxRetransmit {
		return 0, false
	}
	backoff := float64(uint(1) << uint(n-1))
	return time.Duration(float64(b.params.AckTimeout) * b.initialFactor * backoff), true
}

func (baseDesc) DelayToRestart() time.Duration { return 0 }

func (b baseDesc) MaxRTT() time.Duration {
	return b.params.MaxTransmitWait()
}

func (baseDesc) TransmitWaitDuration() time.Duration { return 0 }

// reqDesc is the leaf descriptor for GET/PUT/POST/DELETE: its Handle
// reports Done on the first response it sees (whatever its code) and
// passes errors through; wrappers like EmitAnyResponse turn that Done into
// a useful value.
type reqDesc struct {
	baseDesc
}

func (reqDesc) Handle(res InboundResult) (ResponseStatus[struct{}], error) {
	if res.Err != nil {
		return ResponseStatus[struct{}]{}, res.Err
	}
	return Done(struct{}{}), nil
}

func newReqDesc(code coapmsg.COAPCode) SendDesc[struct{}] {
	return reqDesc{newBaseDesc(code, coapmsg.Confirmable, DefaultTransmissionParams)}
}

// Get, Put, Post, Delete and Ping are the request-method base descriptors.
// Compose them with AddOption/PayloadWriter/UriHostPath/EmitAnyResponse and
// friends to build a complete request.
func Get() SendDesc[struct{}]    { return newReqDesc(coapmsg.GET) }
func Put() SendDesc[struct{}]    { return newReqDesc(coapmsg.PUT) }
func Post() SendDesc[struct{}]   { return newReqDesc(coapmsg.POST) }
func Delete() SendDesc[struct{}] { return newReqDesc(coapmsg.DELETE) }

// Ping is an empty confirmable message (RFC 7252 4.3): the peer is
// expected to answer with a Reset, which the engine surfaces as a normal
// Done rather than an error.
func Ping() SendDesc[struct{}] {
	return pingDesc{newBaseDesc(coapmsg.Empty, coapmsg.Confirmable, DefaultTransmissionParams)}
}

type pingDesc struct {
	baseDesc
}

// WriteOptions clears the token stamped by the engine: an empty message
// carries no token.
func (d pingDesc) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.baseDesc.WriteOptions(msg, remote)
	msg.Token = nil
}

func (pingDesc) Handle(res InboundResult) (ResponseStatus[struct{}], error) {
	if res.Err != nil {
		if KindOf(res.Err) == Reset {
			return Done(struct{}{}), nil
		}
		return ResponseStatus[struct{}]{}, res.Err
	}
	// A Ping expects a Reset; any other reply (e.g. a piggybacked 2.05) is
	// a protocol violation, not something to keep waiting past.
	return ResponseStatus[struct{}]{}, newErr(BadResponse, "ping expected a reset, got a response")
}

// Observe is the base descriptor for RFC 7641 observation: a GET carrying
// Observe=0. Composing it with the observe wrapper (see
// senddesc_wrappers.go) turns single Done deliveries into a long-lived
// Continue-valued stream that re-registers on renewal timeout.
func Observe() SendDesc[struct{}] {
	d := newReqDesc(coapmsg.GET)
	return AddOption(d, coapmsg.Observe, uint64(0))
}
