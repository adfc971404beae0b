package coap

import (
	"context"
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/sckt"
)

// outcome is what an exchange's sink pushes onto its internal channel each
// time Handle resolves an inbound event.
type outcome[R any] struct {
	kind  statusKind
	value R
	err   error
}

// exchange bridges the type-erased tracker (which only knows about sink)
// and a caller's concrete SendDesc[R]: Handle runs against res, and the
// resulting ResponseStatus is forwarded onto ch for the driving goroutine
// in Send/SendMulticast/SendObserve to consume.
type exchange[R any] struct {
	desc SendDesc[R]
	ch   chan outcome[R]
}

func newExchange[R any](desc SendDesc[R]) *exchange[R] {
	return &exchange[R]{desc: desc, ch: make(chan outcome[R], 8)}
}

func (e *exchange[R]) deliver(res InboundResult) bool {
	status, err := e.desc.Handle(res)
	if err != nil {
		e.ch <- outcome[R]{kind: statusDone, err: err}
		return true
	}
	e.ch <- outcome[R]{kind: status.kind, value: status.value}
	return status.IsDone()
}

// ackOnly pushes a statusAcked marker so a blocked transmitWithRetransmit
// stops retransmitting, without ever calling desc.Handle: a bare empty ACK
// is not a response.
func (e *exchange[R]) ackOnly() {
	select {
	case e.ch <- outcome[R]{kind: statusAcked}:
	default:
	}
}

// noResponseAware is implemented by a descriptor (see NoResponse in
// senddesc_wrappers.go) that can tell, from its own RFC 7967 No-Response
// bitmask, that no body response will ever follow the initial ACK.
type noResponseAware interface {
	suppressesAllResponses() bool
}

// encodeOutbound renders msg and rejects it outright if it would exceed the
// practical network message size, rather than attempting a send that would
// need IP fragmentation.
func encodeOutbound(msg coapmsg.Message) ([]byte, error) {
	raw, err := msg.MarshalBinary()
	if err != nil {
		return nil, wrapErr(InvalidArgument, err, "encoding outbound message")
	}
	if len(raw) > coapmsg.MaxMessageSize {
		return nil, wrapErr(OutOfSpace, coapmsg.ErrOutOfSpace, "outbound message exceeds MaxMessageSize")
	}
	return raw, nil
}

// nextMessageID returns a fresh, endpoint-scoped message ID. Wraparound is
// fine: RFC 7252 only requires that IDs not repeat within EXCHANGE_LIFETIME,
// which a uint16 counter satisfies for any plausible send rate.
func (ep *LocalEndpoint) nextMessageID() uint16 {
	return uint16(ep.idSeq.Inc())
}

// buildMessage renders desc into a fresh wire message with the given id and
// token, suitable for SendTo.
func buildMessage[R any](desc SendDesc[R], remote sckt.Address, id uint16, token []byte) coapmsg.Message {
	msg := coapmsg.NewMessage()
	msg.MessageID = id
	msg.Token = token
	desc.WriteOptions(&msg, remote)
	desc.WritePayload(&msg, remote)
	return msg
}

// transmitWithRetransmit sends msg and, if it is confirmable, keeps
// resending it on the descriptor's backoff schedule until ch produces an
// outcome, ctx is done, or retries are exhausted (in which case it returns
// a ResponseTimeout error).
func transmitWithRetransmit[R any](ctx context.Context, ep *LocalEndpoint, remote sckt.Address, desc SendDesc[R], msg coapmsg.Message, ch <-chan outcome[R]) (outcome[R], error) {
	raw, err := encodeOutbound(msg)
	if err != nil {
		return outcome[R]{}, err
	}
	if err := ep.sock.SendTo(ctx, raw, remote); err != nil {
		return outcome[R]{}, wrapErr(IOError, err, "sending outbound message")
	}
	if ep.metrics != nil {
		ep.metrics.Sent.Inc()
	}

	if msg.Type != coapmsg.Confirmable {
		select {
		case o := <-ch:
			return o, nil
		case <-ctx.Done():
			return outcome[R]{}, wrapErr(Cancelled, ctx.Err(), "send cancelled")
		}
	}

	// MaxRTT is MAX_TRANSMIT_WAIT (RFC 7252 4.8.2): the full bound on how
	// long to wait for a response across every retransmit, not an
	// additional wait tacked on once retransmits are exhausted.
	deadline := time.Now().Add(desc.MaxRTT())
	n := 1
	acked := false
	for {
		var wait time.Duration
		retry := false
		if !acked {
			wait, retry = desc.DelayToRetransmit(n)
		}
		if until := time.Until(deadline); !retry || wait > until {
			wait = until
		}
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case o := <-ch:
			timer.Stop()
			if o.kind == statusAcked {
				acked = true
				if nr, ok := desc.(noResponseAware); ok && nr.suppressesAllResponses() {
					return outcome[R]{kind: statusDone}, nil
				}
				continue
			}
			return o, nil
		case <-ctx.Done():
			timer.Stop()
			return outcome[R]{}, wrapErr(Cancelled, ctx.Err(), "send cancelled")
		case <-timer.C:
			if acked || !retry || !time.Now().Before(deadline) {
				if ep.metrics != nil {
					ep.metrics.Timeouts.Inc()
				}
				return outcome[R]{}, newErr(ResponseTimeout, "no response within MAX_TRANSMIT_WAIT")
			}
			if err := ep.sock.SendTo(ctx, raw, remote); err != nil {
				return outcome[R]{}, wrapErr(IOError, err, "retransmitting outbound message")
			}
			if ep.metrics != nil {
				ep.metrics.Sent.Inc()
				ep.metrics.Retransmits.Inc()
			}
			n++
		}
	}
}

// Send drives a single request/response exchange to completion: it
// transmits desc, retransmitting per its backoff schedule if confirmable,
// applies block-wise/SendNext continuation, and returns desc's Done value.
func Send[R any](ctx context.Context, ep *LocalEndpoint, remote sckt.Address, desc SendDesc[R]) (R, error) {
	var zero R
	token := ep.tokenGen.NextToken()
	ex := newExchange(desc)

	for {
		id := ep.nextMessageID()
		ep.tracker.RegisterID(remote, id, ex)
		ep.tracker.RegisterToken(remote, token, false, ex)

		msg := buildMessage(desc, remote, id, token)
		o, err := transmitWithRetransmit(ctx, ep, remote, desc, msg, ex.ch)
		// Continue (or a late bare ACK) leaves the exchange open: keep
		// listening on the same registrations instead of resending.
		for err == nil && o.err == nil && (o.kind == statusContinue || o.kind == statusAcked) {
			select {
			case o = <-ex.ch:
			case <-ctx.Done():
				err = wrapErr(Cancelled, ctx.Err(), "send cancelled")
			}
		}

		ep.tracker.UnregisterID(remote, id)

		if err != nil {
			ep.tracker.UnregisterToken(token)
			return zero, err
		}
		if o.err != nil {
			ep.tracker.UnregisterToken(token)
			return zero, o.err
		}
		switch o.kind {
		case statusDone:
			ep.tracker.UnregisterToken(token)
			return o.value, nil
		case statusSendNext:
			continue // re-render and resend with a fresh message ID (e.g. next block)
		default: // not reached: Continue is consumed by the wait above
			continue
		}
	}
}

// ObserveEvent is one item produced by SendObserve's notification channel.
type ObserveEvent struct {
	Msg coapmsg.Message
	Err error
}

// SendObserve registers an observation (RFC 7641) and returns a channel of
// notifications plus a cancel function. The channel is closed once cancel
// is called or ctx is done. If no notification (and no renewed Observe
// response) arrives for longer than desc's DelayToRestart, the
// registration is silently redone with a fresh token, matching RFC 7641's
// expectation that a client re-GETs after suspecting a lost cancellation.
func SendObserve(ctx context.Context, ep *LocalEndpoint, remote sckt.Address, desc SendDesc[coapmsg.Message]) (<-chan ObserveEvent, func(), error) {
	out := make(chan ObserveEvent, 8)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		for {
			token := ep.tokenGen.NextToken()
			ex := newExchange(desc)
			id := ep.nextMessageID()
			ep.tracker.RegisterID(remote, id, ex)
			ep.tracker.RegisterToken(remote, token, false, ex)

			msg := buildMessage(desc, remote, id, token)
			raw, err := encodeOutbound(msg)
			if err != nil {
				out <- ObserveEvent{Err: err}
				ep.tracker.UnregisterID(remote, id)
				ep.tracker.UnregisterToken(token)
				return
			}
			if err := ep.sock.SendTo(ctx, raw, remote); err != nil {
				out <- ObserveEvent{Err: wrapErr(IOError, err, "sending observe request")}
				ep.tracker.UnregisterID(remote, id)
				ep.tracker.UnregisterToken(token)
				return
			}

			restart := desc.DelayToRestart()
			if restart <= 0 {
				restart = DefaultObserveRestart
			}
			silence := time.NewTimer(restart)

		inner:
			for {
				select {
				case <-ctx.Done():
					silence.Stop()
					ep.tracker.UnregisterID(remote, id)
					ep.tracker.UnregisterToken(token)
					return
				case o := <-ex.ch:
					silence.Reset(restart)
					if o.err != nil {
						out <- ObserveEvent{Err: o.err}
						continue inner
					}
					if o.kind == statusContinue || o.kind == statusDone {
						out <- ObserveEvent{Msg: o.value}
					}
				case <-silence.C:
					if ep.metrics != nil {
						ep.metrics.ObserveRestarts.Inc()
					}
					ep.tracker.UnregisterID(remote, id)
					ep.tracker.UnregisterToken(token)
					break inner // re-register from the top
				}
			}
		}
	}()

	return out, cancel, nil
}

// SendMulticast sends a non-confirmable request to a multicast remote and
// collects every reply that arrives within desc's TransmitWaitDuration
// (RFC 7252 8.2's leisure window), then returns them all at once.
func SendMulticast[R any](ctx context.Context, ep *LocalEndpoint, remote sckt.Address, desc SendDesc[R]) ([]R, error) {
	token := ep.tokenGen.NextToken()
	ex := newExchange(desc)
	ep.tracker.RegisterToken(remote, token, true, ex)
	defer ep.tracker.UnregisterToken(token)

	id := ep.nextMessageID()
	msg := buildMessage(desc, remote, id, token)
	raw, err := encodeOutbound(msg)
	if err != nil {
		return nil, err
	}
	if err := ep.sock.SendTo(ctx, raw, remote); err != nil {
		return nil, wrapErr(IOError, err, "sending multicast request")
	}

	wait := desc.TransmitWaitDuration()
	if wait <= 0 {
		wait = DefaultTransmissionParams.DefaultLeisure
	}
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	var results []R
	for {
		select {
		case <-ctx.Done():
			return results, wrapErr(Cancelled, ctx.Err(), "multicast collection cancelled")
		case <-deadline.C:
			return results, nil
		case o := <-ex.ch:
			if o.err != nil {
				continue
			}
			if o.kind == statusContinue || o.kind == statusDone {
				results = append(results, o.value)
			}
		}
	}
}
