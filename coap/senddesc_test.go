package coap

import (
	"testing"
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
)

func TestPingHandleReturnsBadResponseOnNonReset(t *testing.T) {
	desc := Ping()
	reply := coapmsg.NewMessage()
	reply.Code = coapmsg.Content
	_, err := desc.Handle(InboundResult{Ctx: InboundContext{Msg: reply}})
	if err == nil {
		t.Fatalf("expected error for a non-reset ping reply")
	}
	if KindOf(err) != BadResponse {
		t.Fatalf("expected BadResponse, got %v", KindOf(err))
	}
}

func TestPingHandleAcceptsReset(t *testing.T) {
	desc := Ping()
	status, err := desc.Handle(InboundResult{Err: newErr(Reset, "peer sent RST")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsDone() {
		t.Fatalf("expected Done on reset")
	}
}

func TestNoResponseSuppressesConfiguredClass(t *testing.T) {
	desc := NoResponse(Get(), NoResponseSuppress4xx)

	reply := coapmsg.NewMessage()
	reply.Code = coapmsg.NotFound // 4.04
	status, err := desc.Handle(InboundResult{Ctx: InboundContext{Msg: reply}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsContinue() {
		t.Fatalf("expected a suppressed 4.xx reply to be Continue, got done=%v", status.IsDone())
	}

	reply.Code = coapmsg.Content // 2.05, not suppressed
	status, err = desc.Handle(InboundResult{Ctx: InboundContext{Msg: reply}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.IsDone() {
		t.Fatalf("expected an unsuppressed 2.xx reply to finish the exchange")
	}
}

func TestNoResponseSuppressesAllResponses(t *testing.T) {
	mask := NoResponseSuppress2xx | NoResponseSuppress4xx | NoResponseSuppress5xx
	desc := NoResponse(Get(), mask)
	nr, ok := desc.(noResponseAware)
	if !ok {
		t.Fatalf("NoResponse descriptor does not implement noResponseAware")
	}
	if !nr.suppressesAllResponses() {
		t.Fatalf("expected a full 2xx|4xx|5xx mask to suppress all responses")
	}

	partial := NoResponse(Get(), NoResponseSuppress4xx)
	nr, ok = partial.(noResponseAware)
	if !ok {
		t.Fatalf("NoResponse descriptor does not implement noResponseAware")
	}
	if nr.suppressesAllResponses() {
		t.Fatalf("expected a partial mask not to suppress all responses")
	}
}

func TestRetransmitBackoffIsRandomizedWithinBounds(t *testing.T) {
	params := DefaultTransmissionParams
	d1 := newReqDesc(coapmsg.GET)
	d2 := newReqDesc(coapmsg.GET)

	w1, ok1 := d1.DelayToRetransmit(1)
	w2, ok2 := d2.DelayToRetransmit(1)
	if !ok1 || !ok2 {
		t.Fatalf("expected a first retransmit to be scheduled")
	}
	low := params.AckTimeout
	high := time.Duration(float64(params.AckTimeout) * params.AckRandomFactor)
	for _, w := range []time.Duration{w1, w2} {
		if w < low || w >= high {
			t.Fatalf("retransmit delay %v outside RFC 7252 4.8.2 bounds [%v, %v)", w, low, high)
		}
	}
}
