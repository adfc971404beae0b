package coap

import (
	"testing"

	"github.com/lobaro/async-coap-go/sckt"
)

type fakeSink struct {
	delivered []InboundResult
	finishOn  int // deliver() reports finished once len(delivered) reaches this
}

func (f *fakeSink) deliver(res InboundResult) bool {
	f.delivered = append(f.delivered, res)
	return len(f.delivered) >= f.finishOn
}

func (f *fakeSink) ackOnly() {}

func TestTrackerDispatchByIDRemovesOnFinish(t *testing.T) {
	tr := NewResponseTracker()
	addr := sckt.LoopAddress{}
	s := &fakeSink{finishOn: 1}
	tr.RegisterID(addr, 42, s)

	if !tr.DispatchByID(addr, 42, InboundResult{}) {
		t.Fatalf("expected match")
	}
	byID, _ := tr.Len()
	if byID != 0 {
		t.Fatalf("expected registration removed after finish, byID=%d", byID)
	}
}

func TestTrackerDispatchByTokenMulticastSurvivesDelivery(t *testing.T) {
	tr := NewResponseTracker()
	addr := sckt.LoopAddress{}
	s := &fakeSink{finishOn: 100}
	tr.RegisterToken(addr, []byte{1, 2}, true, s)

	tr.DispatchByToken(addr, []byte{1, 2}, InboundResult{})
	tr.DispatchByToken(addr, []byte{1, 2}, InboundResult{})

	_, byToken := tr.Len()
	if byToken != 1 {
		t.Fatalf("expected multicast registration to persist, byToken=%d", byToken)
	}
	if len(s.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(s.delivered))
	}
}

func TestTrackerDispatchByTokenRejectsWrongAddress(t *testing.T) {
	tr := NewResponseTracker()
	a, b := sckt.NewLoopSocketPair("a", "b")
	defer a.Close()
	defer b.Close()

	s := &fakeSink{finishOn: 1}
	tr.RegisterToken(a.LocalAddr(), []byte{9}, false, s)

	if tr.DispatchByToken(b.LocalAddr(), []byte{9}, InboundResult{}) {
		t.Fatalf("expected no match from an unregistered address")
	}
}

func TestTrackerNoMatchReturnsFalse(t *testing.T) {
	tr := NewResponseTracker()
	addr := sckt.LoopAddress{}
	if tr.DispatchByID(addr, 1, InboundResult{}) {
		t.Fatalf("expected no match")
	}
	if tr.DispatchByToken(addr, []byte{1}, InboundResult{}) {
		t.Fatalf("expected no match")
	}
}
