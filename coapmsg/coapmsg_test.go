package coapmsg

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	m := NewMessage()
	m.Type = Confirmable
	m.Code = GET
	m.MessageID = 0x1234
	m.Token = []byte{0xAB, 0xCD}
	m.Options().Add(URIHost, "example.test")
	m.Options().Add(URIPath, "a")
	m.Options().Add(URIPath, "b")
	m.Payload = []byte("hello")

	bin := m.MustMarshalBinary()
	got, err := ParseMessage(bin)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got.Type != m.Type || got.Code != m.Code || got.MessageID != m.MessageID {
		t.Fatalf("header mismatch: %+v", got)
	}
	if !bytes.Equal(got.Token, m.Token) {
		t.Fatalf("token mismatch: %x != %x", got.Token, m.Token)
	}
	if !bytes.Equal(got.Payload, m.Payload) {
		t.Fatalf("payload mismatch: %q != %q", got.Payload, m.Payload)
	}
	if got.Options().Get(URIHost).AsString() != "example.test" {
		t.Fatalf("uri-host mismatch: %s", got.Options().Get(URIHost).AsString())
	}
	path := got.Path()
	if len(path) != 2 || path[0] != "a" || path[1] != "b" {
		t.Fatalf("path mismatch: %v", path)
	}
}

// Scenario S3: encode a CON GET, id=0x1234, token=0xAB.
func TestS3HeaderBytes(t *testing.T) {
	m := NewMessage()
	m.Type = Confirmable
	m.Code = GET
	m.MessageID = 0x1234
	m.Token = []byte{0xAB}

	bin := m.MustMarshalBinary()
	want := []byte{0x41, 0x01, 0x12, 0x34, 0xAB}
	if !bytes.Equal(bin[:5], want) {
		t.Fatalf("got % x, want % x", bin[:5], want)
	}
}

// Testable property 2: out-of-order inserts still produce ascending deltas.
func TestOptionOrderingSurvivesOutOfOrderInsert(t *testing.T) {
	m := NewMessage()
	m.Options().Add(URIQuery, "y=2")
	m.Options().Add(URIPath, "b")
	m.Options().Add(URIHost, "h")
	m.Options().Add(URIPath, "a")

	bin := m.MustMarshalBinary()
	got, err := ParseMessage(bin)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var seen []OptionNumber
	view, err := ParseView(bin)
	if err != nil {
		t.Fatalf("parse view: %v", err)
	}
	view.WalkOptions(func(id OptionNumber, value []byte) bool {
		seen = append(seen, id)
		return true
	})
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("options not ascending: %v", seen)
		}
	}
	// URIPath values keep their relative insertion order even though
	// insertion was split across other options.
	path := got.Path()
	if len(path) != 2 || path[0] != "b" || path[1] != "a" {
		t.Fatalf("path order mismatch: %v", path)
	}
}

func TestParseFailureTruncatedToken(t *testing.T) {
	_, err := ParseMessage([]byte{0x48, 0x01, 0x00, 0x00})
	if err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestParseFailurePayloadMarkerEmptyPayload(t *testing.T) {
	_, err := ParseMessage([]byte{0x40, 0x01, 0x00, 0x00, 0xff})
	if err != ErrEmptyPayloadAfterMarker {
		t.Fatalf("expected ErrEmptyPayloadAfterMarker, got %v", err)
	}
}

func TestParsedMessageIsZeroCopy(t *testing.T) {
	m := NewMessage()
	m.Code = Content
	m.Type = Acknowledgement
	m.MessageID = 7
	m.Payload = []byte("body")
	bin := m.MustMarshalBinary()

	view, err := ParseView(bin)
	if err != nil {
		t.Fatalf("parse view: %v", err)
	}
	if !bytes.Equal(view.Payload(), []byte("body")) {
		t.Fatalf("payload mismatch: %q", view.Payload())
	}
	// The payload slice aliases the source buffer: mutating the source
	// after parsing shows through in bytes already sliced out.
	out := view.Payload()
	bin[len(bin)-1] = 'X'
	if out[len(out)-1] != 'X' {
		t.Fatalf("expected the view to truly alias the backing array")
	}
}
