package coapmsg

import "testing"

func TestBlockInfoRoundTrip(t *testing.T) {
	b := BlockInfo{Num: 5, More: true, Szx: 2}
	enc := b.Encode()
	got, err := DecodeBlockInfo(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != b {
		t.Fatalf("got %+v, want %+v", got, b)
	}
	if got.BlockSize() != 64 {
		t.Fatalf("expected block size 64, got %d", got.BlockSize())
	}
}

func TestBlockInfoInvalidSzx(t *testing.T) {
	_, err := DecodeBlockInfo([]byte{0x07})
	if err == nil {
		t.Fatalf("expected error for szx=7")
	}
}

func TestBlockInfoNext(t *testing.T) {
	b := BlockInfo{Num: 0, More: true, Szx: 4}
	n := b.Next()
	if n.Num != 1 || n.Szx != 4 {
		t.Fatalf("unexpected next block: %+v", n)
	}
}
