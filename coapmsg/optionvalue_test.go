package coapmsg

import "testing"

// Testable property 3: integer encoding minimality.
func TestIntegerEncodingMinimality(t *testing.T) {
	cases := []struct {
		u    uint64
		want int
	}{
		{0, 0},
		{1, 1},
		{0xff, 1},
		{0x100, 2},
		{0xffff, 2},
		{0x10000, 3},
		{0xffffffff, 4},
	}
	for _, c := range cases {
		enc := EncodeUint(c.u)
		if len(enc) != c.want {
			t.Errorf("EncodeUint(%#x): got %d bytes, want %d", c.u, len(enc), c.want)
		}
		v := OptionValue{b: enc}
		if v.AsUInt64() != c.u {
			t.Errorf("round trip %#x: got %#x", c.u, v.AsUInt64())
		}
	}
}

func TestDecodePadsShortValues(t *testing.T) {
	v := OptionValue{b: []byte{0x01}}
	if v.AsUInt32() != 1 {
		t.Fatalf("expected 1, got %d", v.AsUInt32())
	}
	if NilOptionValue.AsUInt64() != 0 {
		t.Fatalf("expected 0 for nil value")
	}
}
