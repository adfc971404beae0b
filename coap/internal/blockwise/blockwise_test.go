package blockwise

import (
	"bytes"
	"testing"

	"github.com/lobaro/async-coap-go/coapmsg"
)

func TestChunkerAndReassemblerRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), 5) // 80 bytes
	const szx = 1                                          // 32-byte blocks

	c := NewChunker(payload, szx)
	var re Reassembler
	for num := uint32(0); ; num++ {
		info, chunk, ok := c.Block(num)
		if !ok {
			t.Fatalf("ran out of blocks before reassembly completed")
		}
		done := re.Append(info, chunk)
		if done {
			break
		}
	}

	if !bytes.Equal(re.Bytes(), payload) {
		t.Fatalf("reassembled payload mismatch:\n got  %q\n want %q", re.Bytes(), payload)
	}
}

func TestChunkerSingleBlockWhenSmall(t *testing.T) {
	payload := []byte("short")
	c := NewChunker(payload, coapmsg.MaxSzx)
	info, chunk, ok := c.Block(0)
	if !ok {
		t.Fatalf("expected block 0")
	}
	if info.More {
		t.Fatalf("expected More=false for single-block payload")
	}
	if string(chunk) != "short" {
		t.Fatalf("unexpected chunk: %q", chunk)
	}
	if c.NumBlocks() != 1 {
		t.Fatalf("expected 1 block, got %d", c.NumBlocks())
	}
}
