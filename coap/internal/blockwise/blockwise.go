// Package blockwise implements the reassembly and chunking bookkeeping
// behind RFC 7959 block-wise transfer, kept separate from the send
// descriptor wrappers that drive it so it can be tested against raw
// coapmsg.BlockInfo sequences without a socket.
package blockwise

import "github.com/lobaro/async-coap-go/coapmsg"

// Reassembler accumulates the payload of a Block2 (download) transfer
// across multiple responses.
type Reassembler struct {
	buf []byte
}

// Append adds one block's payload at the position implied by info, and
// reports whether the transfer is complete (info.More is false).
func (r *Reassembler) Append(info coapmsg.BlockInfo, payload []byte) bool {
	offset := int(info.Num) * info.BlockSize()
	if need := offset + len(payload); need > len(r.buf) {
		grown := make([]byte, need)
		copy(grown, r.buf)
		r.buf = grown
	}
	copy(r.buf[offset:], payload)
	return !info.More
}

// Bytes returns the reassembled payload so far.
func (r *Reassembler) Bytes() []byte {
	return r.buf
}

// Chunker splits a payload into RFC 7959 Block1-sized pieces for upload.
type Chunker struct {
	payload []byte
	szx     uint8
}

// NewChunker returns a Chunker that will emit payload in szx-sized blocks.
func NewChunker(payload []byte, szx uint8) *Chunker {
	return &Chunker{payload: payload, szx: szx}
}

// Block returns the num-th block (0-indexed) of the payload plus the
// BlockInfo describing it, and whether num was in range.
func (c *Chunker) Block(num uint32) (coapmsg.BlockInfo, []byte, bool) {
	size := coapmsg.BlockInfo{Szx: c.szx}.BlockSize()
	offset := int(num) * size
	if offset >= len(c.payload) && len(c.payload) > 0 {
		return coapmsg.BlockInfo{}, nil, false
	}
	end := offset + size
	more := end < len(c.payload)
	if end > len(c.payload) {
		end = len(c.payload)
	}
	info := coapmsg.BlockInfo{Num: num, More: more, Szx: c.szx}
	return info, c.payload[offset:end], true
}

// NumBlocks returns the total number of blocks the payload splits into.
func (c *Chunker) NumBlocks() uint32 {
	size := coapmsg.BlockInfo{Szx: c.szx}.BlockSize()
	if len(c.payload) == 0 {
		return 1
	}
	n := (len(c.payload) + size - 1) / size
	return uint32(n)
}
