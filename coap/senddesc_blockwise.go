package coap

import (
	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/coap/internal/blockwise"
	"github.com/lobaro/async-coap-go/sckt"
)

// block2Desc drives RFC 7959 download block-wise transfer: each response
// carrying a Block2 option with More=true triggers a SendNext, and the
// wrapped handler re-renders the request with the next block number until
// the server reports More=false, at which point the reassembled payload
// is surfaced as a single Done response.
type block2Desc struct {
	SendDesc[struct{}]
	szx     uint8
	num     uint32
	re      blockwise.Reassembler
	first   coapmsg.Message
	have    bool
	etag    coapmsg.ETag
	haveTag bool
}

// Block2 decorates a GET descriptor with block-wise download support,
// starting at the given preferred block size exponent (RFC 7959 2.2;
// the server may reply with a smaller one, which this wrapper follows).
func Block2(inner SendDesc[struct{}], szx uint8) SendDesc[coapmsg.Message] {
	return &block2Desc{SendDesc: inner, szx: szx}
}

func (d *block2Desc) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	info := coapmsg.BlockInfo{Num: d.num, Szx: d.szx}
	_ = msg.Options().Set(coapmsg.Block2, info.Encode())
}

func (d *block2Desc) Handle(res InboundResult) (ResponseStatus[coapmsg.Message], error) {
	status, err := d.SendDesc.Handle(res)
	if err != nil {
		return ResponseStatus[coapmsg.Message]{}, err
	}
	if res.Err != nil || !(status.IsDone() || status.IsContinue()) {
		return Continue[coapmsg.Message](), nil
	}

	msg := res.Ctx.Msg
	if !d.have {
		d.first = msg
		d.have = true
	}
	opt, ok := msg.Options()[coapmsg.Block2]
	if !ok {
		// No Block2 in the reply at all: treat the whole payload as block 0.
		return Done(msg), nil
	}
	info, decodeErr := coapmsg.DecodeBlockInfo(opt.AsBytes())
	if decodeErr != nil {
		return ResponseStatus[coapmsg.Message]{}, wrapErr(ParseFailure, decodeErr, "decoding Block2 option")
	}
	// RFC 7959 2.4: a resource's representation must not change mid-transfer.
	// The server signals that with a stable ETag across every block; a
	// changed (or newly-appearing/disappearing) ETag means the blocks no
	// longer belong to the same representation.
	if tag, tagOK := coapmsg.ETagFromOption(msg.Options()); d.num == 0 {
		d.etag, d.haveTag = tag, tagOK
	} else if tagOK != d.haveTag || (tagOK && !tag.Equal(d.etag)) {
		return ResponseStatus[coapmsg.Message]{}, newErr(BadResponse, "Block2 ETag changed mid-transfer")
	}
	d.szx = info.Szx
	done := d.re.Append(info, msg.Payload)
	if done {
		final := d.first
		final.Payload = d.re.Bytes()
		return Done(final), nil
	}
	d.num = info.Num + 1
	return SendNext[coapmsg.Message](), nil
}

// block1Desc drives RFC 7959 upload block-wise transfer: it chunks a
// payload across successive PUT/POST requests, each carrying a Block1
// option, continuing via SendNext until the last chunk's 2.31/2.04 reply
// confirms completion.
type block1Desc struct {
	SendDesc[struct{}]
	chunker *blockwise.Chunker
	num     uint32
}

// Block1 decorates a PUT/POST descriptor, replacing its whole-message
// payload with chunked Block1 uploads of payload at block size szx.
func Block1(inner SendDesc[struct{}], payload []byte, szx uint8) SendDesc[struct{}] {
	return &block1Desc{SendDesc: inner, chunker: blockwise.NewChunker(payload, szx)}
}

func (d *block1Desc) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	info, _, _ := d.chunker.Block(d.num)
	_ = msg.Options().Set(coapmsg.Block1, info.Encode())
}

func (d *block1Desc) WritePayload(msg *coapmsg.Message, remote sckt.Address) {
	_, chunk, _ := d.chunker.Block(d.num)
	msg.Payload = chunk
}

func (d *block1Desc) Handle(res InboundResult) (ResponseStatus[struct{}], error) {
	status, err := d.SendDesc.Handle(res)
	if err != nil {
		return ResponseStatus[struct{}]{}, err
	}
	if res.Err != nil {
		return status, nil
	}
	if !status.IsDone() {
		return status, nil
	}
	d.num++
	if d.num >= d.chunker.NumBlocks() {
		return Done(struct{}{}), nil
	}
	return SendNext[struct{}](), nil
}
