package coap

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/coapuri"
)

func TestBlock2DownloadReassembly(t *testing.T) {
	full := bytes.Repeat([]byte("x"), 100) // > one 32-byte block
	const szx = 1                          // 32-byte blocks

	handler := RequestHandlerFunc(func(ctx *RespondableInboundContext) {
		num := uint32(0)
		if opt, ok := ctx.Msg.Options()[coapmsg.Block2]; ok {
			info, err := coapmsg.DecodeBlockInfo(opt.AsBytes())
			if err == nil {
				num = info.Num
			}
		}
		blockSize := coapmsg.BlockInfo{Szx: szx}.BlockSize()
		offset := int(num) * blockSize
		end := offset + blockSize
		more := end < len(full)
		if end > len(full) {
			end = len(full)
		}
		reply := coapmsg.NewMessage()
		reply.Code = coapmsg.Content
		reply.Payload = full[offset:end]
		_ = reply.Options().Set(coapmsg.Block2, coapmsg.BlockInfo{Num: num, More: more, Szx: szx}.Encode())
		ctx.Reply(reply)
	})

	fx := newLoopFixture(t, handler)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ref, _ := coapuri.Parse("/file")
	desc := Block2(UriHostPath(Get(), ref), szx)
	msg, err := Send(ctx, fx.client, fx.serverAddr, desc)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !bytes.Equal(msg.Payload, full) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(msg.Payload), len(full))
	}
}

func TestObserveDeliversNotifications(t *testing.T) {
	notifyCh := make(chan struct{}, 4)
	handler := RequestHandlerFunc(func(ctx *RespondableInboundContext) {
		reply := coapmsg.NewMessage()
		reply.Code = coapmsg.Content
		reply.Payload = []byte("state-0")
		_ = reply.Options().Set(coapmsg.Observe, uint64(0))
		ctx.Reply(reply)
		notifyCh <- struct{}{}
	})
	fx := newLoopFixture(t, handler)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	desc := ObserveNotifications(Observe(), 30*time.Second)
	events, stop, err := SendObserve(ctx, fx.client, fx.serverAddr, desc)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	defer stop()

	select {
	case ev := <-events:
		if ev.Err != nil {
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
		if string(ev.Msg.Payload) != "state-0" {
			t.Fatalf("unexpected notification payload: %q", ev.Msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first notification")
	}
}
