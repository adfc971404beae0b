package coap

import (
	"context"
	"testing"
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/coapuri"
	"github.com/lobaro/async-coap-go/sckt"
)

type loopFixture struct {
	client, server *LocalEndpoint
	serverAddr     sckt.Address
	stop           func()
}

func newLoopFixture(t *testing.T, handler RequestHandler) *loopFixture {
	t.Helper()
	a, b := sckt.NewLoopSocketPair("client", "server")
	client := NewLocalEndpoint(a, WithTokenGenerator(NewCountingTokenGenerator()))
	server := NewLocalEndpoint(b, WithRequestHandler(handler))

	ctx, cancel := context.WithCancel(context.Background())
	go client.Serve(ctx)
	go server.Serve(ctx)

	return &loopFixture{
		client:     client,
		server:     server,
		serverAddr: b.LocalAddr(),
		stop: func() {
			cancel()
			client.Close()
			server.Close()
		},
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	handler := RequestHandlerFunc(func(ctx *RespondableInboundContext) {
		if ctx.Msg.PathString() != "test" {
			ctx.Reply(coapmsg.Message{Code: coapmsg.NotFound})
			return
		}
		reply := coapmsg.NewMessage()
		reply.Code = coapmsg.Content
		reply.Payload = []byte("hello")
		ctx.Reply(reply)
	})
	fx := newLoopFixture(t, handler)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ref, _ := coapuri.Parse("/test")
	desc := EmitSuccessfulResponse(UriHostPath(Get(), ref))

	msg, err := Send(ctx, fx.client, fx.serverAddr, desc)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(msg.Payload) != "hello" {
		t.Fatalf("unexpected payload: %q", msg.Payload)
	}
}

func TestNotFoundBecomesError(t *testing.T) {
	handler := RequestHandlerFunc(func(ctx *RespondableInboundContext) {
		ctx.Reply(coapmsg.Message{Code: coapmsg.NotFound})
	})
	fx := newLoopFixture(t, handler)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ref, _ := coapuri.Parse("/missing")
	desc := EmitSuccessfulResponse(UriHostPath(Get(), ref))
	_, err := Send(ctx, fx.client, fx.serverAddr, desc)
	if err == nil {
		t.Fatalf("expected error for 4.04 response")
	}
	if KindOf(err) != ResourceNotFound {
		t.Fatalf("expected ResourceNotFound, got %v", KindOf(err))
	}
}

func TestPingGetsReset(t *testing.T) {
	fx := newLoopFixture(t, nil)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := Send(ctx, fx.client, fx.serverAddr, Ping()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPutWithPayload(t *testing.T) {
	var gotPayload []byte
	handler := RequestHandlerFunc(func(ctx *RespondableInboundContext) {
		gotPayload = append([]byte(nil), ctx.Msg.Payload...)
		ctx.Reply(coapmsg.Message{Code: coapmsg.Changed})
	})
	fx := newLoopFixture(t, handler)
	defer fx.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ref, _ := coapuri.Parse("/thing")
	desc := EmitSuccessfulResponse(UriHostPath(PayloadWriter(Put(), []byte("payload-data"), coapmsg.TextPlain), ref))
	if _, err := Send(ctx, fx.client, fx.serverAddr, desc); err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(gotPayload) != "payload-data" {
		t.Fatalf("unexpected payload received by server: %q", gotPayload)
	}
}
