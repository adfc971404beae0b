package sckt

import (
	"context"
	"testing"
	"time"
)

func TestLoopSocketPairRoundTrip(t *testing.T) {
	a, b := NewLoopSocketPair("a", "b")
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := a.SendTo(ctx, []byte("hello"), b.LocalAddr()); err != nil {
		t.Fatalf("send: %v", err)
	}

	buf := make([]byte, 16)
	n, remote, _, err := b.RecvFrom(ctx, buf)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("unexpected payload: %q", buf[:n])
	}
	if remote.String() != a.LocalAddr().String() {
		t.Fatalf("unexpected remote: %v", remote)
	}
}

func TestLoopSocketRecvCanceled(t *testing.T) {
	a, _ := NewLoopSocketPair("a", "b")
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	buf := make([]byte, 16)
	_, _, _, err := a.RecvFrom(ctx, buf)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNullSocketDiscardsAndBlocks(t *testing.T) {
	n := NewNullSocket()
	ctx := context.Background()
	if err := n.SendTo(ctx, []byte("x"), NullAddress{}); err != nil {
		t.Fatalf("send: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, _, _, err := n.RecvFrom(ctx2, make([]byte, 4))
	if err == nil {
		t.Fatalf("expected RecvFrom to block until ctx done")
	}
}
