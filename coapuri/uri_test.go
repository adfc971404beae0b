package coapuri

import (
	"reflect"
	"testing"
)

func TestParseAbsolute(t *testing.T) {
	r, err := Parse("coap://example.test:5684/a/b?x=1&y=2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.Scheme != "coap" || r.Host != "example.test" || r.Port != "5684" {
		t.Fatalf("unexpected parse: %+v", r)
	}
	if got := r.PathSegments(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("path segments: %v", got)
	}
	if got := r.QueryItems(); !reflect.DeepEqual(got, []string{"x=1", "y=2"}) {
		t.Fatalf("query items: %v", got)
	}
}

func TestParseRelative(t *testing.T) {
	r, err := Parse("../b/c?q=1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r.IsAbsolute() {
		t.Fatalf("expected relative reference")
	}
}

func TestPercentDecodedSegments(t *testing.T) {
	r, err := Parse("/a%2Fb/c%20d")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := r.PathSegments()
	if len(got) != 2 || got[0] != "a/b" || got[1] != "c d" {
		t.Fatalf("unexpected decode: %v", got)
	}
}

// Testable property 4: resolve-and-resplit equivalence.
func TestResolveAndResplitMatchesDirectParse(t *testing.T) {
	base, err := Parse("coap://example.test:5684/")
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	rel, err := Parse("a/b?x=1&y=2")
	if err != nil {
		t.Fatalf("parse rel: %v", err)
	}
	resolved, err := Resolve(base, rel)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	direct, err := Parse("coap://example.test:5684/a/b?x=1&y=2")
	if err != nil {
		t.Fatalf("parse direct: %v", err)
	}

	if resolved.Host != direct.Host || resolved.Port != direct.Port {
		t.Fatalf("host/port mismatch: %+v vs %+v", resolved, direct)
	}
	if !reflect.DeepEqual(resolved.PathSegments(), direct.PathSegments()) {
		t.Fatalf("path mismatch: %v vs %v", resolved.PathSegments(), direct.PathSegments())
	}
	if !reflect.DeepEqual(resolved.QueryItems(), direct.QueryItems()) {
		t.Fatalf("query mismatch: %v vs %v", resolved.QueryItems(), direct.QueryItems())
	}
}

func TestResolveDotSegments(t *testing.T) {
	base, _ := Parse("coap://h/a/b/c")
	rel, _ := Parse("../d")
	resolved, err := Resolve(base, rel)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Path != "/a/d" {
		t.Fatalf("unexpected resolved path: %s", resolved.Path)
	}
}

func TestResolveCannotBeABase(t *testing.T) {
	base, _ := Parse("urn:example:1234")
	rel, _ := Parse("a/b")
	_, err := Resolve(base, rel)
	if err != ErrCannotBeABase {
		t.Fatalf("expected ErrCannotBeABase, got %v", err)
	}
}

func TestDefaultPort(t *testing.T) {
	p, ok := DefaultPort("coap")
	if !ok || p != 5683 {
		t.Fatalf("unexpected default port: %d, %v", p, ok)
	}
	if _, ok := DefaultPort("ftp"); ok {
		t.Fatalf("expected ftp to be unrecognized")
	}
}
