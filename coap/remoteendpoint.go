package coap

import (
	"context"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/coapuri"
	"github.com/lobaro/async-coap-go/sckt"
)

// RemoteEndpoint is a convenience handle binding a LocalEndpoint to one
// peer address and base URI, so callers composing requests don't have to
// thread both through every call. It holds no state of its own beyond
// that binding — unlike the exchanges it starts, a RemoteEndpoint can
// safely be shared and outlive any individual Send call.
type RemoteEndpoint struct {
	local *LocalEndpoint
	addr  sckt.Address
	base  coapuri.Reference
}

// NewRemoteEndpoint binds local to a resolved socket address and the base
// URI reference requests against it should be resolved relative to.
func NewRemoteEndpoint(local *LocalEndpoint, addr sckt.Address, base coapuri.Reference) *RemoteEndpoint {
	return &RemoteEndpoint{local: local, addr: addr, base: base}
}

// RemoteEndpointFromURI resolves uri's host through lookup, and returns a
// RemoteEndpoint bound to the first resulting address. The address's port
// is whatever lookup produces; the port in uri (explicit or implied by its
// scheme) is not applied to it.
func RemoteEndpointFromURI(ctx context.Context, local *LocalEndpoint, lookup sckt.HostLookup, uri string) (*RemoteEndpoint, error) {
	ref, err := coapuri.Parse(uri)
	if err != nil {
		return nil, wrapErr(InvalidArgument, err, "parsing remote endpoint URI")
	}
	if !ref.IsAbsolute() {
		return nil, newErr(InvalidArgument, "remote endpoint URI must be absolute")
	}
	if _, ok := coapuri.DefaultPort(ref.Scheme); !ok {
		return nil, newErr(UnsupportedUriScheme, ref.Scheme)
	}

	addrs, err := lookup.LookupHost(ctx, ref.Host)
	if err != nil {
		return nil, wrapErr(HostLookupFailure, err, ref.Host)
	}
	if len(addrs) == 0 {
		return nil, newErr(HostNotFound, ref.Host)
	}

	return NewRemoteEndpoint(local, addrs[0], ref), nil
}

// URI returns the base URI reference this endpoint resolves relative
// requests against.
func (r *RemoteEndpoint) URI() coapuri.Reference {
	return r.base
}

// Addr returns the bound socket address.
func (r *RemoteEndpoint) Addr() sckt.Address {
	return r.addr
}

// CloneUsingRelRef resolves relRef (a path/query, typically) against this
// endpoint's base URI and returns the resulting absolute reference, ready
// to be handed to UriHostPath when composing a request.
func (r *RemoteEndpoint) CloneUsingRelRef(relRef string) (coapuri.Reference, error) {
	rel, err := coapuri.Parse(relRef)
	if err != nil {
		return coapuri.Reference{}, wrapErr(InvalidArgument, err, "parsing relative reference")
	}
	return coapuri.Resolve(r.base, rel)
}

// SendRelative resolves relRef against this endpoint's base URI, decorates
// desc with the resulting Uri-Host/Uri-Path/Uri-Query options, and drives
// it to completion via the bound LocalEndpoint.
func SendRelative[R any](ctx context.Context, r *RemoteEndpoint, relRef string, desc SendDesc[R]) (R, error) {
	var zero R
	ref, err := r.CloneUsingRelRef(relRef)
	if err != nil {
		return zero, err
	}
	full := UriHostPath(desc, ref)
	return Send(ctx, r.local, r.addr, full)
}

// RequestMessage is a minimal convenience builder for the common case of a
// GET/PUT/POST/DELETE to a path with an optional payload, skipping manual
// descriptor composition for callers that don't need it.
func RequestMessage(method coapmsg.COAPCode, path string, payload []byte, contentFormat coapmsg.ContentFormat) SendDesc[coapmsg.Message] {
	var base SendDesc[struct{}]
	switch method {
	case coapmsg.GET:
		base = Get()
	case coapmsg.PUT:
		base = Put()
	case coapmsg.POST:
		base = Post()
	case coapmsg.DELETE:
		base = Delete()
	default:
		base = newReqDesc(method)
	}
	if len(payload) > 0 {
		base = PayloadWriter(base, payload, contentFormat)
	}
	if path != "" {
		ref, err := coapuri.Parse(path)
		if err == nil {
			base = UriHostPath(base, ref)
		}
	}
	return EmitSuccessfulResponse(base)
}
