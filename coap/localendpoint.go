package coap

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/sckt"
)

// LocalEndpoint owns one socket and the bookkeeping (message IDs, tokens,
// the response tracker) needed to run any number of concurrent exchanges
// over it, plus an optional request handler for acting as a CoAP server.
type LocalEndpoint struct {
	sock     sckt.Socket
	lookup   sckt.HostLookup
	tracker  *ResponseTracker
	tokenGen TokenGenerator
	params   TransmissionParams
	handler  RequestHandler
	metrics  *Metrics

	idSeq atomic.Uint32

	mu      sync.Mutex
	closed  bool
	cancel  context.CancelFunc
	serveWG sync.WaitGroup
}

// LocalEndpointOption configures a LocalEndpoint at construction time.
type LocalEndpointOption func(*LocalEndpoint)

func WithTokenGenerator(g TokenGenerator) LocalEndpointOption {
	return func(ep *LocalEndpoint) { ep.tokenGen = g }
}

func WithTransmissionParams(p TransmissionParams) LocalEndpointOption {
	return func(ep *LocalEndpoint) { ep.params = p }
}

func WithHostLookup(l sckt.HostLookup) LocalEndpointOption {
	return func(ep *LocalEndpoint) { ep.lookup = l }
}

func WithRequestHandler(h RequestHandler) LocalEndpointOption {
	return func(ep *LocalEndpoint) { ep.handler = h }
}

// WithMetrics attaches a Prometheus Metrics set; without it, the endpoint
// simply does not record metrics.
func WithMetrics(m *Metrics) LocalEndpointOption {
	return func(ep *LocalEndpoint) { ep.metrics = m }
}

// NewLocalEndpoint wraps sock with the bookkeeping a send/receive loop
// needs. The returned endpoint does not start receiving until Serve is
// called; Send/SendObserve/SendMulticast all require a concurrently
// running Serve goroutine to deliver their responses.
func NewLocalEndpoint(sock sckt.Socket, opts ...LocalEndpointOption) *LocalEndpoint {
	ep := &LocalEndpoint{
		sock:     sock,
		tracker:  NewResponseTracker(),
		tokenGen: NewRandomTokenGenerator(),
		params:   DefaultTransmissionParams,
	}
	for _, o := range opts {
		o(ep)
	}
	return ep
}

// LocalAddr returns the address the underlying socket is bound to.
func (ep *LocalEndpoint) LocalAddr() sckt.Address {
	return ep.sock.LocalAddr()
}

// Serve runs the receive loop until ctx is done or the endpoint is closed.
// It is safe to call only once per endpoint; call it from its own
// goroutine, since it blocks until the loop exits.
func (ep *LocalEndpoint) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	ep.mu.Lock()
	ep.cancel = cancel
	ep.mu.Unlock()
	defer cancel()

	buf := make([]byte, 1500)
	for {
		n, remote, localHint, err := ep.sock.RecvFrom(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			Log.WithError(err).Warn("coap: recv error, continuing")
			continue
		}
		ep.handleDatagram(ctx, buf[:n], remote, localHint)
	}
}

// Close stops any running Serve loop and closes the underlying socket.
func (ep *LocalEndpoint) Close() error {
	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	if ep.cancel != nil {
		ep.cancel()
	}
	ep.mu.Unlock()
	return ep.sock.Close()
}

func (ep *LocalEndpoint) handleDatagram(ctx context.Context, data []byte, remote, localHint sckt.Address) {
	pm, err := coapmsg.ParseView(data)
	if err != nil {
		Log.WithError(err).WithField("remote", remote).Warn("coap: dropping unparsable datagram")
		return
	}
	if ep.metrics != nil {
		ep.metrics.Received.Inc()
	}
	msg := pm.ToMessage()
	ictx := InboundContext{Msg: msg, Remote: remote, LocalHint: localHint, IsMulticast: remote.IsMulticast()}

	switch msg.Type {
	case coapmsg.Reset:
		if ep.metrics != nil {
			ep.metrics.Resets.Inc()
		}
		ep.tracker.DispatchByID(remote, msg.MessageID, InboundResult{Err: newErr(Reset, "peer sent RST")})
		return
	case coapmsg.Acknowledgement:
		if msg.Code == coapmsg.Empty {
			// A bare ACK only confirms delivery; the real response (if any)
			// arrives separately and is matched by token.
			ep.tracker.AckByID(remote, msg.MessageID)
			return
		}
		// Piggybacked response: the id registration only exists to stop a
		// pending retransmit timer, so drop it directly rather than
		// dispatching through it too — the token match below is what
		// actually resolves the exchange, and delivering through both
		// registrations would hand the same message to the same sink twice.
		ep.tracker.UnregisterID(remote, msg.MessageID)
		ep.dispatchResponse(remote, msg, ictx)
		return
	}

	if msg.Code.Class() == 0 && msg.Code != coapmsg.Empty {
		ep.handleRequest(ctx, ictx)
		return
	}

	// An empty CON is a CoAP ping (RFC 7252 4.3): answer it with a Reset.
	if msg.Code == coapmsg.Empty {
		if msg.IsConfirmable() {
			rst := coapmsg.NewRst(msg.MessageID)
			if raw, err := rst.MarshalBinary(); err == nil {
				_ = ep.sock.SendTo(ctx, raw, remote)
			}
		}
		return
	}

	// Separate (non-piggybacked) response, or a notification delivered as
	// its own CON/NON message.
	ep.dispatchResponse(remote, msg, ictx)
	if msg.IsConfirmable() {
		ack := coapmsg.NewAck(msg.MessageID)
		if raw, err := ack.MarshalBinary(); err == nil {
			_ = ep.sock.SendTo(ctx, raw, remote)
		}
	}
}

// dispatchResponse routes an inbound response to the exchange registered
// for msg's token, raising UnhandledCriticalOption (RFC 7252 5.4.1) instead
// of the response itself if the response carries a critical option this
// endpoint does not recognize.
func (ep *LocalEndpoint) dispatchResponse(remote sckt.Address, msg coapmsg.Message, ictx InboundContext) {
	result := InboundResult{Ctx: ictx}
	if opt, ok := firstUnknownCriticalOption(msg); ok {
		result = InboundResult{Err: newErr(UnhandledCriticalOption, fmt.Sprintf("response carries unrecognized critical option %d", opt))}
	}
	if !ep.tracker.DispatchByToken(remote, msg.Token, result) {
		Log.WithField("token", msg.Token).Debug("coap: response matched no pending exchange")
	}
}

// firstUnknownCriticalOption returns the first option number in msg that is
// marked critical (RFC 7252 5.4.1) but absent from the option catalog, i.e.
// this endpoint has no idea what it means.
func firstUnknownCriticalOption(msg coapmsg.Message) (coapmsg.OptionNumber, bool) {
	for _, id := range msg.Options().SortedNumbers() {
		if _, known := coapmsg.LookupOptionDef(id); !known && id.Critical() {
			return id, true
		}
	}
	return 0, false
}

func (ep *LocalEndpoint) handleRequest(ctx context.Context, ictx InboundContext) {
	if ep.handler == nil {
		if ictx.Msg.IsConfirmable() {
			rst := coapmsg.NewRst(ictx.Msg.MessageID)
			if raw, err := rst.MarshalBinary(); err == nil {
				_ = ep.sock.SendTo(ctx, raw, ictx.Remote)
			}
		}
		return
	}

	if opt, bad := firstUnknownCriticalOption(ictx.Msg); bad {
		ep.sendBadOption(ctx, ictx, opt)
		return
	}

	rictx := &RespondableInboundContext{InboundContext: ictx}
	ep.handler.HandleRequest(rictx)

	reply, ok := rictx.Replied()
	if !ok {
		if ictx.Msg.IsConfirmable() {
			reply = coapmsg.NewAck(ictx.Msg.MessageID)
			reply.Code = coapmsg.InternalServerError
		} else {
			return
		}
	}
	reply.Token = ictx.Msg.Token
	if ictx.Msg.IsConfirmable() {
		reply.Type = coapmsg.Acknowledgement
		reply.MessageID = ictx.Msg.MessageID
	} else {
		reply.Type = coapmsg.NonConfirmable
		reply.MessageID = ep.nextMessageID()
	}
	raw, err := reply.MarshalBinary()
	if err != nil {
		Log.WithError(err).Warn("coap: failed to encode reply")
		return
	}
	if err := ep.sock.SendTo(ctx, raw, ictx.Remote); err != nil {
		Log.WithError(err).Warn("coap: failed to send reply")
	}
}

// sendBadOption replies 4.02 Bad Option (RFC 7252 5.4.1), the mandatory
// response to a request carrying a critical option this endpoint does not
// recognize.
func (ep *LocalEndpoint) sendBadOption(ctx context.Context, ictx InboundContext, opt coapmsg.OptionNumber) {
	reply := coapmsg.NewMessage()
	reply.Code = coapmsg.BadOption
	reply.Token = ictx.Msg.Token
	reply.Payload = []byte(fmt.Sprintf("unrecognized critical option %d", opt))
	if ictx.Msg.IsConfirmable() {
		reply.Type = coapmsg.Acknowledgement
		reply.MessageID = ictx.Msg.MessageID
	} else {
		reply.Type = coapmsg.NonConfirmable
		reply.MessageID = ep.nextMessageID()
	}
	raw, err := reply.MarshalBinary()
	if err != nil {
		Log.WithError(err).Warn("coap: failed to encode bad-option reply")
		return
	}
	if err := ep.sock.SendTo(ctx, raw, ictx.Remote); err != nil {
		Log.WithError(err).Warn("coap: failed to send bad-option reply")
	}
}
