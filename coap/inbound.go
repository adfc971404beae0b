package coap

import (
	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/sckt"
)

// InboundContext wraps one inbound message together with the transport
// address it arrived from. It is handed to a SendDesc's Handle method for
// every matched response, and (wrapped in a RespondableInboundContext) to
// a server-side RequestHandler for every request.
type InboundContext struct {
	Msg         coapmsg.Message
	Remote      sckt.Address
	LocalHint   sckt.Address
	IsMulticast bool
}

// InboundResult is what a pending exchange delivers to its SendDesc.Handle:
// either a successfully decoded InboundContext, or an error (Reset,
// UnhandledCriticalOption). Exactly one of the two is meaningful at a time.
type InboundResult struct {
	Ctx InboundContext
	Err error
}

// RespondableInboundContext additionally carries a reply slot, for the
// server-side request handler set on a LocalEndpoint via WithRequestHandler
// and invoked from Serve.
// Calling Reply more than once keeps only the first reply.
type RespondableInboundContext struct {
	InboundContext
	reply   *coapmsg.Message
	replied bool
}

// Reply records the message the local endpoint should send back for this
// request. It is a no-op after the first call.
func (c *RespondableInboundContext) Reply(msg coapmsg.Message) {
	if c.replied {
		return
	}
	c.reply = &msg
	c.replied = true
}

// Replied reports whether Reply has been called, and returns the recorded
// message.
func (c *RespondableInboundContext) Replied() (coapmsg.Message, bool) {
	if !c.replied {
		return coapmsg.Message{}, false
	}
	return *c.reply, true
}

// RequestHandler answers one inbound request. It is the server-side analog
// of a SendDesc: given the request, produce (or decline to produce) a reply.
type RequestHandler interface {
	HandleRequest(ctx *RespondableInboundContext)
}

// RequestHandlerFunc adapts a plain function to RequestHandler.
type RequestHandlerFunc func(ctx *RespondableInboundContext)

func (f RequestHandlerFunc) HandleRequest(ctx *RespondableInboundContext) {
	f(ctx)
}
