package coap

import (
	"time"

	"github.com/lobaro/async-coap-go/coapmsg"
	"github.com/lobaro/async-coap-go/coapuri"
	"github.com/lobaro/async-coap-go/sckt"
)

// addOptionDesc decorates inner with one extra option carrying one or more
// values. Multiple AddOption calls on the same descriptor compose: each
// wraps the previous, and WriteOptions is called innermost-first so every
// layer's option ends up on the message regardless of call order.
type addOptionDesc[R any] struct {
	inner  SendDesc[R]
	key    coapmsg.OptionNumber
	values []interface{}
}

// AddOption returns a descriptor that writes one or more instances of
// option key in addition to inner's options.
func AddOption[R any](inner SendDesc[R], key coapmsg.OptionNumber, values ...interface{}) SendDesc[R] {
	return addOptionDesc[R]{inner: inner, key: key, values: values}
}

func (d addOptionDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.inner.WriteOptions(msg, remote)
	for _, v := range d.values {
		if err := msg.Options().Add(d.key, v); err != nil {
			Log.WithError(err).WithField("option", d.key).Warn("coap: dropping option value")
		}
	}
}

func (d addOptionDesc[R]) WritePayload(msg *coapmsg.Message, remote sckt.Address) {
	d.inner.WritePayload(msg, remote)
}

func (d addOptionDesc[R]) Handle(res InboundResult) (ResponseStatus[R], error) {
	return d.inner.Handle(res)
}

func (d addOptionDesc[R]) DelayToRetransmit(n int) (time.Duration, bool) { return d.inner.DelayToRetransmit(n) }
func (d addOptionDesc[R]) DelayToRestart() time.Duration                 { return d.inner.DelayToRestart() }
func (d addOptionDesc[R]) MaxRTT() time.Duration                         { return d.inner.MaxRTT() }
func (d addOptionDesc[R]) TransmitWaitDuration() time.Duration           { return d.inner.TransmitWaitDuration() }

// payloadWriterDesc decorates inner with a fixed payload and content format.
type payloadWriterDesc[R any] struct {
	SendDesc[R]
	payload       []byte
	contentFormat coapmsg.ContentFormat
	hasFormat     bool
}

// PayloadWriter returns a descriptor that writes payload (and, if
// hasFormat, a Content-Format option) in addition to inner's.
func PayloadWriter[R any](inner SendDesc[R], payload []byte, contentFormat coapmsg.ContentFormat) SendDesc[R] {
	return payloadWriterDesc[R]{SendDesc: inner, payload: payload, contentFormat: contentFormat, hasFormat: true}
}

func (d payloadWriterDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	if d.hasFormat {
		_ = msg.Options().Set(coapmsg.ContentFormatOption, uint64(d.contentFormat))
	}
}

func (d payloadWriterDesc[R]) WritePayload(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WritePayload(msg, remote)
	msg.Payload = d.payload
}

// inspectDesc calls an observer function on every inbound event without
// altering the underlying ResponseStatus/error.
type inspectDesc[R any] struct {
	SendDesc[R]
	observe func(InboundResult)
}

// Inspect returns a descriptor that calls observe(res) for every inbound
// event handled by inner, purely for logging/metrics side effects.
func Inspect[R any](inner SendDesc[R], observe func(InboundResult)) SendDesc[R] {
	return inspectDesc[R]{SendDesc: inner, observe: observe}
}

func (d inspectDesc[R]) Handle(res InboundResult) (ResponseStatus[R], error) {
	d.observe(res)
	return d.SendDesc.Handle(res)
}

// useHandlerDesc lets a caller post-process inner's ResponseStatus.
type useHandlerDesc[R any] struct {
	SendDesc[R]
	f func(InboundResult, ResponseStatus[R], error) (ResponseStatus[R], error)
}

// UseHandler returns a descriptor whose Handle result is passed through f
// before being returned to the engine, letting a caller override specific
// outcomes (e.g. treat a particular response code as Continue instead of
// Done) without reimplementing the base descriptor.
func UseHandler[R any](inner SendDesc[R], f func(InboundResult, ResponseStatus[R], error) (ResponseStatus[R], error)) SendDesc[R] {
	return useHandlerDesc[R]{SendDesc: inner, f: f}
}

func (d useHandlerDesc[R]) Handle(res InboundResult) (ResponseStatus[R], error) {
	status, err := d.SendDesc.Handle(res)
	return d.f(res, status, err)
}

// WithAddr pairs a result value with the remote address it arrived from.
type WithAddr[R any] struct {
	Value R
	Addr  sckt.Address
}

type includeSocketAddrDesc[R any] struct {
	inner     SendDesc[R]
	lastAddr  sckt.Address
}

// IncludeSocketAddr returns a descriptor whose Done value also carries the
// remote address the terminal message arrived from.
func IncludeSocketAddr[R any](inner SendDesc[R]) SendDesc[WithAddr[R]] {
	return &includeSocketAddrDesc[R]{inner: inner}
}

func (d *includeSocketAddrDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.inner.WriteOptions(msg, remote)
}
func (d *includeSocketAddrDesc[R]) WritePayload(msg *coapmsg.Message, remote sckt.Address) {
	d.inner.WritePayload(msg, remote)
}
func (d *includeSocketAddrDesc[R]) Handle(res InboundResult) (ResponseStatus[WithAddr[R]], error) {
	if res.Err == nil {
		d.lastAddr = res.Ctx.Remote
	}
	status, err := d.inner.Handle(res)
	if err != nil {
		return ResponseStatus[WithAddr[R]]{}, err
	}
	switch {
	case status.IsDone():
		return Done(WithAddr[R]{Value: status.Value(), Addr: d.lastAddr}), nil
	case status.IsSendNext():
		return SendNext[WithAddr[R]](), nil
	default:
		return Continue[WithAddr[R]](), nil
	}
}
func (d *includeSocketAddrDesc[R]) DelayToRetransmit(n int) (time.Duration, bool) {
	return d.inner.DelayToRetransmit(n)
}
func (d *includeSocketAddrDesc[R]) DelayToRestart() time.Duration       { return d.inner.DelayToRestart() }
func (d *includeSocketAddrDesc[R]) MaxRTT() time.Duration               { return d.inner.MaxRTT() }
func (d *includeSocketAddrDesc[R]) TransmitWaitDuration() time.Duration { return d.inner.TransmitWaitDuration() }

// nonConfirmableDesc overrides the message type to NON after inner has had
// a chance to write its own options (which may include setting Type, in
// the case of a leaf descriptor).
type nonConfirmableDesc[R any] struct {
	SendDesc[R]
}

// NonConfirmable forces the outbound message type to NON, disabling
// CON-style retransmission regardless of what inner requests.
func NonConfirmable[R any](inner SendDesc[R]) SendDesc[R] {
	return nonConfirmableDesc[R]{SendDesc: inner}
}

func (d nonConfirmableDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	msg.Type = coapmsg.NonConfirmable
}

func (d nonConfirmableDesc[R]) DelayToRetransmit(n int) (time.Duration, bool) { return 0, false }

// multicastDesc marks a descriptor as targeting a multicast group: it
// forces NON (RFC 7252 8.1 forbids CON to a multicast address), and treats
// every successful delivery as Continue rather than Done, since a
// multicast request expects zero or more independent unicast replies
// rather than exactly one.
type multicastDesc[R any] struct {
	SendDesc[R]
}

func Multicast[R any](inner SendDesc[R]) SendDesc[R] {
	return multicastDesc[R]{SendDesc: inner}
}

func (d multicastDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	msg.Type = coapmsg.NonConfirmable
}

func (d multicastDesc[R]) DelayToRetransmit(n int) (time.Duration, bool) { return 0, false }

func (d multicastDesc[R]) TransmitWaitDuration() time.Duration {
	if w := d.SendDesc.TransmitWaitDuration(); w > 0 {
		return w
	}
	return DefaultTransmissionParams.DefaultLeisure
}

func (d multicastDesc[R]) Handle(res InboundResult) (ResponseStatus[R], error) {
	status, err := d.SendDesc.Handle(res)
	if err != nil {
		return ResponseStatus[R]{}, err
	}
	if status.IsDone() {
		return ResponseStatus[R]{kind: statusContinue, value: status.Value()}, nil
	}
	return status, nil
}

// emitAnyResponseDesc converts a struct{}-handler's completion signal into
// the terminal response message itself.
type emitAnyResponseDesc struct {
	SendDesc[struct{}]
	last *coapmsg.Message
}

// EmitAnyResponse turns a request descriptor into one whose Done value is
// the full response message, regardless of its code.
func EmitAnyResponse(inner SendDesc[struct{}]) SendDesc[coapmsg.Message] {
	return &emitAnyResponseDesc{SendDesc: inner}
}

func (d *emitAnyResponseDesc) Handle(res InboundResult) (ResponseStatus[coapmsg.Message], error) {
	status, err := d.SendDesc.Handle(res)
	if err != nil {
		return ResponseStatus[coapmsg.Message]{}, err
	}
	if res.Err == nil {
		d.last = &res.Ctx.Msg
	}
	switch {
	case status.IsDone():
		if d.last == nil {
			return ResponseStatus[coapmsg.Message]{}, newErr(BadResponse, "descriptor finished with no response message")
		}
		return Done(*d.last), nil
	case status.IsSendNext():
		return SendNext[coapmsg.Message](), nil
	default:
		return Continue[coapmsg.Message](), nil
	}
}

// EmitSuccessfulResponse is EmitAnyResponse plus reclassification of
// non-2.xx response codes as errors, so a caller doing request/response
// only has to handle the success payload.
func EmitSuccessfulResponse(inner SendDesc[struct{}]) SendDesc[coapmsg.Message] {
	return &emitSuccessfulResponseDesc{emitAnyResponseDesc{SendDesc: inner}}
}

type emitSuccessfulResponseDesc struct {
	emitAnyResponseDesc
}

func (d *emitSuccessfulResponseDesc) Handle(res InboundResult) (ResponseStatus[coapmsg.Message], error) {
	status, err := d.emitAnyResponseDesc.Handle(res)
	if err != nil {
		return status, err
	}
	if status.IsDone() && !status.Value().Code.IsSuccess() {
		return ResponseStatus[coapmsg.Message]{}, responseCodeToError(status.Value().Code)
	}
	return status, nil
}

// EmitMsgCode collapses a response down to just its status code.
func EmitMsgCode(inner SendDesc[struct{}]) SendDesc[coapmsg.COAPCode] {
	return &emitMsgCodeDesc{emitAnyResponseDesc{SendDesc: inner}}
}

type emitMsgCodeDesc struct {
	emitAnyResponseDesc
}

func (d *emitMsgCodeDesc) Handle(res InboundResult) (ResponseStatus[coapmsg.COAPCode], error) {
	status, err := d.emitAnyResponseDesc.Handle(res)
	if err != nil {
		return ResponseStatus[coapmsg.COAPCode]{}, err
	}
	switch {
	case status.IsDone():
		return Done(status.Value().Code), nil
	case status.IsSendNext():
		return SendNext[coapmsg.COAPCode](), nil
	default:
		return Continue[coapmsg.COAPCode](), nil
	}
}

// observeNotificationsDesc turns a GET-with-Observe=0 descriptor's
// responses into a long-lived notification stream: every successfully
// decoded response is surfaced as Continue(msg) instead of Done, and the
// engine restarts the registration after DelayToRestart of silence (RFC
// 7641 3.2's "max-age"-independent liveness assumption, resolved in
// DESIGN.md as a fixed timer rather than a per-notification one).
type observeNotificationsDesc struct {
	SendDesc[struct{}]
	restart time.Duration
}

// ObserveNotifications decorates a base Observe() descriptor so that each
// inbound notification is delivered as a stream value rather than ending
// the exchange, and re-registration is attempted after restart of silence.
func ObserveNotifications(inner SendDesc[struct{}], restart time.Duration) SendDesc[coapmsg.Message] {
	return &observeNotificationsDesc{SendDesc: inner, restart: restart}
}

func (d *observeNotificationsDesc) Handle(res InboundResult) (ResponseStatus[coapmsg.Message], error) {
	status, err := d.SendDesc.Handle(res)
	if err != nil {
		return ResponseStatus[coapmsg.Message]{}, err
	}
	if res.Err == nil && (status.IsDone() || status.IsContinue()) {
		return Continue[coapmsg.Message]().withValueForNotify(res.Ctx.Msg), nil
	}
	if status.IsSendNext() {
		return SendNext[coapmsg.Message](), nil
	}
	return Continue[coapmsg.Message](), nil
}

func (d *observeNotificationsDesc) DelayToRestart() time.Duration {
	if d.restart > 0 {
		return d.restart
	}
	return DefaultObserveRestart
}

// withValueForNotify builds a Continue status that still carries a value,
// which plain Continue[R]() does not do; exchange.deliver forwards the
// value of every status, so SendObserve streams it as a notification.
func (s ResponseStatus[R]) withValueForNotify(v R) ResponseStatus[R] {
	s.value = v
	return s
}

// ContinueValue returns the value attached to a Continue status, used by
// streaming consumers (e.g. observe notifications) that need data without
// the exchange being Done.
func (s ResponseStatus[R]) ContinueValue() R {
	return s.value
}

// noResponseDesc writes the No-Response option (RFC 7967) and, on the
// client side, honors its own bitmask: a response whose class the bitmask
// suppresses is treated as Continue rather than Done, since the peer was
// never supposed to have sent it in the first place. When the bitmask
// suppresses every class, suppressesAllResponses lets transmitWithRetransmit
// (engine.go) treat the bare ACK itself as sufficient to finish the exchange.
type noResponseDesc struct {
	SendDesc[struct{}]
	mask uint8
}

// NoResponse decorates a request descriptor with the No-Response option,
// suppressing delivery of response classes set in mask (NoResponseSuppress2xx
// / 4xx / 5xx, OR'd together) both on the wire and within this client.
func NoResponse(inner SendDesc[struct{}], mask uint8) SendDesc[struct{}] {
	return noResponseDesc{SendDesc: inner, mask: mask}
}

func (d noResponseDesc) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	_ = msg.Options().Set(coapmsg.NoResponse, uint64(d.mask))
}

func (d noResponseDesc) suppressesAllResponses() bool {
	const all = NoResponseSuppress2xx | NoResponseSuppress4xx | NoResponseSuppress5xx
	return d.mask&all == all
}

func (d noResponseDesc) Handle(res InboundResult) (ResponseStatus[struct{}], error) {
	if res.Err == nil && NoResponseSuppressesClass(d.mask, res.Ctx.Msg.Code.Class()) {
		return Continue[struct{}](), nil
	}
	return d.SendDesc.Handle(res)
}

// uriHostPathDesc splits a (possibly relative) URI reference onto
// Uri-Host/Uri-Port/Uri-Path/Uri-Query options.
type uriHostPathDesc[R any] struct {
	SendDesc[R]
	ref coapuri.Reference
}

// UriHostPath decorates inner with the Uri-Host/Uri-Port/Uri-Path/Uri-Query
// options derived from ref (already resolved against the remote endpoint's
// base URI by the caller, typically RemoteEndpoint.CloneUsingRelRef).
func UriHostPath[R any](inner SendDesc[R], ref coapuri.Reference) SendDesc[R] {
	return uriHostPathDesc[R]{SendDesc: inner, ref: ref}
}

func (d uriHostPathDesc[R]) WriteOptions(msg *coapmsg.Message, remote sckt.Address) {
	d.SendDesc.WriteOptions(msg, remote)
	opts := msg.Options()
	if d.ref.Host != "" {
		_ = opts.Set(coapmsg.URIHost, d.ref.Host)
	}
	if d.ref.Port != "" {
		_ = opts.Set(coapmsg.URIPort, uint64(d.ref.PortOrDefault(0)))
	}
	for _, seg := range d.ref.PathSegments() {
		_ = opts.Add(coapmsg.URIPath, seg)
	}
	for _, item := range d.ref.QueryItems() {
		_ = opts.Add(coapmsg.URIQuery, item)
	}
}
