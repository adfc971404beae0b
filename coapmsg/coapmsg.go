// Package coapmsg implements the CoAP (RFC 7252) wire format: the 4-byte
// header, token, delta-encoded option list and payload, plus the typed
// option catalog used to read and write individual options.
package coapmsg

import (
	"fmt"
	"strings"
)

// COAPType represents the message type.
type COAPType uint8

const (
	// Confirmable messages require acknowledgement.
	Confirmable COAPType = 0
	// NonConfirmable messages do not require acknowledgement.
	NonConfirmable COAPType = 1
	// Acknowledgement is a message indicating a response to a confirmable message.
	Acknowledgement COAPType = 2
	// Reset indicates a permanent negative acknowledgement.
	Reset COAPType = 3
)

var typeNames = [256]string{
	Confirmable:     "Confirmable",
	NonConfirmable:  "NonConfirmable",
	Acknowledgement: "Acknowledgement",
	Reset:           "Reset",
}

func init() {
	for i := range typeNames {
		if typeNames[i] == "" {
			typeNames[i] = fmt.Sprintf("Unknown (0x%x)", i)
		}
	}
}

func (t COAPType) String() string {
	return typeNames[t]
}

// COAPCode is the type used for both request and response codes.
type COAPCode uint8

// Request codes.
const (
	GET    COAPCode = 1 // 0.01
	POST   COAPCode = 2 // 0.02
	PUT    COAPCode = 3 // 0.03
	DELETE COAPCode = 4 // 0.04
)

// Response codes.
const (
	Empty                 COAPCode = 0   // 0.00
	Created               COAPCode = 65  // 2.01
	Deleted               COAPCode = 66  // 2.02
	Valid                 COAPCode = 67  // 2.03
	Changed               COAPCode = 68  // 2.04
	Content               COAPCode = 69  // 2.05
	BadRequest            COAPCode = 128 // 4.00
	Unauthorized          COAPCode = 129 // 4.01
	BadOption             COAPCode = 130 // 4.02
	Forbidden             COAPCode = 131 // 4.03
	NotFound              COAPCode = 132 // 4.04
	MethodNotAllowed      COAPCode = 133 // 4.05
	NotAcceptable         COAPCode = 134 // 4.06
	PreconditionFailed    COAPCode = 140 // 4.12
	RequestEntityTooLarge COAPCode = 141 // 4.13
	UnsupportedMediaType  COAPCode = 143 // 4.15
	InternalServerError   COAPCode = 160 // 5.00
	NotImplemented        COAPCode = 161 // 5.01
	BadGateway            COAPCode = 162 // 5.02
	ServiceUnavailable    COAPCode = 163 // 5.03
	GatewayTimeout        COAPCode = 164 // 5.04
	ProxyingNotSupported  COAPCode = 165 // 5.05
)

var codeNames = map[COAPCode]string{
	GET: "GET", POST: "POST", PUT: "PUT", DELETE: "DELETE",
	Empty: "Empty", Created: "Created", Deleted: "Deleted", Valid: "Valid",
	Changed: "Changed", Content: "Content", BadRequest: "BadRequest",
	Unauthorized: "Unauthorized", BadOption: "BadOption", Forbidden: "Forbidden",
	NotFound: "NotFound", MethodNotAllowed: "MethodNotAllowed",
	NotAcceptable: "NotAcceptable", PreconditionFailed: "PreconditionFailed",
	RequestEntityTooLarge: "RequestEntityTooLarge", UnsupportedMediaType: "UnsupportedMediaType",
	InternalServerError: "InternalServerError", NotImplemented: "NotImplemented",
	BadGateway: "BadGateway", ServiceUnavailable: "ServiceUnavailable",
	GatewayTimeout: "GatewayTimeout", ProxyingNotSupported: "ProxyingNotSupported",
}

func (c COAPCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// Class returns the first 3 bits of the code, e.g. 2 for 2.05.
func (c COAPCode) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the last 5 bits of the code, e.g. 5 for 2.05.
func (c COAPCode) Detail() uint8 {
	return uint8(c) & (0xFF >> 3)
}

func (c COAPCode) IsSuccess() bool {
	return c.Class() == 2
}

func (c COAPCode) IsClientError() bool {
	return c.Class() == 4
}

func (c COAPCode) IsServerError() bool {
	return c.Class() == 5
}

func (c COAPCode) IsError() bool {
	return c.Class() != 0 && c.Class() != 2
}

// BuildCode combines a class [0,7] and a detail [0,31] into a COAPCode.
func BuildCode(class, detail uint8) COAPCode {
	return COAPCode((class << 5) | (detail & 0x1f))
}

// Message is a parsed or to-be-encoded CoAP message. Once returned from
// ParseMessage or handed to MarshalBinary it should be treated as immutable;
// nothing here prevents further mutation, but the engine never mutates a
// Message after transmitting or dispatching it.
type Message struct {
	Type      COAPType
	Code      COAPCode
	MessageID uint16

	Token   []byte
	Payload []byte

	options CoapOptions
}

// NewMessage returns a Message with an initialized, empty option set.
func NewMessage() Message {
	return Message{options: CoapOptions{}}
}

// NewAck builds an empty acknowledgement for the given message ID.
func NewAck(messageID uint16) Message {
	return Message{Type: Acknowledgement, Code: Empty, MessageID: messageID}
}

// NewRst builds a reset message for the given message ID.
func NewRst(messageID uint16) Message {
	return Message{Type: Reset, Code: Empty, MessageID: messageID}
}

func (m *Message) String() string {
	return fmt.Sprintf(`coapmsg.Message{Code:%q, Type:%q, ID:%d, Token:%x, Options:%s, Payload:%q}`,
		m.Code, m.Type, m.MessageID, m.Token, m.Options(), m.Payload)
}

// Options returns the message's option set, allocating one if necessary.
func (m *Message) Options() CoapOptions {
	if m.options == nil {
		m.options = CoapOptions{}
	}
	return m.options
}

// SetOptions replaces the message's option set wholesale.
func (m *Message) SetOptions(o CoapOptions) {
	m.options = o
}

func (m *Message) IsConfirmable() bool {
	return m.Type == Confirmable
}

func (m *Message) IsNonConfirmable() bool {
	return m.Type == NonConfirmable
}

// Path returns the URIPath segments of the message, in order.
func (m *Message) Path() []string {
	opt, ok := m.Options()[URIPath]
	if !ok {
		return nil
	}
	path := make([]string, 0, len(opt.values))
	for _, v := range opt.values {
		path = append(path, v.AsString())
	}
	return path
}

func (m *Message) PathString() string {
	return strings.Join(m.Path(), "/")
}

// SetPathString replaces the URIPath options with the segments of a
// "/"-separated path string.
func (m *Message) SetPathString(s string) {
	if len(s) == 0 {
		m.SetPath(nil)
		return
	}
	m.SetPath(strings.Split(strings.TrimLeft(s, "/"), "/"))
}

// SetPath replaces the URIPath options with one option per segment.
func (m *Message) SetPath(segments []string) {
	m.Options().Del(URIPath)
	for _, seg := range segments {
		m.Options().Add(URIPath, seg)
	}
}
