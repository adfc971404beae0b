package coapmsg

import (
	"encoding/binary"
)

// Option header nibble values (RFC 7252 section 3.1).
const (
	extOptByteCode   = 13
	extOptByteAddend = 13
	extOptWordCode   = 14
	extOptWordAddend = 269
	extOptReserved   = 15
	payloadMarker    = 0xff
)

// MaxMessageSize is a practical upper bound on an encoded CoAP message,
// chosen so it fits within the IPv6 minimum MTU without IP fragmentation
// (RFC 7252 4.6). Callers sending a message larger than this should treat
// it as a caller error rather than attempt the send.
const MaxMessageSize = 1152

// MarshalBinary fulfills encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return m.MustMarshalBinary(), nil
}

// MustMarshalBinary produces the wire encoding of m. Options are accepted
// in any insertion order; the encoder always walks them in ascending
// number order so the emitted deltas are always well-formed, at the cost
// of an internal sort on every call.
func (m *Message) MustMarshalBinary() []byte {
	if len(m.Token) > 8 {
		panic(ErrInvalidTokenLen)
	}

	buf := make([]byte, 0, 4+len(m.Token)+len(m.Payload)+16)
	buf = append(buf,
		(1<<6)|(uint8(m.Type)<<4)|uint8(0xf&len(m.Token)),
		byte(m.Code),
		byte(m.MessageID>>8), byte(m.MessageID),
	)
	buf = append(buf, m.Token...)

	prev := OptionNumber(0)
	for _, id := range m.Options().SortedNumbers() {
		opt := m.options[id]
		for _, val := range opt.values {
			buf = appendOption(buf, id-prev, val.AsBytes())
			prev = id
		}
	}

	if len(m.Payload) > 0 {
		buf = append(buf, payloadMarker)
		buf = append(buf, m.Payload...)
	}

	return buf
}

func extendOpt(v int) (nibble, ext int) {
	switch {
	case v >= extOptWordAddend:
		return extOptWordCode, v - extOptWordAddend
	case v >= extOptByteAddend:
		return extOptByteCode, v - extOptByteAddend
	default:
		return v, 0
	}
}

func appendOption(buf []byte, delta OptionNumber, value []byte) []byte {
	d, dx := extendOpt(int(delta))
	l, lx := extendOpt(len(value))

	buf = append(buf, byte(d<<4)|byte(l))
	buf = appendExt(buf, d, dx)
	buf = appendExt(buf, l, lx)
	buf = append(buf, value...)
	return buf
}

func appendExt(buf []byte, nibble, ext int) []byte {
	switch nibble {
	case extOptByteCode:
		return append(buf, byte(ext))
	case extOptWordCode:
		tmp := make([]byte, 2)
		binary.BigEndian.PutUint16(tmp, uint16(ext))
		return append(buf, tmp...)
	default:
		return buf
	}
}

// ParseMessage parses a complete datagram into a Message.
func ParseMessage(data []byte) (Message, error) {
	m := Message{}
	return m, m.UnmarshalBinary(data)
}

// UnmarshalBinary fulfills encoding.BinaryUnmarshaler, replacing the
// receiver's contents with the parse of data.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return ErrTruncated
	}
	if data[0]>>6 != 1 {
		return ErrInvalidVersion
	}

	m.Type = COAPType((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > 8 {
		return ErrInvalidTokenLen
	}
	m.Code = COAPCode(data[1])
	m.MessageID = binary.BigEndian.Uint16(data[2:4])

	if len(data) < 4+tokenLen {
		return ErrTruncated
	}
	if tokenLen > 0 {
		m.Token = append([]byte(nil), data[4:4+tokenLen]...)
	} else {
		m.Token = nil
	}

	b := data[4+tokenLen:]
	m.options = CoapOptions{}
	prev := OptionNumber(0)

	for len(b) > 0 {
		if b[0] == payloadMarker {
			b = b[1:]
			if len(b) == 0 {
				return ErrEmptyPayloadAfterMarker
			}
			break
		}

		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0x0f)
		if deltaNibble == extOptReserved || lengthNibble == extOptReserved {
			return ErrUndefinedOptionHeader
		}
		b = b[1:]

		delta, b2, err := readExt(b, deltaNibble)
		if err != nil {
			return err
		}
		b = b2

		length, b3, err := readExt(b, lengthNibble)
		if err != nil {
			return err
		}
		b = b3

		if length > MaxOptionValueSize {
			return ErrOptionTooLong
		}
		if len(b) < length {
			return ErrTruncated
		}
		if delta < 0 || int(prev)+delta > 0xffff {
			return ErrOptionGapTooLarge
		}

		id := prev + OptionNumber(delta)
		val := b[:length]
		def, known := optionDefs[id]
		if known && (len(val) < def.MinLength || len(val) > def.MaxLength) {
			if id.Critical() {
				return ErrCriticalOptionLength
			}
			// Elective options with an illegal length are silently ignored.
		} else {
			m.options.Add(id, append([]byte(nil), val...))
		}

		b = b[length:]
		prev = id
	}

	m.Payload = append([]byte(nil), b...)
	return nil
}

func readExt(b []byte, nibble int) (value int, rest []byte, err error) {
	switch nibble {
	case extOptByteCode:
		if len(b) < 1 {
			return 0, nil, ErrTruncated
		}
		return int(b[0]) + extOptByteAddend, b[1:], nil
	case extOptWordCode:
		if len(b) < 2 {
			return 0, nil, ErrTruncated
		}
		return int(binary.BigEndian.Uint16(b[:2])) + extOptWordAddend, b[2:], nil
	default:
		return nibble, b, nil
	}
}
