package coapmsg

import "encoding/binary"

// ParsedMessage is a zero-copy view over a received datagram. Unlike
// Message, it does not allocate an option map up front: Code, Type, ID,
// Token and Payload are read directly from the borrowed slice, and options
// are walked lazily in ascending number order. Use ParseView to validate a
// datagram and obtain one; use ToMessage to materialize an owned Message
// once a datagram needs to outlive the receive buffer it arrived in.
type ParsedMessage struct {
	data     []byte
	tokenLen int
	optStart int
	payload  []byte
}

// ParseView validates data as a CoAP datagram and returns a view over it
// without copying the option or payload bytes. The caller must not mutate
// data for as long as the view (or any slice obtained from it) is in use.
func ParseView(data []byte) (ParsedMessage, error) {
	if len(data) < 4 {
		return ParsedMessage{}, ErrTruncated
	}
	if data[0]>>6 != 1 {
		return ParsedMessage{}, ErrInvalidVersion
	}
	tokenLen := int(data[0] & 0xf)
	if tokenLen > 8 {
		return ParsedMessage{}, ErrInvalidTokenLen
	}
	if len(data) < 4+tokenLen {
		return ParsedMessage{}, ErrTruncated
	}

	v := ParsedMessage{data: data, tokenLen: tokenLen, optStart: 4 + tokenLen}

	// Walk once up front purely to validate framing and to locate the
	// payload, without retaining a map. Unlike UnmarshalBinary, this does
	// not check for an option number past 0xffff or a critical option with
	// an illegal length.
	b := data[v.optStart:]
	for len(b) > 0 {
		if b[0] == payloadMarker {
			b = b[1:]
			if len(b) == 0 {
				return ParsedMessage{}, ErrEmptyPayloadAfterMarker
			}
			v.payload = b
			return v, nil
		}
		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0x0f)
		if deltaNibble == extOptReserved || lengthNibble == extOptReserved {
			return ParsedMessage{}, ErrUndefinedOptionHeader
		}
		b = b[1:]
		_, b2, err := readExt(b, deltaNibble)
		if err != nil {
			return ParsedMessage{}, err
		}
		b = b2
		length, b3, err := readExt(b, lengthNibble)
		if err != nil {
			return ParsedMessage{}, err
		}
		b = b3
		if length > MaxOptionValueSize {
			return ParsedMessage{}, ErrOptionTooLong
		}
		if len(b) < length {
			return ParsedMessage{}, ErrTruncated
		}
		b = b[length:]
	}
	v.payload = nil
	return v, nil
}

func (v ParsedMessage) Type() COAPType {
	return COAPType((v.data[0] >> 4) & 0x3)
}

func (v ParsedMessage) Code() COAPCode {
	return COAPCode(v.data[1])
}

func (v ParsedMessage) ID() uint16 {
	return binary.BigEndian.Uint16(v.data[2:4])
}

func (v ParsedMessage) Token() []byte {
	return v.data[4 : 4+v.tokenLen]
}

func (v ParsedMessage) Payload() []byte {
	return v.payload
}

// WalkOptions calls fn once per option instance, in ascending option
// number order, stopping early if fn returns false. Catalog options whose
// value length is outside the catalog's range are skipped, critical or not
// (UnmarshalBinary instead rejects such a critical option).
func (v ParsedMessage) WalkOptions(fn func(id OptionNumber, value []byte) bool) {
	b := v.data[v.optStart:]
	prev := OptionNumber(0)
	for len(b) > 0 {
		if b[0] == payloadMarker {
			return
		}
		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0x0f)
		b = b[1:]
		delta, b2, err := readExt(b, deltaNibble)
		if err != nil {
			return
		}
		b = b2
		length, b3, err := readExt(b, lengthNibble)
		if err != nil {
			return
		}
		b = b3
		if len(b) < length {
			return
		}

		id := prev + OptionNumber(delta)
		val := b[:length]
		def, known := optionDefs[id]
		skip := known && (len(val) < def.MinLength || len(val) > def.MaxLength)
		b = b[length:]
		prev = id
		if skip {
			continue
		}
		if !fn(id, val) {
			return
		}
	}
}

// ToMessage copies the view into an owned, independent Message.
func (v ParsedMessage) ToMessage() Message {
	m := NewMessage()
	m.Type = v.Type()
	m.Code = v.Code()
	m.MessageID = v.ID()
	if v.tokenLen > 0 {
		m.Token = append([]byte(nil), v.Token()...)
	}
	v.WalkOptions(func(id OptionNumber, value []byte) bool {
		m.options.Add(id, append([]byte(nil), value...))
		return true
	})
	m.Payload = append([]byte(nil), v.Payload()...)
	return m
}
