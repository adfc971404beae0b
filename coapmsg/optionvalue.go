package coapmsg

import (
	"encoding/binary"
	"fmt"
)

// OptionValue holds the raw bytes of a single option instance together with
// typed accessors. Integers are minimum-length big-endian per RFC 7252
// section 3.2: 0 encodes as zero bytes, 1..0xff as one byte, and so on.
type OptionValue struct {
	b []byte
}

// NilOptionValue is returned by accessors when no value is present.
var NilOptionValue = OptionValue{}

func (v OptionValue) IsSet() bool {
	return v.b != nil
}

func (v OptionValue) Len() int {
	return len(v.b)
}

func (v OptionValue) AsBytes() []byte {
	buf := make([]byte, len(v.b))
	copy(buf, v.b)
	return buf
}

func (v OptionValue) AsString() string {
	return string(v.b)
}

// AsUInt64 decodes the value as a minimum-length big-endian unsigned
// integer, accepting 0 to 8 bytes and treating a missing value as 0.
func (v OptionValue) AsUInt64() uint64 {
	var out uint64
	for _, b := range v.b {
		out = out<<8 | uint64(b)
	}
	return out
}

func (v OptionValue) AsUInt32() uint32 {
	return uint32(v.AsUInt64())
}

func (v OptionValue) AsUInt16() uint16 {
	return uint16(v.AsUInt64())
}

func (v OptionValue) AsUInt8() uint8 {
	return uint8(v.AsUInt64())
}

func (f ValueFormat) PrettyPrint(val OptionValue) string {
	switch f {
	case ValueEmpty:
		return "-empty-"
	case ValueOpaque:
		return fmt.Sprintf("0x%x", val.AsBytes())
	case ValueUint:
		return fmt.Sprintf("%d", val.AsUInt64())
	case ValueString:
		return fmt.Sprintf("%q", val.AsString())
	default:
		return fmt.Sprintf("%#v", val.AsBytes())
	}
}

// EncodeUint returns the minimum-length big-endian encoding of u: 0 bytes
// for 0, growing by one byte per additional 8 bits of magnitude.
func EncodeUint(u uint64) []byte {
	switch {
	case u == 0:
		return nil
	case u <= 0xff:
		return []byte{byte(u)}
	case u <= 0xffff:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(u))
		return buf
	case u <= 0xffffff:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(u))
		return buf[1:]
	case u <= 0xffffffff:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(u))
		return buf
	case u <= 0xffffffffff:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, u)
		return buf[3:]
	case u <= 0xffffffffffff:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, u)
		return buf[2:]
	case u <= 0xffffffffffffff:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, u)
		return buf[1:]
	default:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, u)
		return buf
	}
}

// optionValueToBytes converts a user-supplied option value (string,
// []byte, or an integer type) to its wire representation.
func optionValueToBytes(optVal interface{}) ([]byte, error) {
	switch v := optVal.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case OptionValue:
		return v.AsBytes(), nil
	case ContentFormat:
		return EncodeUint(uint64(v)), nil
	case int:
		return EncodeUint(uint64(v)), nil
	case int8:
		return EncodeUint(uint64(v)), nil
	case int16:
		return EncodeUint(uint64(v)), nil
	case int32:
		return EncodeUint(uint64(v)), nil
	case int64:
		return EncodeUint(uint64(v)), nil
	case uint:
		return EncodeUint(uint64(v)), nil
	case uint8:
		return EncodeUint(uint64(v)), nil
	case uint16:
		return EncodeUint(uint64(v)), nil
	case uint32:
		return EncodeUint(uint64(v)), nil
	case uint64:
		return EncodeUint(v), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("coapmsg: invalid option value type %T (%v)", optVal, optVal)
	}
}
