package coapmsg

import (
	"fmt"
	"sort"
	"strings"
)

// Option is one option number together with every instance of it present
// in a message (repeatable options, e.g. Uri-Path, may have several).
type Option struct {
	ID     OptionNumber
	values []OptionValue
}

func (o Option) Len() int {
	return len(o.values)
}

func (o Option) IsSet() bool {
	return len(o.values) > 0
}

// Values returns every instance of this option, in the order they were added.
func (o Option) Values() []OptionValue {
	return o.values
}

// AsString returns the first value's string representation, or "" if unset.
func (o Option) AsString() string {
	if len(o.values) == 0 {
		return ""
	}
	return o.values[0].AsString()
}

func (o Option) AsUInt64() uint64 {
	if len(o.values) == 0 {
		return 0
	}
	return o.values[0].AsUInt64()
}

func (o Option) AsUInt32() uint32 { return uint32(o.AsUInt64()) }
func (o Option) AsUInt16() uint16 { return uint16(o.AsUInt64()) }
func (o Option) AsUInt8() uint8   { return uint8(o.AsUInt64()) }

func (o Option) AsBytes() []byte {
	if len(o.values) == 0 {
		return nil
	}
	return o.values[0].AsBytes()
}

func (o Option) String() string {
	def, ok := optionDefs[o.ID]
	parts := make([]string, 0, len(o.values))
	for _, v := range o.values {
		if ok {
			parts = append(parts, def.Format.PrettyPrint(v))
		} else {
			parts = append(parts, fmt.Sprintf("%#v", v.AsBytes()))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CoapOptions is a message's option set, keyed by option number the way
// net/http.Header is keyed by canonical header name.
type CoapOptions map[OptionNumber]Option

// Add appends value to any existing instances of key. If key is a known
// catalog option that does not allow repeating and one instance is already
// present, Add fails with ErrOptionNotRepeatable rather than silently
// producing a malformed message.
func (h CoapOptions) Add(key OptionNumber, value interface{}) error {
	if def, known := optionDefs[key]; known && !def.Repeatable {
		if opt, exists := h[key]; exists && len(opt.values) > 0 {
			return ErrOptionNotRepeatable
		}
	}
	b, err := optionValueToBytes(value)
	if err != nil {
		return err
	}
	opt := h[key]
	opt.ID = key
	opt.values = append(opt.values, OptionValue{b: b})
	h[key] = opt
	return nil
}

// Set replaces any existing instances of key with a single value.
func (h CoapOptions) Set(key OptionNumber, value interface{}) error {
	b, err := optionValueToBytes(value)
	if err != nil {
		return err
	}
	h[key] = Option{ID: key, values: []OptionValue{{b: b}}}
	return nil
}

// Get returns the first instance of key, or a zero Option if absent.
func (h CoapOptions) Get(key OptionNumber) Option {
	return h[key]
}

func (h CoapOptions) Del(key OptionNumber) {
	delete(h, key)
}

func (h CoapOptions) Clear() {
	for k := range h {
		delete(h, k)
	}
}

// SortedNumbers returns every option number present, ascending.
func (h CoapOptions) SortedNumbers() []OptionNumber {
	ids := make([]OptionNumber, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (h CoapOptions) String() string {
	parts := make([]string, 0, len(h))
	for _, id := range h.SortedNumbers() {
		parts = append(parts, fmt.Sprintf("%d:%s", id, h[id]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
