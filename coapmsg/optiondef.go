package coapmsg

// ValueFormat describes how an option's raw bytes should be interpreted
// (RFC 7252 section 3.2).
type ValueFormat uint8

const (
	ValueUnknown ValueFormat = iota
	ValueEmpty               // a zero-length sequence of bytes
	ValueOpaque              // an opaque sequence of bytes
	ValueUint                // a non-negative integer, minimum-length big-endian
	ValueString              // a UTF-8 string
)

// OptionDef carries the catalog metadata for one option number: its
// allowed value length range, repeatability and wire format. It is
// consulted by the parser to reject malformed critical options and by
// the encoder to validate non-repeatable options.
type OptionDef struct {
	Name       string
	Format     ValueFormat
	MinLength  int
	MaxLength  int
	Repeatable bool
}

// MaxOptionValueSize is the largest option value the codec will accept,
// driven by Proxy-Uri's 1-1034 byte range.
const MaxOptionValueSize = 1034

var optionDefs = map[OptionNumber]OptionDef{
	IfMatch:       {Name: "If-Match", Format: ValueOpaque, MinLength: 0, MaxLength: 8, Repeatable: true},
	URIHost:       {Name: "Uri-Host", Format: ValueString, MinLength: 1, MaxLength: 255},
	ETagOption:    {Name: "ETag", Format: ValueOpaque, MinLength: 1, MaxLength: 8, Repeatable: true},
	IfNoneMatch:   {Name: "If-None-Match", Format: ValueEmpty, MinLength: 0, MaxLength: 0},
	Observe:       {Name: "Observe", Format: ValueUint, MinLength: 0, MaxLength: 3},
	URIPort:       {Name: "Uri-Port", Format: ValueUint, MinLength: 0, MaxLength: 2},
	LocationPath:  {Name: "Location-Path", Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	OSCORE:        {Name: "OSCORE", Format: ValueOpaque, MinLength: 0, MaxLength: 255},
	URIPath:       {Name: "Uri-Path", Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	ContentFormatOption: {Name: "Content-Format", Format: ValueUint, MinLength: 0, MaxLength: 2},
	MaxAge:        {Name: "Max-Age", Format: ValueUint, MinLength: 0, MaxLength: 4},
	URIQuery:      {Name: "Uri-Query", Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	Accept:        {Name: "Accept", Format: ValueUint, MinLength: 0, MaxLength: 2},
	LocationQuery: {Name: "Location-Query", Format: ValueString, MinLength: 0, MaxLength: 255, Repeatable: true},
	Block2:        {Name: "Block2", Format: ValueUint, MinLength: 0, MaxLength: 3},
	Block1:        {Name: "Block1", Format: ValueUint, MinLength: 0, MaxLength: 3},
	Size2:         {Name: "Size2", Format: ValueUint, MinLength: 0, MaxLength: 4},
	ProxyURI:      {Name: "Proxy-Uri", Format: ValueString, MinLength: 1, MaxLength: MaxOptionValueSize},
	ProxyScheme:   {Name: "Proxy-Scheme", Format: ValueString, MinLength: 1, MaxLength: 255},
	Size1:         {Name: "Size1", Format: ValueUint, MinLength: 0, MaxLength: 4},
	NoResponse:    {Name: "No-Response", Format: ValueUint, MinLength: 0, MaxLength: 1},
}

// LookupOptionDef returns the catalog entry for an option number, if known.
func LookupOptionDef(id OptionNumber) (OptionDef, bool) {
	def, ok := optionDefs[id]
	return def, ok
}

func (f ValueFormat) String() string {
	switch f {
	case ValueEmpty:
		return "empty"
	case ValueOpaque:
		return "opaque"
	case ValueUint:
		return "uint"
	case ValueString:
		return "string"
	default:
		return "unknown"
	}
}
