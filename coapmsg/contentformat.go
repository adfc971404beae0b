package coapmsg

// ContentFormat is a Content-Format/Accept registry id (RFC 7252 section 12.3).
type ContentFormat uint16

const (
	TextPlain     ContentFormat = 0  // text/plain;charset=utf-8
	AppLinkFormat ContentFormat = 40 // application/link-format
	AppXML        ContentFormat = 41 // application/xml
	AppOctets     ContentFormat = 42 // application/octet-stream
	AppExi        ContentFormat = 47 // application/exi
	AppJSON       ContentFormat = 50 // application/json
	AppCbor       ContentFormat = 60 // application/cbor
)

// IsUTF8 reports whether this content format is textual, per the registry.
func (c ContentFormat) IsUTF8() bool {
	switch c {
	case TextPlain, AppLinkFormat, AppXML, AppJSON:
		return true
	default:
		return false
	}
}
