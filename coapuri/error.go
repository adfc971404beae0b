package coapuri

import "errors"

var (
	// ErrMalformed is returned when a URI reference does not match the
	// RFC 3986 grammar this package accepts.
	ErrMalformed = errors.New("coapuri: malformed URI reference")

	// ErrCannotBeABase is returned by Resolve when base has no authority
	// and no hierarchical path (e.g. "urn:example:1234") and the relative
	// reference would require merging against one.
	ErrCannotBeABase = errors.New("coapuri: base URI cannot be a base for relative resolution")

	// ErrInvalidScheme is returned when a scheme fails reCheckScheme.
	ErrInvalidScheme = errors.New("coapuri: invalid scheme")
)
