package coap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lobaro/async-coap-go/coapmsg"
)

// Kind classifies a coap.Error the way the spec's error taxonomy does
// (section 7). Kind is comparable so callers can switch on it directly
// instead of string-matching, the way the teacher's coapError only ever
// exposed Error()/Timeout()/Temporary().
type Kind int

const (
	Unspecified Kind = iota
	InvalidArgument
	OutOfSpace
	ParseFailure
	ResponseTimeout
	BadResponse
	UnknownMessageCode
	UnhandledCriticalOption
	IOError
	Cancelled
	HostNotFound
	HostLookupFailure
	ResourceNotFound // mapped from 4.04
	Unauthorized     // 4.01
	Forbidden        // 4.03
	ClientRequestError
	ServerError
	Reset
	OptionNotRepeatable
	UnsupportedUriScheme
)

var kindNames = map[Kind]string{
	Unspecified:             "Unspecified",
	InvalidArgument:         "InvalidArgument",
	OutOfSpace:              "OutOfSpace",
	ParseFailure:            "ParseFailure",
	ResponseTimeout:         "ResponseTimeout",
	BadResponse:             "BadResponse",
	UnknownMessageCode:      "UnknownMessageCode",
	UnhandledCriticalOption: "UnhandledCriticalOption",
	IOError:                 "IOError",
	Cancelled:               "Cancelled",
	HostNotFound:            "HostNotFound",
	HostLookupFailure:       "HostLookupFailure",
	ResourceNotFound:        "ResourceNotFound",
	Unauthorized:            "Unauthorized",
	Forbidden:               "Forbidden",
	ClientRequestError:      "ClientRequestError",
	ServerError:             "ServerError",
	Reset:                   "Reset",
	OptionNotRepeatable:     "OptionNotRepeatable",
	UnsupportedUriScheme:    "UnsupportedUriScheme",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unspecified"
}

// Error is the engine's error type: a Kind plus an optional wrapped cause.
// It satisfies error and exposes Cause() so github.com/pkg/errors.Cause and
// errors.Unwrap both see through to the underlying failure.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapErr(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("coap: %s: %s: %s", e.Kind, e.msg, e.cause)
	}
	if e.msg != "" {
		return fmt.Sprintf("coap: %s: %s", e.Kind, e.msg)
	}
	return "coap: " + e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause exists so github.com/pkg/errors.Cause(err) unwraps a coap.Error the
// same way it unwraps an error produced by errors.Wrap.
func (e *Error) Cause() error {
	return e.cause
}

// Is lets errors.Is(err, SomeKind) work if SomeKind is itself wrapped as a
// coap.Error with no cause, purely to compare Kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.cause == nil && t.Kind == e.Kind
}

// KindOf extracts the Kind of err if it is (or wraps) a *coap.Error, and
// Unspecified otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unspecified
}

// responseCodeToError reclassifies a non-2.xx response code into the
// matching error Kind, for emit_successful_response.
func responseCodeToError(code coapmsg.COAPCode) *Error {
	class, detail := code.Class(), code.Detail()
	switch {
	case class == 4 && detail == 1:
		return newErr(Unauthorized, "4.01 Unauthorized")
	case class == 4 && detail == 3:
		return newErr(Forbidden, "4.03 Forbidden")
	case class == 4 && detail == 4:
		return newErr(ResourceNotFound, "4.04 Not Found")
	case class == 4:
		return newErr(ClientRequestError, fmt.Sprintf("4.%02d client error", detail))
	case class == 5:
		return newErr(ServerError, fmt.Sprintf("5.%02d server error", detail))
	default:
		return newErr(UnknownMessageCode, fmt.Sprintf("%d.%02d unexpected response code", class, detail))
	}
}
