package httpclient

import (
	"errors"
	"fmt"
)

// Kind identifies one variant of the closed client error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindNoConnection
	KindTimeout
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInternalServerError
	KindClientError
	KindNetworkError
	KindEncodingFailed
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindInvalidURL:          "invalid_url",
	KindNoConnection:        "no_connection",
	KindTimeout:             "timeout",
	KindUnauthorized:        "unauthorized",
	KindForbidden:           "forbidden",
	KindNotFound:            "not_found",
	KindInternalServerError: "internal_server_error",
	KindClientError:         "client_error",
	KindNetworkError:        "network_error",
	KindEncodingFailed:      "encoding_failed",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is checks. Each matches any *Error of the same kind.
var (
	ErrUnknown             = &Error{Kind: KindUnknown}
	ErrInvalidURL          = &Error{Kind: KindInvalidURL}
	ErrNoConnection        = &Error{Kind: KindNoConnection}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInternalServerError = &Error{Kind: KindInternalServerError}
	ErrClientError         = &Error{Kind: KindClientError}
	ErrNetworkError        = &Error{Kind: KindNetworkError}
	ErrEncodingFailed      = &Error{Kind: KindEncodingFailed}
)

// Error is the only error type returned across the Client boundary.
type Error struct {
	Kind Kind
	// StatusCode is set for KindClientError only.
	StatusCode int
	// Cause is set for KindNetworkError and KindEncodingFailed, and kept for
	// diagnostics on the other transport-derived kinds.
	Cause error
}

// ClientError returns a KindClientError error for the given status code.
func ClientError(statusCode int) *Error {
	return &Error{Kind: KindClientError, StatusCode: statusCode}
}

// NetworkError returns a KindNetworkError error wrapping cause.
func NetworkError(cause error) *Error {
	return &Error{Kind: KindNetworkError, Cause: cause}
}

// EncodingFailed returns a KindEncodingFailed error wrapping cause.
func EncodingFailed(cause error) *Error {
	return &Error{Kind: KindEncodingFailed, Cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindInvalidURL:
		return "invalid URL provided"
	case KindNoConnection:
		return "no internet connection"
	case KindTimeout:
		return "request timed out"
	case KindUnauthorized:
		return "unauthorized access"
	case KindForbidden:
		return "access forbidden"
	case KindNotFound:
		return "resource not found"
	case KindInternalServerError:
		return "internal server error"
	case KindClientError:
		return fmt.Sprintf("client error with status code: %d", e.StatusCode)
	case KindNetworkError:
		if e.Cause != nil {
			return fmt.Sprintf("network error: %v", e.Cause)
		}
		return "network error"
	case KindEncodingFailed:
		if e.Cause != nil {
			return fmt.Sprintf("request body encoding failed: %v", e.Cause)
		}
		return "request body encoding failed"
	default:
		return "unknown error occurred"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target with a
// non-zero StatusCode must match it exactly, and a target whose Cause is a
// classified *TransportError must match its code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	if t.StatusCode != 0 && e.StatusCode != t.StatusCode {
		return false
	}
	if want, ok := transportCode(t.Cause); ok {
		got, _ := transportCode(e.Cause)
		return got == want
	}
	return true
}

// Equal reports whether a and b are structurally identical: same kind, same
// status code, and same classified cause code.
func Equal(a, b *Error) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.StatusCode != b.StatusCode {
		return false
	}
	ac, aok := transportCode(a.Cause)
	bc, bok := transportCode(b.Cause)
	return aok == bok && ac == bc
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind carried by err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func transportCode(err error) (Code, bool) {
	if err == nil {
		return CodeUnknown, false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code, true
	}
	return CodeUnknown, false
}
