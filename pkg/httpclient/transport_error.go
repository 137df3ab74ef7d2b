package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// Code classifies a low-level transport failure.
type Code int

const (
	CodeUnknown Code = iota
	CodeNotConnected
	CodeConnectionLost
	CodeTimedOut
	CodeBadURL
	CodeUnsupportedURL
	CodeCancelled
	CodeCannotFindHost
	CodeCannotConnectToHost
	CodeBadServerResponse
)

var codeNames = map[Code]string{
	CodeUnknown:             "unknown",
	CodeNotConnected:        "not_connected",
	CodeConnectionLost:      "connection_lost",
	CodeTimedOut:            "timed_out",
	CodeBadURL:              "bad_url",
	CodeUnsupportedURL:      "unsupported_url",
	CodeCancelled:           "cancelled",
	CodeCannotFindHost:      "cannot_find_host",
	CodeCannotConnectToHost: "cannot_connect_to_host",
	CodeBadServerResponse:   "bad_server_response",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// TransportError is a transport failure tagged with its classified Code.
type TransportError struct {
	Code Code
	Op   string
	URL  string
	Err  error
}

// NewTransportError returns a TransportError with the given code and no cause.
func NewTransportError(code Code) *TransportError {
	return &TransportError{Code: code}
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport ")
	b.WriteString(e.Code.String())
	if e.Op != "" || e.URL != "" {
		b.WriteString(" (")
		b.WriteString(strings.TrimSpace(e.Op + " " + e.URL))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *TransportError) Timeout() bool { return e.Code == CodeTimedOut }

// Classify tags a raw transport error with a Code. Errors that already carry a
// *TransportError are returned as that value.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	out := &TransportError{Code: classifyCode(err), Err: err}
	var ue *url.Error
	if errors.As(err, &ue) {
		out.Op = ue.Op
		out.URL = ue.URL
	}
	return out
}

func classifyCode(err error) Code {
	switch {
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return CodeTimedOut
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimedOut
	}

	switch {
	case errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ENETDOWN),
		errors.Is(err, syscall.EHOSTUNREACH):
		return CodeNotConnected
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return CodeConnectionLost
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeCannotConnectToHost
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CodeCannotFindHost
	}

	var escErr url.EscapeError
	var hostErr url.InvalidHostError
	if errors.As(err, &escErr) || errors.As(err, &hostErr) {
		return CodeBadURL
	}

	var ue *url.Error
	if errors.As(err, &ue) && ue.Op == "parse" {
		return CodeBadURL
	}

	// net/http reports these with unexported error types.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unsupported protocol scheme"):
		return CodeUnsupportedURL
	case strings.Contains(msg, "no Host in request URL"),
		strings.Contains(msg, "invalid URL"):
		return CodeBadURL
	case strings.Contains(msg, "malformed HTTP"):
		return CodeBadServerResponse
	}

	return CodeUnknown
}
