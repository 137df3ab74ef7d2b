package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status int
		want   *Error
	}{
		{status: 401, want: &Error{Kind: KindUnauthorized}},
		{status: 403, want: &Error{Kind: KindForbidden}},
		{status: 404, want: &Error{Kind: KindNotFound}},
		{status: 500, want: &Error{Kind: KindInternalServerError}},
		{status: 503, want: &Error{Kind: KindInternalServerError}},
		{status: 599, want: &Error{Kind: KindInternalServerError}},
		{status: 400, want: ClientError(400)},
		{status: 429, want: ClientError(429)},
		{status: 499, want: ClientError(499)},
		{status: 302, want: &Error{Kind: KindUnknown}},
		{status: 200, want: &Error{Kind: KindUnknown}},
		{status: 100, want: &Error{Kind: KindUnknown}},
		{status: 600, want: &Error{Kind: KindUnknown}},
		{status: 999, want: &Error{Kind: KindUnknown}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			got := MapStatus(tt.status)
			assert.True(t, Equal(got, tt.want), "status %d: got %#v want %#v", tt.status, got, tt.want)
		})
	}
}

func TestMapStatusIsPure(t *testing.T) {
	for _, code := range []int{401, 418, 502, 999} {
		assert.True(t, Equal(MapStatus(code), MapStatus(code)))
	}
}

func TestMapErrorTransportCodes(t *testing.T) {
	tests := []struct {
		code Code
		kind Kind
	}{
		{CodeNotConnected, KindNoConnection},
		{CodeConnectionLost, KindNoConnection},
		{CodeTimedOut, KindTimeout},
		{CodeBadURL, KindInvalidURL},
		{CodeUnsupportedURL, KindInvalidURL},
		{CodeCancelled, KindNetworkError},
		{CodeCannotFindHost, KindNetworkError},
		{CodeCannotConnectToHost, KindNetworkError},
		{CodeBadServerResponse, KindNetworkError},
		{CodeUnknown, KindNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			te := NewTransportError(tt.code)
			got := MapError(te, nil)
			assert.Equal(t, tt.kind, got.Kind)
			assert.ErrorIs(t, got, te)
		})
	}
}

func TestMapErrorKeepsTypedErrors(t *testing.T) {
	typed := ClientError(418)
	wrapped := fmt.Errorf("layer: %w", typed)

	assert.Same(t, typed, MapError(wrapped, nil))
}

func TestMapErrorWithResponseUsesStatus(t *testing.T) {
	got := MapError(errors.New("ignored"), &http.Response{StatusCode: 404})
	assert.Equal(t, KindNotFound, got.Kind)
}

func TestMapErrorOtherFailureWrapsCause(t *testing.T) {
	cause := errors.New("any error")

	got := MapError(cause, nil)

	require.Equal(t, KindNetworkError, got.Kind)
	assert.ErrorIs(t, got, cause)
}

func TestClassifyRawErrors(t *testing.T) {
	opErr := func(errno syscall.Errno) error {
		return &url.Error{Op: "Get", URL: "https://a-url.com/path", Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: os.NewSyscallError("connect", errno),
		}}
	}

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"network unreachable", opErr(syscall.ENETUNREACH), CodeNotConnected},
		{"host unreachable", opErr(syscall.EHOSTUNREACH), CodeNotConnected},
		{"connection reset", opErr(syscall.ECONNRESET), CodeConnectionLost},
		{"connection refused", opErr(syscall.ECONNREFUSED), CodeCannotConnectToHost},
		{"eof", &url.Error{Op: "Get", URL: "https://a-url.com", Err: io.EOF}, CodeConnectionLost},
		{"unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), CodeConnectionLost},
		{"deadline", context.DeadlineExceeded, CodeTimedOut},
		{"os deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), CodeTimedOut},
		{"cancelled", &url.Error{Op: "Get", URL: "https://a-url.com", Err: context.Canceled}, CodeCancelled},
		{"dns", &url.Error{Op: "Get", URL: "https://nowhere.invalid", Err: &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}}, CodeCannotFindHost},
		{"parse", &url.Error{Op: "parse", URL: "::", Err: errors.New("missing protocol scheme")}, CodeBadURL},
		{"unsupported scheme", &url.Error{Op: "Get", URL: "ftp://x", Err: errors.New(`unsupported protocol scheme "ftp"`)}, CodeUnsupportedURL},
		{"opaque", errors.New("boom"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyKeepsExistingCode(t *testing.T) {
	te := NewTransportError(CodeTimedOut)
	wrapped := &url.Error{Op: "Get", URL: "https://a-url.com", Err: te}

	assert.Same(t, te, Classify(wrapped))
	assert.Nil(t, Classify(nil))
}
