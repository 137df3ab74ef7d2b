// Package httpclienttest provides a fake network boundary for code built on
// httpclient. An Interceptor is installed as the client's round tripper, so no
// request it sees ever reaches a socket.
package httpclienttest

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
)

// ErrNotInstalled is returned for requests that reach an interceptor outside
// its Install/Uninstall window.
var ErrNotInstalled = errors.New("httpclienttest: interceptor is not installed")

type stub struct {
	data     []byte
	response *http.Response
	err      error
}

// Interceptor is an http.RoundTripper that answers every request with a
// programmed outcome and records what it received.
type Interceptor struct {
	mu        sync.Mutex
	installed bool
	stub      *stub
	observer  func(*http.Request)
	count     int
}

// NewInterceptor returns an interceptor that is not yet installed.
func NewInterceptor() *Interceptor {
	return &Interceptor{}
}

// Start returns an installed interceptor that is uninstalled when tb finishes.
func Start(tb testing.TB) *Interceptor {
	tb.Helper()
	i := NewInterceptor()
	i.Install()
	tb.Cleanup(i.Uninstall)
	return i
}

// Install starts intercepting requests.
func (i *Interceptor) Install() {
	i.mu.Lock()
	i.installed = true
	i.mu.Unlock()
}

// Uninstall stops intercepting and clears the stub, the observer and the counter.
func (i *Interceptor) Uninstall() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.installed = false
	i.stub = nil
	i.observer = nil
	i.count = 0
}

// Stub programs the outcome of this and every following request until it is
// reprogrammed. Any argument may be nil.
func (i *Interceptor) Stub(data []byte, response *http.Response, err error) {
	i.mu.Lock()
	i.stub = &stub{data: data, response: response, err: err}
	i.mu.Unlock()
}

// Observe registers fn to be called with every intercepted request before its
// outcome is delivered.
func (i *Interceptor) Observe(fn func(*http.Request)) {
	i.mu.Lock()
	i.observer = fn
	i.mu.Unlock()
}

// RequestCount returns the number of requests intercepted since installation.
func (i *Interceptor) RequestCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count
}

// Client returns a RestyClient whose only transport is this interceptor.
func (i *Interceptor) Client(opts ...httpclient.Option) *httpclient.RestyClient {
	opts = append(opts, httpclient.WithTransport(i))
	return httpclient.NewRestyClient(opts...)
}

// RoundTrip delivers the programmed response, then data, then error. When no
// response is programmed, an error is returned as the round trip failure and
// anything else completes with a response that carries no HTTP status.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	i.mu.Lock()
	if !i.installed {
		i.mu.Unlock()
		return nil, ErrNotInstalled
	}
	i.count++
	observer := i.observer
	s := i.stub
	i.mu.Unlock()

	if err := bufferBody(req); err != nil {
		return nil, err
	}
	if observer != nil {
		observer(req)
	}

	if s == nil {
		return &http.Response{
			Header:  make(http.Header),
			Body:    http.NoBody,
			Request: req,
		}, nil
	}

	if s.response == nil && s.err != nil {
		return nil, s.err
	}

	resp := &http.Response{
		Header:  make(http.Header),
		Request: req,
	}
	if s.response != nil {
		clone := *s.response
		resp = &clone
		resp.Header = s.response.Header.Clone()
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}
		resp.Request = req
	}
	resp.ContentLength = -1
	resp.Body = &stubBody{data: bytes.NewReader(s.data), err: s.err}
	return resp, nil
}

// bufferBody replaces the request body with a re-readable copy so observers
// can inspect it.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

// stubBody yields the programmed data and then fails with err, if set.
type stubBody struct {
	data *bytes.Reader
	err  error
}

func (b *stubBody) Read(p []byte) (int, error) {
	n, err := b.data.Read(p)
	if err == io.EOF && b.err != nil {
		return n, b.err
	}
	return n, err
}

func (b *stubBody) Close() error { return nil }
