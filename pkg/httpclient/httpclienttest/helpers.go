package httpclienttest

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
)

// DefaultURL is the URL of the request built by GetRequest.
const DefaultURL = "https://a-url.com/path"

// GetRequest returns a GET request for DefaultURL.
func GetRequest(opts ...httpclient.RequestOption) httpclient.Request {
	return httpclient.NewRequest("a-url.com", "/path", opts...)
}

// NewResponse returns a response with the given status for rawURL. An empty
// rawURL means DefaultURL.
func NewResponse(statusCode int, rawURL string) *http.Response {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("httpclienttest: bad url %q: %v", rawURL, err))
	}
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Request:    &http.Request{Method: http.MethodGet, URL: u},
	}
}

// ValidData returns a small JSON document.
func ValidData() []byte {
	return []byte(`{ "id": 1 }`)
}

// AnyError returns an opaque error that carries no transport classification.
func AnyError() error {
	return errors.New("any error")
}

// TransportFailure returns a classified transport error for code.
func TransportFailure(code httpclient.Code) error {
	return httpclient.NewTransportError(code)
}
