package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Scheme is the URL scheme a request is sent over.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

const defaultMethod = http.MethodGet

// Request describes one outgoing call. It is a value: options copy the maps
// they touch and rendering never mutates the request.
type Request struct {
	Host        string
	Path        string
	Scheme      Scheme
	Method      string
	Headers     map[string]string
	QueryParams map[string]string
	Body        Body
}

// RequestOption customizes a Request built by NewRequest.
type RequestOption func(*Request)

// NewRequest returns a GET request over https with an empty body and no query
// string, adjusted by opts.
func NewRequest(host, path string, opts ...RequestOption) Request {
	req := Request{
		Host:   host,
		Path:   path,
		Scheme: SchemeHTTPS,
		Method: defaultMethod,
		Body:   EmptyBody(),
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// WithScheme sets the URL scheme.
func WithScheme(scheme Scheme) RequestOption {
	return func(r *Request) { r.Scheme = scheme }
}

// WithMethod sets the HTTP method.
func WithMethod(method string) RequestOption {
	return func(r *Request) { r.Method = method }
}

// WithHeader sets a single header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		headers := copyHeaders(r.Headers)
		if headers == nil {
			headers = make(map[string]string, 1)
		}
		headers[key] = value
		r.Headers = headers
	}
}

// WithHeaders merges headers into the request headers.
func WithHeaders(headers map[string]string) RequestOption {
	return func(r *Request) {
		merged := copyHeaders(r.Headers)
		if merged == nil {
			merged = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			merged[k] = v
		}
		r.Headers = merged
	}
}

// WithQueryParam sets a single query parameter.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		params := copyHeaders(r.QueryParams)
		if params == nil {
			params = make(map[string]string, 1)
		}
		params[key] = value
		r.QueryParams = params
	}
}

// WithQueryParams merges params into the query parameters.
func WithQueryParams(params map[string]string) RequestOption {
	return func(r *Request) {
		merged := copyHeaders(r.QueryParams)
		if merged == nil {
			merged = make(map[string]string, len(params))
		}
		for k, v := range params {
			merged[k] = v
		}
		r.QueryParams = merged
	}
}

// WithBody sets the request body.
func WithBody(body Body) RequestOption {
	return func(r *Request) { r.Body = body }
}

// URL composes scheme://host/path[?query]. Query keys are encoded in sorted order.
func (r Request) URL() (*url.URL, error) {
	scheme := r.Scheme
	if scheme == "" {
		scheme = SchemeHTTPS
	}
	if scheme != SchemeHTTP && scheme != SchemeHTTPS {
		return nil, invalidURL(fmt.Errorf("unsupported scheme %q", scheme))
	}
	if strings.TrimSpace(r.Host) == "" {
		return nil, invalidURL(fmt.Errorf("host is empty"))
	}
	if r.Path != "" && !strings.HasPrefix(r.Path, "/") {
		return nil, invalidURL(fmt.Errorf("path %q must start with /", r.Path))
	}

	u := &url.URL{
		Scheme: string(scheme),
		Host:   r.Host,
		Path:   r.Path,
	}
	if len(r.QueryParams) > 0 {
		values := make(url.Values, len(r.QueryParams))
		for k, v := range r.QueryParams {
			values.Set(k, v)
		}
		u.RawQuery = values.Encode()
	}

	// Round-trip through the parser so disallowed host characters are rejected.
	parsed, err := url.Parse(u.String())
	if err != nil {
		return nil, invalidURL(err)
	}
	if parsed.Host != r.Host {
		return nil, invalidURL(fmt.Errorf("host %q is not valid", r.Host))
	}
	return parsed, nil
}

// effectiveHeaders overlays the request headers on the body's default headers.
func (r Request) effectiveHeaders() http.Header {
	out := make(http.Header, len(r.Body.DefaultHeaders)+len(r.Headers))
	for k, v := range r.Body.DefaultHeaders {
		out.Set(k, v)
	}
	for k, v := range r.Headers {
		out.Set(k, v)
	}
	return out
}

// Render builds the transport-level request. Rendering the same Request twice
// yields identical requests as long as the body encoder is deterministic.
func (r Request) Render(ctx context.Context) (*http.Request, error) {
	req, _, err := r.render(ctx)
	return req, err
}

func (r Request) render(ctx context.Context) (*http.Request, []byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := r.URL()
	if err != nil {
		return nil, nil, err
	}

	payload, err := r.Body.Encode()
	if err != nil {
		return nil, nil, EncodingFailed(err)
	}

	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = defaultMethod
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, invalidURL(err)
	}
	req.Header = r.effectiveHeaders()
	return req, payload, nil
}

func invalidURL(cause error) *Error {
	return &Error{Kind: KindInvalidURL, Cause: &TransportError{Code: CodeBadURL, Err: cause}}
}
