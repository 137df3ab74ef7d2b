package httpclient

import (
	"net/http"
	"net/url"
)

// Response is the metadata of a received HTTP response.
type Response struct {
	StatusCode int
	Status     string
	URL        *url.URL
	Header     http.Header
}

// Result is the outcome of a successful (2xx) call.
type Result struct {
	Data     []byte
	Response *Response
}

// StatusCode returns the response status code, or 0 when no response is attached.
func (r *Result) StatusCode() int {
	if r == nil || r.Response == nil {
		return 0
	}
	return r.Response.StatusCode
}

func newResponse(raw *http.Response, fallback *url.URL) *Response {
	u := fallback
	if raw.Request != nil && raw.Request.URL != nil {
		u = raw.Request.URL
	}
	return &Response{
		StatusCode: raw.StatusCode,
		Status:     raw.Status,
		URL:        u,
		Header:     raw.Header.Clone(),
	}
}
