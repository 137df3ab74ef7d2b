package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// RestyClient adapts resty.Client to the Client interface. It holds no mutable
// state between calls and is safe for concurrent use.
type RestyClient struct {
	client *resty.Client
	log    Logger
}

// Option configures a RestyClient.
type Option func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	transport http.RoundTripper
	userAgent string
	log       Logger
}

// WithTimeout bounds every call, including reading the response body.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithUserAgent sets the User-Agent sent when a request does not set one.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// WithLogger routes transport diagnostics to log.
func WithLogger(log Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// NewRestyClient creates a RestyClient. Defaults to a 30s timeout over
// http.DefaultTransport.
func NewRestyClient(opts ...Option) *RestyClient {
	o := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	log := ensureLogger(o.log)

	c := resty.New().
		SetTimeout(o.timeout).
		SetRetryCount(0).
		SetAllowGetMethodPayload(true).
		SetRedirectPolicy(resty.RedirectPolicyFunc(noRedirects)).
		SetPreRequestHook(sendRenderedHeaders(o.userAgent)).
		SetLogger(restyLogger{log: log})
	if o.transport != nil {
		c.SetTransport(o.transport)
	}

	return &RestyClient{client: c, log: log}
}

// noRedirects hands 3xx responses back to the caller so one Perform is one
// round trip.
func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

type renderedHeaderKey struct{}

// sendRenderedHeaders replaces whatever headers resty assembled with the
// rendered request headers. userAgent is added only when the request has none.
func sendRenderedHeaders(userAgent string) resty.PreRequestHook {
	return func(_ *resty.Client, hr *http.Request) error {
		rendered, ok := hr.Context().Value(renderedHeaderKey{}).(http.Header)
		if !ok {
			return nil
		}
		header := rendered.Clone()
		if userAgent != "" && header.Get("User-Agent") == "" {
			header.Set("User-Agent", userAgent)
		}
		hr.Header = header
		return nil
	}
}

// Perform renders req, executes it once and maps every failure path to an *Error.
func (r *RestyClient) Perform(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rendered, payload, err := req.render(ctx)
	if err != nil {
		return nil, r.fail(req, MapError(err, nil))
	}

	call := r.client.R().
		SetContext(context.WithValue(ctx, renderedHeaderKey{}, rendered.Header)).
		SetHeaderMultiValues(rendered.Header)
	if len(payload) > 0 {
		call.SetBody(payload)
	}

	resp, err := call.Execute(rendered.Method, rendered.URL.String())
	if err != nil {
		return nil, r.fail(req, MapError(err, nil))
	}

	raw := resp.RawResponse
	if raw == nil || raw.StatusCode <= 0 {
		te := &TransportError{
			Code: CodeBadServerResponse,
			Op:   rendered.Method,
			URL:  rendered.URL.String(),
			Err:  fmt.Errorf("response is not an HTTP response"),
		}
		return nil, r.fail(req, MapError(te, nil))
	}

	if !IsSuccess(raw.StatusCode) {
		return nil, r.fail(req, MapError(nil, raw))
	}

	return &Result{
		Data:     resp.Body(),
		Response: newResponse(raw, rendered.URL),
	}, nil
}

func (r *RestyClient) fail(req Request, e *Error) *Error {
	r.log.DebugObj("http request failed", "http_error", map[string]any{
		"method": req.Method,
		"host":   req.Host,
		"path":   req.Path,
		"kind":   e.Kind.String(),
		"error":  e.Error(),
	})
	return e
}

// restyLogger forwards resty's printf-style diagnostics to Logger.
type restyLogger struct {
	log Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.ErrorObj("resty error", "resty", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.WarnObj("resty warning", "resty", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.DebugObj("resty debug", "resty", fmt.Sprintf(format, v...))
}
