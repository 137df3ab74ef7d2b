package publishers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	typ     string
	request httpclient.Request
	client  httpclient.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}
	log = ensureLogger(log)

	client := httpclient.NewRestyClient(
		httpclient.WithTimeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second),
		httpclient.WithLogger(log),
	)
	return newHTTPPublisherWithClient(cfg, client, log)
}

func newHTTPPublisherWithClient(cfg PublisherConfig, client httpclient.Client, log Logger) (*httpPublisher, error) {
	req, err := webhookRequest(cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		request: req,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

// webhookRequest turns the configured URL into a request template without a body.
func webhookRequest(cfg *HTTPPublisherConfig) (httpclient.Request, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return httpclient.Request{}, fmt.Errorf("parse http.url: %w", err)
	}
	if u.Host == "" {
		return httpclient.Request{}, fmt.Errorf("http.url %q has no host", cfg.URL)
	}

	opts := []httpclient.RequestOption{
		httpclient.WithScheme(httpclient.Scheme(strings.ToLower(u.Scheme))),
		httpclient.WithMethod(cfg.Method),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, httpclient.WithHeaders(cfg.Headers))
	}
	if q := u.Query(); len(q) > 0 {
		params := make(map[string]string, len(q))
		for k := range q {
			params[k] = q.Get(k)
		}
		opts = append(opts, httpclient.WithQueryParams(params))
	}

	req := httpclient.NewRequest(u.Host, u.Path, opts...)
	if _, err := req.URL(); err != nil {
		return httpclient.Request{}, fmt.Errorf("http.url %q: %w", cfg.URL, err)
	}
	return req, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish posts the event as JSON. Failures carry the *httpclient.Error kind.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.request
	req.Body = httpclient.JSONBody(evt)

	res, err := h.client.Perform(ctx, req)
	if err != nil {
		h.log.ErrorObj("http publisher send failed", "publisher_http_error", map[string]any{
			"publisher_id": h.id,
			"event_id":     evt.ID,
			"kind":         httpclient.KindOf(err).String(),
			"error":        err.Error(),
		})
		return fmt.Errorf("http publish: %w", err)
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"status":       res.StatusCode(),
	})
	return nil
}
