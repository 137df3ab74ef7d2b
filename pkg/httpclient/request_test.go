package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest("a-url.com", "/path")

	assert.Equal(t, SchemeHTTPS, req.Scheme)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Nil(t, req.QueryParams)

	payload, err := req.Body.Encode()
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestRenderCreatesRequestWithCorrectValues(t *testing.T) {
	req := NewRequest("localhost", "/any-path",
		WithHeader("any-header", "any-header-value"),
		WithQueryParam("any-param", "any-param-value"),
	)

	got, err := req.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://localhost/any-path?any-param=any-param-value", got.URL.String())
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "any-header-value", got.Header.Get("any-header"))
	assert.Equal(t, []byte{}, readAll(t, got))
}

func TestRenderOmitsQueryWhenAbsent(t *testing.T) {
	got, err := NewRequest("a-url.com", "/path", WithScheme(SchemeHTTP)).Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "http://a-url.com/path", got.URL.String())
	assert.Empty(t, got.URL.RawQuery)
}

func TestRenderIsIdempotent(t *testing.T) {
	req := NewRequest("api.example.com", "/users",
		WithMethod(http.MethodPost),
		WithQueryParams(map[string]string{"b": "2", "a": "1", "c": "3"}),
		WithHeaders(map[string]string{"X-One": "1", "X-Two": "2"}),
		WithBody(JSONBody(map[string]any{"name": "probe", "n": 3})),
	)

	first, err := req.Render(context.Background())
	require.NoError(t, err)
	second, err := req.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.URL.String(), second.URL.String())
	assert.Equal(t, "a=1&b=2&c=3", first.URL.RawQuery)
	assert.Equal(t, first.Method, second.Method)
	assert.Equal(t, first.Header, second.Header)
	assert.Equal(t, readAll(t, first), readAll(t, second))
}

func TestRenderMergesBodyDefaultHeaders(t *testing.T) {
	req := NewRequest("a-url.com", "/path",
		WithMethod(http.MethodPost),
		WithBody(JSONBody(map[string]int{"id": 1})),
		WithHeader("X-Trace", "abc"),
	)
	got, err := req.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "abc", got.Header.Get("X-Trace"))

	override := NewRequest("a-url.com", "/path",
		WithBody(JSONBody(1)),
		WithHeader("content-type", "application/vnd.api+json"),
	)
	got, err = override.Render(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.api+json", got.Header.Get("Content-Type"))
}

func TestRenderDoesNotMutateRequest(t *testing.T) {
	headers := map[string]string{"A": "1"}
	req := NewRequest("a-url.com", "/path", WithHeaders(headers), WithBody(JSONBody(1)))
	headers["B"] = "2"

	_, err := req.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "1"}, req.Headers)
}

func TestRenderInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty host", NewRequest("", "/path")},
		{"blank host", NewRequest("   ", "/path")},
		{"host with space", NewRequest("a url.com", "/path")},
		{"host with slash", NewRequest("a-url.com/x", "/path")},
		{"relative path", NewRequest("a-url.com", "path")},
		{"bad scheme", NewRequest("a-url.com", "/path", WithScheme("ftp"))},
		{"bad method", NewRequest("a-url.com", "/path", WithMethod("GE T"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Render(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestRenderEncodingFailure(t *testing.T) {
	cause := errors.New("cannot encode")
	req := NewRequest("a-url.com", "/path", WithBody(NewBody(nil, func() ([]byte, error) {
		return nil, cause
	})))

	_, err := req.Render(context.Background())

	assert.ErrorIs(t, err, ErrEncodingFailed)
	assert.ErrorIs(t, err, cause)
}

func TestURLMatchesRenderedURL(t *testing.T) {
	req := NewRequest("a-url.com", "/path", WithQueryParam("q", "a b"))

	u, err := req.URL()
	require.NoError(t, err)
	rendered, err := req.Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, u.String(), rendered.URL.String())
	assert.Equal(t, url.Values{"q": {"a b"}}, u.Query())
}

func readAll(t *testing.T, req *http.Request) []byte {
	t.Helper()
	if req.Body == nil {
		return []byte{}
	}
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	return data
}
