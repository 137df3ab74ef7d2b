package httpclient

import (
	"encoding/json"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"
)

const (
	headerContentType = "Content-Type"

	contentTypeJSON = "application/json"
	contentTypeYAML = "application/yaml"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Body is a lazily encoded request payload together with the headers it implies.
// The zero value is an empty body.
type Body struct {
	DefaultHeaders map[string]string
	encode         func() ([]byte, error)
}

// NewBody builds a Body from default headers and an encoder that is only
// called when the request is rendered.
func NewBody(defaultHeaders map[string]string, encode func() ([]byte, error)) Body {
	return Body{DefaultHeaders: copyHeaders(defaultHeaders), encode: encode}
}

// EmptyBody returns a body with no headers that always encodes to zero bytes.
func EmptyBody() Body {
	return Body{}
}

// Encode evaluates the body. It has no side effects beyond those of the
// encoder supplied by the caller.
func (b Body) Encode() ([]byte, error) {
	if b.encode == nil {
		return nil, nil
	}
	return b.encode()
}

// BytesBody sends data as-is. contentType may be empty.
func BytesBody(contentType string, data []byte) Body {
	var headers map[string]string
	if contentType != "" {
		headers = map[string]string{headerContentType: contentType}
	}
	buf := append([]byte(nil), data...)
	return NewBody(headers, func() ([]byte, error) {
		return buf, nil
	})
}

// JSONBody marshals v as JSON when the request is rendered.
func JSONBody(v any) Body {
	return NewBody(map[string]string{headerContentType: contentTypeJSON}, func() ([]byte, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal json body: %w", err)
		}
		return data, nil
	})
}

// YAMLBody marshals v as YAML when the request is rendered.
func YAMLBody(v any) Body {
	return NewBody(map[string]string{headerContentType: contentTypeYAML}, func() ([]byte, error) {
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml body: %w", err)
		}
		return data, nil
	})
}

// FormBody url-encodes values.
func FormBody(values url.Values) Body {
	encoded := values.Encode()
	return NewBody(map[string]string{headerContentType: contentTypeForm}, func() ([]byte, error) {
		return []byte(encoded), nil
	})
}

func copyHeaders(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
