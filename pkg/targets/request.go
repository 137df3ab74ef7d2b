package targets

import (
	"fmt"
	"net/url"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
)

// Request builds the transport request for the target.
func (t Target) Request() (httpclient.Request, error) {
	body, err := t.body()
	if err != nil {
		return httpclient.Request{}, err
	}

	opts := []httpclient.RequestOption{
		httpclient.WithScheme(httpclient.Scheme(t.Scheme)),
		httpclient.WithMethod(t.Method),
		httpclient.WithBody(body),
	}
	if headers := Headers(t); len(headers) > 0 {
		opts = append(opts, httpclient.WithHeaders(headers))
	}
	if len(t.Query) > 0 {
		opts = append(opts, httpclient.WithQueryParams(t.Query))
	}
	return httpclient.NewRequest(t.Host, t.Path, opts...), nil
}

func (t Target) body() (httpclient.Body, error) {
	spec := t.Body
	if spec == nil {
		return httpclient.EmptyBody(), nil
	}

	var body httpclient.Body
	switch spec.Format {
	case BodyFormatJSON, "":
		body = httpclient.JSONBody(spec.Data)
	case BodyFormatYAML:
		body = httpclient.YAMLBody(spec.Data)
	case BodyFormatForm:
		values, err := formValues(spec.Data)
		if err != nil {
			return httpclient.Body{}, fmt.Errorf("target %q: %w", t.ID, err)
		}
		body = httpclient.FormBody(values)
	case BodyFormatRaw:
		return httpclient.BytesBody(spec.ContentType, []byte(spec.Raw)), nil
	default:
		return httpclient.Body{}, fmt.Errorf("target %q: unsupported body format %q", t.ID, spec.Format)
	}

	if spec.ContentType != "" {
		body.DefaultHeaders["Content-Type"] = spec.ContentType
	}
	return body, nil
}

func formValues(data any) (url.Values, error) {
	values := url.Values{}
	switch m := data.(type) {
	case nil:
	case map[string]any:
		for k, raw := range m {
			switch v := raw.(type) {
			case []any:
				for _, item := range v {
					values.Add(k, fmt.Sprint(item))
				}
			default:
				values.Set(k, fmt.Sprint(v))
			}
		}
	case map[string]string:
		for k, v := range m {
			values.Set(k, v)
		}
	default:
		return nil, fmt.Errorf("form body data must be a mapping, got %T", data)
	}
	return values, nil
}
