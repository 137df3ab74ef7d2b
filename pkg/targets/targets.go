package targets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package targets loads probe target definitions (YAML/JSON).

// Target is one endpoint to probe.
type Target struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	URL            string            `json:"url,omitempty" yaml:"url,omitempty"`
	Scheme         string            `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Host           string            `json:"host" yaml:"host"`
	Path           string            `json:"path" yaml:"path"`
	Method         string            `json:"method,omitempty" yaml:"method,omitempty"`
	Headers        map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Query          map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	Body           *BodySpec         `json:"body,omitempty" yaml:"body,omitempty"`
	Expect         Expectation       `json:"expect" yaml:"expect"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any    `json:"config,omitempty" yaml:"config,omitempty"`
}

// BodySpec describes the payload sent with a target request.
type BodySpec struct {
	Format      string `json:"format" yaml:"format"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Data        any    `json:"data,omitempty" yaml:"data,omitempty"`
	Raw         string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Expectation lists the checks a successful response must pass. Empty fields are skipped.
type Expectation struct {
	Statuses   []int  `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Selector   string `json:"selector,omitempty" yaml:"selector,omitempty"`
	JSONPath   string `json:"json_path,omitempty" yaml:"json_path,omitempty"`
	JSONEquals string `json:"json_equals,omitempty" yaml:"json_equals,omitempty"`
	Schema     string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

const (
	BodyFormatJSON = "json"
	BodyFormatYAML = "yaml"
	BodyFormatForm = "form"
	BodyFormatRaw  = "raw"
)

var defaultRequestDelayMs = 500

// Registry is an immutable, validated set of targets.
type Registry struct {
	All  []Target
	ByID map[string]Target
}

type registryFile struct {
	Targets []Target `json:"targets" yaml:"targets"`
}

// Targets returns a copy of the loaded targets.
func (r *Registry) Targets() []Target {
	if r == nil || len(r.All) == 0 {
		return nil
	}
	out := make([]Target, len(r.All))
	copy(out, r.All)
	return out
}

// TargetByID returns the target entry for the given id, if loaded.
func (r *Registry) TargetByID(id string) (Target, bool) {
	id = strings.TrimSpace(id)
	if r == nil || id == "" || r.ByID == nil {
		return Target{}, false
	}
	t, ok := r.ByID[id]
	return t, ok
}

// LoadRegistry loads the target registry from file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("targets file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes, sanitizes and validates a registry document. ext
// selects the decoder; an empty ext tries YAML then JSON.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	file, err := parseRegistry(data, ext)
	if err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, errors.New("targets file contains no targets entries")
	}

	reg := &Registry{
		All:  make([]Target, 0, len(file.Targets)),
		ByID: make(map[string]Target, len(file.Targets)),
	}
	for i := range file.Targets {
		t, err := sanitizeTarget(file.Targets[i])
		if err != nil {
			return nil, fmt.Errorf("target[%d]: %w", i, err)
		}
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("target[%d]: %w", i, err)
		}
		if _, exists := reg.ByID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}
		reg.All = append(reg.All, t)
		reg.ByID[t.ID] = t
	}
	return reg, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext == "" {
			if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
				return reg, nil
			}
			continue
		}
		if ext == d.ext {
			return unmarshalRegistry(d.name, data, d.fn)
		}
	}

	if ext != "" {
		return registryFile{}, fmt.Errorf("unsupported targets file extension %q", ext)
	}
	return registryFile{}, errors.New("targets file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s targets: %w", name, err)
	}
	return reg, nil
}

func sanitizeTarget(t Target) (Target, error) {
	t.ID = strings.TrimSpace(t.ID)
	t.Name = strings.TrimSpace(t.Name)
	t.URL = strings.TrimSpace(t.URL)
	t.Scheme = strings.ToLower(strings.TrimSpace(t.Scheme))
	t.Host = strings.TrimSpace(t.Host)
	t.Path = strings.TrimSpace(t.Path)
	t.Method = strings.ToUpper(strings.TrimSpace(t.Method))

	if t.URL != "" {
		if err := t.applyURL(); err != nil {
			return t, err
		}
	}

	if t.Name == "" {
		t.Name = t.ID
	}
	if t.Scheme == "" {
		t.Scheme = "https"
	}
	if t.Method == "" {
		t.Method = "GET"
	}
	if t.Path == "" {
		t.Path = "/"
	}
	if t.Config == nil {
		t.Config = map[string]any{}
	}
	if t.RequestDelayMs <= 0 {
		t.RequestDelayMs = defaultRequestDelayMs
	}
	if t.Body != nil {
		t.Body.Format = strings.ToLower(strings.TrimSpace(t.Body.Format))
		t.Body.ContentType = strings.TrimSpace(t.Body.ContentType)
		if t.Body.Format == "" {
			t.Body.Format = BodyFormatJSON
		}
	}

	return t, nil
}

// applyURL fills scheme, host, path and query from the url shorthand. Explicit
// fields win.
func (t *Target) applyURL() error {
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid url for target %q: %w", t.ID, err)
	}
	if t.Scheme == "" {
		t.Scheme = strings.ToLower(u.Scheme)
	}
	if t.Host == "" {
		t.Host = u.Host
	}
	if t.Path == "" {
		t.Path = u.Path
	}
	if q := u.Query(); len(q) > 0 {
		merged := make(map[string]string, len(q)+len(t.Query))
		for k := range q {
			merged[k] = q.Get(k)
		}
		for k, v := range t.Query {
			merged[k] = v
		}
		t.Query = merged
	}
	return nil
}

func validateTarget(t Target) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Host == "" {
		return fmt.Errorf("host is required for target %q", t.ID)
	}
	if t.Scheme != "http" && t.Scheme != "https" {
		return fmt.Errorf("scheme %q is not supported for target %q", t.Scheme, t.ID)
	}
	if !strings.HasPrefix(t.Path, "/") {
		return fmt.Errorf("path must start with / for target %q", t.ID)
	}
	if t.Body != nil {
		switch t.Body.Format {
		case BodyFormatJSON, BodyFormatYAML, BodyFormatForm, BodyFormatRaw:
		default:
			return fmt.Errorf("body format %q is not supported for target %q", t.Body.Format, t.ID)
		}
	}
	for _, code := range t.Expect.Statuses {
		if code < 200 || code > 299 {
			return fmt.Errorf("expected status %d for target %q is outside 200-299", code, t.ID)
		}
	}
	return nil
}

// RequestDelay returns the minimum spacing between probes of the target.
func (t Target) RequestDelay() time.Duration {
	if t.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(t.RequestDelayMs) * time.Millisecond
}
