package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTargets(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write targets file: %v", err)
	}
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeTargets(t, "targets.yaml", `
targets:
  - id: api-health
    name: API health
    host: api.example.com
    path: /health
    method: get
    request_delay_ms: 750
    expect:
      statuses: [200]
      json_path: status
      json_equals: ok
  - id: home
    url: http://www.example.com/?lang=en
`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if len(reg.Targets()) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(reg.Targets()))
	}

	api, ok := reg.TargetByID("api-health")
	if !ok {
		t.Fatalf("expected target api-health to be loaded")
	}
	if api.Method != "GET" || api.Scheme != "https" {
		t.Fatalf("unexpected sanitized target: %+v", api)
	}
	if api.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", api.RequestDelay())
	}
	if api.Expect.JSONEquals != "ok" {
		t.Fatalf("unexpected expectation: %+v", api.Expect)
	}

	home, _ := reg.TargetByID("home")
	if home.Scheme != "http" || home.Host != "www.example.com" || home.Path != "/" {
		t.Fatalf("url shorthand not applied: %+v", home)
	}
	if home.Query["lang"] != "en" {
		t.Fatalf("expected lang query, got %v", home.Query)
	}
	if home.Name != "home" {
		t.Fatalf("expected name to default to id, got %q", home.Name)
	}
	if home.RequestDelay() != 500*time.Millisecond {
		t.Fatalf("expected default delay, got %v", home.RequestDelay())
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	file := writeTargets(t, "targets.json", `{"targets":[{"id":"a","host":"a.example","path":"/x","body":{"data":{"k":"v"}}}]}`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	a, _ := reg.TargetByID("a")
	if a.Body == nil || a.Body.Format != BodyFormatJSON {
		t.Fatalf("expected json body format default, got %+v", a.Body)
	}
}

func TestLoadRegistryRejectsInvalidTargets(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
targets:
  - id: dup
    host: one.example
  - id: dup
    host: two.example
`,
		"missing host": `
targets:
  - id: nohost
`,
		"relative path": `
targets:
  - id: rel
    host: a.example
    path: health
`,
		"bad scheme": `
targets:
  - id: ftp
    scheme: ftp
    host: a.example
`,
		"bad status": `
targets:
  - id: st
    host: a.example
    expect:
      statuses: [404]
`,
		"bad body format": `
targets:
  - id: b
    host: a.example
    body:
      format: xml
`,
		"empty": `targets: []`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := writeTargets(t, "targets.yaml", content)
			if _, err := LoadRegistry(file); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestLoadRegistryMissingFile(t *testing.T) {
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadRegistry(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestParseRegistryReportsDecodeErrors(t *testing.T) {
	_, err := ParseRegistry([]byte("targets: [unclosed"), ".yaml")
	if err == nil || !strings.Contains(err.Error(), "decode yaml targets") {
		t.Fatalf("expected yaml decode error, got %v", err)
	}

	_, err = ParseRegistry([]byte(`{"targets": [`), ".json")
	if err == nil || !strings.Contains(err.Error(), "decode json targets") {
		t.Fatalf("expected json decode error, got %v", err)
	}

	_, err = ParseRegistry([]byte("targets: []"), ".toml")
	if err == nil || !strings.Contains(err.Error(), "unsupported targets file extension") {
		t.Fatalf("expected extension error, got %v", err)
	}

	_, err = ParseRegistry([]byte("\t{"), "")
	if err == nil || !strings.Contains(err.Error(), "not recognized") {
		t.Fatalf("expected unrecognized format error, got %v", err)
	}

	reg, err := ParseRegistry([]byte(`{"targets":[{"id":"a","host":"a.example"}]}`), "")
	if err != nil {
		t.Fatalf("ParseRegistry without extension: %v", err)
	}
	if len(reg.All) != 1 {
		t.Fatalf("expected 1 target, got %d", len(reg.All))
	}
}
