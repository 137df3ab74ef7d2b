package prober

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

const maxSelectorBodyBytes = 1 << 20 // 1 MiB

// ExpectationError reports the first check a response failed.
type ExpectationError struct {
	Check  string
	Detail string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s check failed: %s", e.Check, e.Detail)
}

// Evaluate runs the expectation checks against a successful result in order:
// status, selector, json path, schema.
func Evaluate(exp targets.Expectation, res *httpclient.Result) error {
	if res == nil {
		return &ExpectationError{Check: "response", Detail: "no result"}
	}

	if len(exp.Statuses) > 0 && !containsStatus(exp.Statuses, res.StatusCode()) {
		return &ExpectationError{
			Check:  "status",
			Detail: fmt.Sprintf("got %d, want one of %v", res.StatusCode(), exp.Statuses),
		}
	}
	if exp.Selector != "" {
		if err := checkSelector(exp.Selector, res.Data); err != nil {
			return err
		}
	}
	if exp.JSONPath != "" {
		if err := checkJSONPath(exp.JSONPath, exp.JSONEquals, res.Data); err != nil {
			return err
		}
	}
	if exp.Schema != "" {
		if err := checkSchema(exp.Schema, res.Data); err != nil {
			return err
		}
	}
	return nil
}

func containsStatus(statuses []int, code int) bool {
	for _, s := range statuses {
		if s == code {
			return true
		}
	}
	return false
}

func checkSelector(selector string, body []byte) error {
	if len(body) > maxSelectorBodyBytes {
		body = body[:maxSelectorBodyBytes]
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return &ExpectationError{Check: "selector", Detail: fmt.Sprintf("parse html: %v", err)}
	}
	if doc.Find(selector).Length() == 0 {
		return &ExpectationError{Check: "selector", Detail: fmt.Sprintf("no element matches %q", selector)}
	}
	return nil
}

// checkJSONPath accepts gjson paths and the common "$." JSONPath prefix.
func checkJSONPath(path, equals string, body []byte) error {
	if !gjson.ValidBytes(body) {
		return &ExpectationError{Check: "json_path", Detail: "response is not valid JSON"}
	}
	gpath := strings.TrimPrefix(strings.TrimPrefix(path, "$"), ".")

	result := gjson.GetBytes(body, gpath)
	if !result.Exists() {
		return &ExpectationError{Check: "json_path", Detail: fmt.Sprintf("path %q not found", path)}
	}
	if equals != "" && result.String() != equals {
		return &ExpectationError{
			Check:  "json_path",
			Detail: fmt.Sprintf("path %q is %q, want %q", path, result.String(), equals),
		}
	}
	return nil
}

func checkSchema(schemaDoc string, body []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaDoc)); err != nil {
		return &ExpectationError{Check: "schema", Detail: fmt.Sprintf("invalid schema: %v", err)}
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return &ExpectationError{Check: "schema", Detail: fmt.Sprintf("invalid schema: %v", err)}
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return &ExpectationError{Check: "schema", Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return &ExpectationError{Check: "schema", Detail: err.Error()}
	}
	return nil
}
