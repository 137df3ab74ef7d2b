package prober

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-probe/pkg/httpclient"
	"github.com/samvad-hq/samvad-probe/pkg/targets"
)

func result(status int, body string) *httpclient.Result {
	return &httpclient.Result{
		Data:     []byte(body),
		Response: &httpclient.Response{StatusCode: status},
	}
}

func TestEvaluateEmptyExpectationPasses(t *testing.T) {
	assert.NoError(t, Evaluate(targets.Expectation{}, result(204, "")))
}

func TestEvaluateNilResult(t *testing.T) {
	err := Evaluate(targets.Expectation{}, nil)

	var expErr *ExpectationError
	require.ErrorAs(t, err, &expErr)
	assert.Equal(t, "response", expErr.Check)
}

func TestEvaluateChecks(t *testing.T) {
	const html = `<html><body><div id="app"><h1 class="title">ok</h1></div></body></html>`
	const doc = `{"status":"ok","checks":{"db":{"healthy":true}},"items":[1,2]}`
	const schema = `{
		"type": "object",
		"required": ["status"],
		"properties": {"status": {"type": "string"}}
	}`

	cases := []struct {
		name      string
		exp       targets.Expectation
		res       *httpclient.Result
		wantCheck string
	}{
		{name: "status allowed", exp: targets.Expectation{Statuses: []int{200, 204}}, res: result(204, "")},
		{name: "status rejected", exp: targets.Expectation{Statuses: []int{200}}, res: result(202, ""), wantCheck: "status"},
		{name: "selector found", exp: targets.Expectation{Selector: "#app h1.title"}, res: result(200, html)},
		{name: "selector missing", exp: targets.Expectation{Selector: "#login"}, res: result(200, html), wantCheck: "selector"},
		{name: "json path exists", exp: targets.Expectation{JSONPath: "checks.db.healthy"}, res: result(200, doc)},
		{name: "json path with dollar prefix", exp: targets.Expectation{JSONPath: "$.status", JSONEquals: "ok"}, res: result(200, doc)},
		{name: "json path array length", exp: targets.Expectation{JSONPath: "items.#", JSONEquals: "2"}, res: result(200, doc)},
		{name: "json path value mismatch", exp: targets.Expectation{JSONPath: "status", JSONEquals: "degraded"}, res: result(200, doc), wantCheck: "json_path"},
		{name: "json path missing", exp: targets.Expectation{JSONPath: "checks.cache"}, res: result(200, doc), wantCheck: "json_path"},
		{name: "json path on html", exp: targets.Expectation{JSONPath: "status"}, res: result(200, html), wantCheck: "json_path"},
		{name: "schema valid", exp: targets.Expectation{Schema: schema}, res: result(200, doc)},
		{name: "schema violation", exp: targets.Expectation{Schema: schema}, res: result(200, `{"status":1}`), wantCheck: "schema"},
		{name: "schema invalid document", exp: targets.Expectation{Schema: `{"type":`}, res: result(200, doc), wantCheck: "schema"},
		{name: "schema on non json body", exp: targets.Expectation{Schema: schema}, res: result(200, html), wantCheck: "schema"},
		{
			name:      "status checked before selector",
			exp:       targets.Expectation{Statuses: []int{200}, Selector: "#missing"},
			res:       result(201, html),
			wantCheck: "status",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Evaluate(tc.exp, tc.res)
			if tc.wantCheck == "" {
				assert.NoError(t, err)
				return
			}
			var expErr *ExpectationError
			require.ErrorAs(t, err, &expErr)
			assert.Equal(t, tc.wantCheck, expErr.Check)
			assert.Contains(t, err.Error(), tc.wantCheck+" check failed")
		})
	}
}
