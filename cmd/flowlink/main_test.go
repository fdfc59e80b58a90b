package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/graphql"
	"github.com/dd0wney/cluso-flowlink/pkg/health"
	"github.com/dd0wney/cluso-flowlink/pkg/registry"
	"github.com/dd0wney/cluso-flowlink/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testScene = `
config:
  style: orthogonal
  enforce_acyclic: true
  log_level: error
nodes:
  - {id: fetch, position: {x: 0, y: 0}, size: {width: 120, height: 60}}
  - {id: parse, position: {x: 240, y: 0}, size: {width: 120, height: 60}}
ports:
  - {id: fetch.out, nodeId: fetch, direction: output, dataType: bytes, anchor: right}
  - {id: fetch.in, nodeId: fetch, direction: input, dataType: any, anchor: left}
  - {id: parse.in, nodeId: parse, direction: input, dataType: bytes, anchor: left}
  - {id: parse.out, nodeId: parse, direction: output, dataType: json, anchor: right}
connections:
  - {sourcePortId: fetch.out, targetPortId: parse.in, label: raw}
  - {sourcePortId: parse.out, targetPortId: fetch.in}
`

func writeScene(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScene), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheck(t *testing.T) {
	path := writeScene(t)

	out, err := run(t, "check", path)
	require.NoError(t, err)

	var report scene.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Accepted, 1)
	assert.Equal(t, "raw", report.Accepted[0].Label)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, diagram.ReasonCycleDetected, report.Rejected[0].Reason)

	_, err = run(t, "check", "--strict", path)
	assert.ErrorIs(t, err, errRejected)
}

func TestCheckYAML(t *testing.T) {
	out, err := run(t, "check", "--format", "yaml", writeScene(t))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc["accepted"], 1)
	assert.Len(t, doc["rejected"], 1)

	_, err = run(t, "check", "--format", "xml", writeScene(t))
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCheckMissingScene(t *testing.T) {
	_, err := run(t, "check", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = run(t, "check")
	assert.Error(t, err, "scene argument is required")
}

func TestConfigFlagReplacesSceneConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("style: straight\nlog_level: error\n"), 0o600))

	out, err := run(t, "check", "--config", cfgPath, writeScene(t))
	require.NoError(t, err)

	var report scene.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Accepted, 2, "cycles are allowed by the default config")
	assert.Equal(t, diagram.StyleStraight, report.Accepted[0].Style)
}

func TestPaths(t *testing.T) {
	path := writeScene(t)

	out, err := run(t, "paths", path)
	require.NoError(t, err)

	var renderables []struct {
		Connection diagram.Connection `json:"connection"`
		Path       struct {
			Style  diagram.Style   `json:"style"`
			Points []diagram.Point `json:"points"`
		} `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &renderables))
	require.Len(t, renderables, 1)
	assert.Equal(t, diagram.StyleOrthogonal, renderables[0].Path.Style)
	assert.Equal(t, diagram.Point{X: 120, Y: 30}, renderables[0].Path.Points[0])

	_, err = run(t, "paths", "--id", "missing", path)
	assert.ErrorIs(t, err, registry.ErrConnectionNotFound)
}

func TestQuery(t *testing.T) {
	path := writeScene(t)

	out, err := run(t, "query", path,
		`query($s: ID!, $d: ID!) { validate(sourcePortId: $s, targetPortId: $d) { valid reason } }`,
		"--vars", `{"s": "fetch.out", "d": "parse.in"}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"DUPLICATE_EDGE"`)

	out, err = run(t, "query", path, `{ nope }`)
	assert.ErrorIs(t, err, errQueryFailed)
	assert.Contains(t, out, `"errors"`)

	_, err = run(t, "query", path, `{ cycles { length } }`, "--vars", "{")
	assert.ErrorContains(t, err, "invalid --vars")
}

func TestMetrics(t *testing.T) {
	out, err := run(t, "metrics", writeScene(t))
	require.NoError(t, err)
	assert.Contains(t, out, "flowlink_connections_total 1")
	assert.Contains(t, out, `flowlink_validation_rejections_total{reason="CYCLE_DETECTED"} 1`)
}

func TestServeHandlers(t *testing.T) {
	opts := &rootOptions{format: formatJSON}
	e, _, reg, err := opts.load(writeScene(t))
	require.NoError(t, err)
	defer e.Close()

	schema, err := graphql.GenerateSchema(e)
	require.NoError(t, err)
	checker := newHealthChecker(e, graphql.NewGraphQLHandler(schema, nil))

	rr := httptest.NewRecorder()
	checker.HTTPHandler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp health.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.EqualValues(t, 1, resp.Checks["diagram"].Details["connections"])
	assert.Equal(t, "idle", resp.Checks["diagram"].Details["drag_phase"])

	rr = httptest.NewRecorder()
	checker.ReadinessHandler()(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	metricsHandler(reg, nil)(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "flowlink_connections_total 1")
}
