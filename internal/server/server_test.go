package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/codec"
	"github.com/olehluchkiv/aggscope/internal/config"
	"github.com/olehluchkiv/aggscope/internal/metrics"
	"github.com/olehluchkiv/aggscope/internal/pipeline"
	"github.com/olehluchkiv/aggscope/internal/server"
)

const orderJSON = `{
  "nodes": [
    {"name": "CashAccount", "methods": 5},
    {"name": "LedgerEntry", "methods": 3},
    {"name": "MoneyAmount", "methods": 0}
  ],
  "relations": [
    {"source": "CashAccount", "target": "LedgerEntry", "kind": "COMPOSITION"},
    {"source": "LedgerEntry", "target": "MoneyAmount", "kind": "AGGREGATION"}
  ]
}`

const orderYAML = `nodes:
  - {name: CashAccount, methods: 5}
  - {name: LedgerEntry, methods: 3}
relations:
  - {source: CashAccount, target: LedgerEntry, kind: COMPOSITION}
`

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestServer(t *testing.T, cfg server.Config) (*httptest.Server, *metrics.Collector) {
	t.Helper()
	m := metrics.NewCollector()
	p, err := pipeline.FromConfig(config.Default(), pipeline.Enrichment{}, m, testLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(p, m, cfg, testLogger()).Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func post(t *testing.T, url, contentType, accept, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeJSON(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})
	resp := post(t, ts.URL+"/v1/analyze", "application/json", "", orderJSON)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Run-ID"))

	var report aggregate.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Clusters, 1)
	assert.Equal(t, "CashAccount", report.Clusters[0].Root)
	assert.Equal(t, 3, report.Summary.Nodes)
}

func TestAnalyzeYAMLInAndOut(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})
	resp := post(t, ts.URL+"/v1/analyze", "application/yaml", "application/yaml", orderYAML)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	var out map[string]any
	require.NoError(t, yaml.NewDecoder(resp.Body).Decode(&out))
	assert.Contains(t, out, "clusters")
}

func TestAnalyzeFormatQueryWins(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})
	resp := post(t, ts.URL+"/v1/analyze?format=yaml", "application/json", "application/json", orderJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	resp = post(t, ts.URL+"/v1/analyze?format=xml", "application/json", "", orderJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeErrors(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{MaxBodyBytes: 200})

	bigYAML := orderYAML + "# " + strings.Repeat("padding ", 40) + "\n"

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"malformed", "application/json", `{"nodes": [`, http.StatusBadRequest},
		{"malformed yaml", "application/yaml", "nodes: [", http.StatusBadRequest},
		{"invalid document", "application/json", `{"nodes": [{"methods": 1}]}`, http.StatusBadRequest},
		{"unknown node", "application/json", `{"nodes": [{"name": "A"}], "relations": [{"source": "A", "target": "B", "kind": "WEAK"}]}`, http.StatusUnprocessableEntity},
		{"too large", "application/json", orderJSON, http.StatusRequestEntityTooLarge},
		{"too large yaml", "application/yaml", bigYAML, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/analyze", tt.contentType, "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, true, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, *codec.Document) (*pipeline.Result, error) {
	return nil, errors.New("boom")
}

func TestAnalyzeInternalError(t *testing.T) {
	ts := httptest.NewServer(server.New(failingRunner{}, nil, server.Config{}, testLogger()).Handler())
	defer ts.Close()

	resp := post(t, ts.URL+"/v1/analyze", "application/json", "", orderJSON)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// Without a collector there is no metrics route.
	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusNotFound, mresp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{})
	post(t, ts.URL+"/v1/analyze", "application/json", "", orderJSON)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(data), `aggscope_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, string(data), `route="/v1/analyze"`)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t, server.Config{AllowedOrigins: []string{"http://example.com"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/v1/analyze", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := server.New(failingRunner{}, nil, server.Config{Port: 0, ShutdownTimeout: time.Second}, testLogger())

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
