package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/metrics"
)

func TestObserveAnalysis(t *testing.T) {
	c := metrics.NewCollector()

	report := aggregate.EmptyReport()
	report.Clusters = []aggregate.ClusterReport{{ID: 0}, {ID: 1}}
	report.Cuts = []aggregate.CutRecommendation{{Source: "A", Target: "B"}}
	report.Summary.Converged = false

	c.ObserveAnalysis(report, 3*time.Millisecond)
	c.ObserveFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Analyses.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Cuts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Unconverged))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := metrics.NewCollector()
	b := metrics.NewCollector()
	a.Cuts.Add(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.Cuts))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Cuts))
}

func TestHandler(t *testing.T) {
	c := metrics.NewCollector()
	c.ObserveRequest("POST", "/v1/analyze", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `aggscope_http_requests_total{method="POST",route="/v1/analyze",status="200"} 1`)
}
