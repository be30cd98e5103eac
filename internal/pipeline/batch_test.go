package pipeline_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/aggscope/internal/pipeline"
)

func bytesReader(s string) io.Reader { return strings.NewReader(s) }

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.yaml", treasuryYAML),
		filepath.Join(dir, "missing.yaml"),
		writeFile(t, dir, "c.json", `{"nodes": [{"name": "Solo", "methods": 1}], "relations": []}`),
	}

	results, err := newPipeline(t, pipeline.Enrichment{}, nil).RunBatch(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Result.Report.Clusters, 2)

	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Result)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "c", results[2].Result.Name)
	assert.Len(t, results[2].Result.Report.Clusters, 1)
}

func TestRunBatchCanceled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "a.yaml", treasuryYAML), writeFile(t, dir, "b.yaml", treasuryYAML)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newPipeline(t, pipeline.Enrichment{}, nil).RunBatch(ctx, paths, 0)
	assert.ErrorIs(t, err, context.Canceled)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
