// Package enricher adds optional, LLM-assisted information around an
// analysis: categories for classes the keyword table cannot place, and
// human names for clusters. Every LLM-backed enricher falls back to a
// deterministic default on any failure.
package enricher

import (
	"context"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// Completer sends one system/user prompt pair and returns the raw JSON reply.
// *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Resolver refines a classifier for a specific graph before analysis.
type Resolver interface {
	Resolve(ctx context.Context, g *graph.Graph, base classifier.Classifier) classifier.Classifier
}

// Annotator proposes a name for every cluster of a report, keyed by cluster id.
type Annotator interface {
	Annotate(ctx context.Context, report *aggregate.Report) map[int]string
}

// ApplyNames sets cluster names on report. Clusters without a name keep
// the one they have.
func ApplyNames(report *aggregate.Report, names map[int]string) {
	for i := range report.Clusters {
		if n, ok := names[report.Clusters[i].ID]; ok && n != "" {
			report.Clusters[i].Name = n
		}
	}
}
