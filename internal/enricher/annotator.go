package enricher

import (
	"context"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
)

// DefaultAnnotator names each cluster after its root.
type DefaultAnnotator struct{}

func NewDefaultAnnotator() *DefaultAnnotator { return &DefaultAnnotator{} }

func (a *DefaultAnnotator) Annotate(_ context.Context, report *aggregate.Report) map[int]string {
	names := make(map[int]string, len(report.Clusters))
	for _, c := range report.Clusters {
		names[c.ID] = c.Root
	}
	return names
}
