package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultParallel is used when RunBatch is given a non-positive limit.
const DefaultParallel = 4

// BatchResult is the outcome for one path. Exactly one of Result and Err
// is set.
type BatchResult struct {
	Path   string
	Result *Result
	Err    error
}

// RunBatch analyzes every path with at most parallel runs in flight.
// Results keep the order of paths. A failing document does not stop the
// others; only cancellation of ctx does, and then the context error is
// returned alongside whatever finished.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, parallel int) ([]BatchResult, error) {
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	results := make([]BatchResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			res, err := p.RunFile(gctx, path)
			results[i].Result, results[i].Err = res, err
			return nil
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.Info("batch done", "documents", len(paths), "failed", failed, "parallel", parallel)
	return results, err
}
