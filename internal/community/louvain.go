package community

import (
	"fmt"
	"log/slog"
)

// Result is a partition of a WeightedGraph.
type Result struct {
	// Partition maps node name to cluster id. Ids are dense, starting at 0,
	// numbered by first appearance in node insertion order.
	Partition map[string]int
	// Clusters lists member names per cluster id, in node insertion order.
	Clusters   [][]string
	Modularity float64
	Levels     int
	Passes     int
	// Converged is false when a pass or level cap stopped the search while
	// it was still improving.
	Converged bool
}

// Detector partitions a weighted graph.
type Detector interface {
	Detect(wg *WeightedGraph) (Result, error)
}

const (
	DefaultMaxPasses  = 100
	DefaultMaxLevels  = 20
	DefaultResolution = 1.0

	gainEpsilon = 1e-12
)

// LouvainOptions bounds and tunes the optimizer. Zero values take defaults.
type LouvainOptions struct {
	MaxPasses  int     `mapstructure:"max_passes"`
	MaxLevels  int     `mapstructure:"max_levels"`
	Resolution float64 `mapstructure:"resolution"`
}

func (o LouvainOptions) withDefaults() LouvainOptions {
	if o.MaxPasses == 0 {
		o.MaxPasses = DefaultMaxPasses
	}
	if o.MaxLevels == 0 {
		o.MaxLevels = DefaultMaxLevels
	}
	if o.Resolution == 0 {
		o.Resolution = DefaultResolution
	}
	return o
}

// Validate rejects negative caps and resolutions.
func (o LouvainOptions) Validate() error {
	if o.MaxPasses < 0 {
		return fmt.Errorf("max passes must not be negative, got %d", o.MaxPasses)
	}
	if o.MaxLevels < 0 {
		return fmt.Errorf("max levels must not be negative, got %d", o.MaxLevels)
	}
	if o.Resolution < 0 {
		return fmt.Errorf("resolution must not be negative, got %v", o.Resolution)
	}
	return nil
}

// Louvain is a deterministic implementation of the Louvain method.
//
// Nodes are visited in insertion order. Neighbouring communities are
// considered in the order they are first met while scanning neighbours by
// ascending index, and a node only moves on a strict gain. Two runs over
// the same graph always give the same partition.
type Louvain struct {
	opts   LouvainOptions
	logger *slog.Logger
}

// NewLouvain creates a detector. A nil logger discards output.
func NewLouvain(opts LouvainOptions, logger *slog.Logger) (*Louvain, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("louvain options: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Louvain{
		opts:   opts.withDefaults(),
		logger: logger.With("component", "louvain"),
	}, nil
}

// Options returns the effective options.
func (l *Louvain) Options() LouvainOptions { return l.opts }

// Detect runs local moving and coarsening until no move improves
// modularity or a cap is hit.
func (l *Louvain) Detect(wg *WeightedGraph) (Result, error) {
	if wg == nil {
		return Result{}, fmt.Errorf("louvain: nil graph")
	}
	n := wg.Len()
	res := Result{Partition: make(map[string]int, n), Converged: true}
	if n == 0 {
		res.Clusters = [][]string{}
		return res, nil
	}

	base := wg.level()
	// membership[v] is the community of original node v at the current level.
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}

	lv := base
	levelCapped := true
	for lvl := 0; lvl < l.opts.MaxLevels; lvl++ {
		comm, moved, passes, capped := l.moveNodes(lv)
		res.Passes += passes
		if capped {
			res.Converged = false
			l.logger.Warn("pass cap reached", "level", lvl, "max_passes", l.opts.MaxPasses)
		}
		if !moved {
			levelCapped = false
			break
		}
		count := renumber(comm)
		for v := range membership {
			membership[v] = comm[membership[v]]
		}
		res.Levels++
		l.logger.Debug("level done",
			"level", lvl,
			"nodes", lv.size(),
			"communities", count,
			"passes", passes,
			"modularity", base.modularity(membership, l.opts.Resolution),
		)
		if count == lv.size() {
			levelCapped = false
			break
		}
		lv = lv.coarsen(comm, count)
	}
	if levelCapped {
		res.Converged = false
		l.logger.Warn("level cap reached", "max_levels", l.opts.MaxLevels)
	}

	count := renumber(membership)
	res.Clusters = make([][]string, count)
	for v, name := range wg.names {
		c := membership[v]
		res.Partition[name] = c
		res.Clusters[c] = append(res.Clusters[c], name)
	}
	res.Modularity = base.modularity(membership, l.opts.Resolution)
	return res, nil
}

// moveNodes runs local-moving passes on one level. It reports the resulting
// community of each node, whether any node moved, the number of passes and
// whether the pass cap stopped a still-improving level.
func (l *Louvain) moveNodes(lv *level) (comm []int, moved bool, passes int, capped bool) {
	n := lv.size()
	comm = make([]int, n)
	tot := make([]float64, n)
	for i := 0; i < n; i++ {
		comm[i] = i
		tot[i] = lv.k[i]
	}
	if lv.m == 0 {
		return comm, false, 0, false
	}

	gamma := l.opts.Resolution
	m := lv.m
	twoM2 := 2 * m * m

	links := make([]float64, n)
	var order []int
	for passes < l.opts.MaxPasses {
		passes++
		movedThisPass := false
		for i := 0; i < n; i++ {
			order = order[:0]
			for _, nb := range lv.nbrs[i] {
				c := comm[nb.idx]
				if links[c] == 0 {
					order = append(order, c)
				}
				links[c] += nb.w
			}

			own := comm[i]
			ki := lv.k[i]
			tot[own] -= ki

			best := own
			bestGain := links[own]/m - gamma*tot[own]*ki/twoM2
			for _, c := range order {
				if c == own {
					continue
				}
				gain := links[c]/m - gamma*tot[c]*ki/twoM2
				if gain > bestGain+gainEpsilon {
					best, bestGain = c, gain
				}
			}

			tot[best] += ki
			if best != own {
				comm[i] = best
				movedThisPass = true
				moved = true
			}
			for _, c := range order {
				links[c] = 0
			}
		}
		if !movedThisPass {
			return comm, moved, passes, false
		}
	}
	return comm, moved, passes, true
}

// renumber rewrites ids in place to 0..k-1 by first appearance and returns k.
func renumber(ids []int) int {
	mapping := make(map[int]int)
	for i, c := range ids {
		nc, ok := mapping[c]
		if !ok {
			nc = len(mapping)
			mapping[c] = nc
		}
		ids[i] = nc
	}
	return len(mapping)
}

// Modularity scores an arbitrary partition of wg. Nodes missing from
// partition are treated as singletons.
func Modularity(wg *WeightedGraph, partition map[string]int, resolution float64) float64 {
	n := wg.Len()
	ids := make([]int, n)
	next := -1
	for i, name := range wg.names {
		if c, ok := partition[name]; ok {
			ids[i] = c
		} else {
			ids[i] = next
			next--
		}
	}
	renumber(ids)
	return wg.level().modularity(ids, resolution)
}
