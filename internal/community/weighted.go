// Package community partitions the undirected projection of a class graph
// into densely connected groups.
package community

import (
	"fmt"
	"sort"

	"github.com/olehluchkiv/aggscope/internal/graph"
)

// WeightedGraph is an undirected, weighted graph with named nodes kept in
// insertion order. Parallel edges accumulate; an edge from a node to itself
// is a self loop.
type WeightedGraph struct {
	names []string
	index map[string]int
	adj   []map[int]float64
	self  []float64
	total float64
}

// NewWeightedGraph returns an empty graph.
func NewWeightedGraph() *WeightedGraph {
	return &WeightedGraph{index: make(map[string]int)}
}

// Project builds the undirected projection of g. Directions are dropped and
// edges between the same pair, in either direction, are summed.
func Project(g *graph.Graph) *WeightedGraph {
	wg := NewWeightedGraph()
	for _, n := range g.Nodes() {
		wg.AddNode(n.Name)
	}
	for _, r := range g.Relations() {
		// Endpoints are guaranteed by graph construction.
		_ = wg.AddEdge(r.Source, r.Target, r.Weight)
	}
	return wg
}

// AddNode inserts name if absent and returns its index.
func (wg *WeightedGraph) AddNode(name string) int {
	if i, ok := wg.index[name]; ok {
		return i
	}
	i := len(wg.names)
	wg.index[name] = i
	wg.names = append(wg.names, name)
	wg.adj = append(wg.adj, make(map[int]float64))
	wg.self = append(wg.self, 0)
	return i
}

// AddEdge adds w to the undirected edge between a and b.
func (wg *WeightedGraph) AddEdge(a, b string, w float64) error {
	i, ok := wg.index[a]
	if !ok {
		return fmt.Errorf("edge %s-%s: unknown node %q", a, b, a)
	}
	j, ok := wg.index[b]
	if !ok {
		return fmt.Errorf("edge %s-%s: unknown node %q", a, b, b)
	}
	if w <= 0 {
		return fmt.Errorf("edge %s-%s: weight must be positive, got %v", a, b, w)
	}
	if i == j {
		wg.self[i] += w
	} else {
		wg.adj[i][j] += w
		wg.adj[j][i] += w
	}
	wg.total += w
	return nil
}

// Len returns the number of nodes.
func (wg *WeightedGraph) Len() int { return len(wg.names) }

// Names returns node names in insertion order.
func (wg *WeightedGraph) Names() []string {
	out := make([]string, len(wg.names))
	copy(out, wg.names)
	return out
}

// Weight returns the accumulated weight between a and b, or the self loop
// weight when a == b.
func (wg *WeightedGraph) Weight(a, b string) float64 {
	i, ok := wg.index[a]
	if !ok {
		return 0
	}
	j, ok := wg.index[b]
	if !ok {
		return 0
	}
	if i == j {
		return wg.self[i]
	}
	return wg.adj[i][j]
}

// TotalWeight is the sum of all edge weights, each undirected edge counted once.
func (wg *WeightedGraph) TotalWeight() float64 { return wg.total }

// Degree is the weighted degree of name; self loops count twice.
func (wg *WeightedGraph) Degree(name string) float64 {
	i, ok := wg.index[name]
	if !ok {
		return 0
	}
	d := 2 * wg.self[i]
	for _, w := range wg.adj[i] {
		d += w
	}
	return d
}

func (wg *WeightedGraph) level() *level {
	return newLevel(wg.adj, wg.self)
}

type neighbor struct {
	idx int
	w   float64
}

// level is the compact form the optimizer works on: neighbours sorted by
// index, self loops kept apart.
type level struct {
	nbrs [][]neighbor
	self []float64
	k    []float64
	m    float64
}

func newLevel(adj []map[int]float64, self []float64) *level {
	n := len(adj)
	lv := &level{
		nbrs: make([][]neighbor, n),
		self: make([]float64, n),
		k:    make([]float64, n),
	}
	copy(lv.self, self)
	var sum float64
	for i := 0; i < n; i++ {
		keys := make([]int, 0, len(adj[i]))
		for j := range adj[i] {
			keys = append(keys, j)
		}
		sort.Ints(keys)
		nb := make([]neighbor, len(keys))
		d := 2 * self[i]
		for x, j := range keys {
			nb[x] = neighbor{idx: j, w: adj[i][j]}
			d += adj[i][j]
		}
		lv.nbrs[i] = nb
		lv.k[i] = d
		sum += d
	}
	lv.m = sum / 2
	return lv
}

func (lv *level) size() int { return len(lv.k) }

// coarsen collapses each community into one node. Intra-community weight
// becomes a self loop; weights between communities are summed.
func (lv *level) coarsen(comm []int, count int) *level {
	adj := make([]map[int]float64, count)
	for c := range adj {
		adj[c] = make(map[int]float64)
	}
	self := make([]float64, count)
	for i := 0; i < lv.size(); i++ {
		ci := comm[i]
		self[ci] += lv.self[i]
		for _, nb := range lv.nbrs[i] {
			if nb.idx < i {
				continue
			}
			cj := comm[nb.idx]
			if ci == cj {
				self[ci] += nb.w
			} else {
				adj[ci][cj] += nb.w
				adj[cj][ci] += nb.w
			}
		}
	}
	return newLevel(adj, self)
}

// modularity of the assignment comm on this level. Community ids must be
// below lv.size().
func (lv *level) modularity(comm []int, resolution float64) float64 {
	if lv.m == 0 {
		return 0
	}
	internal := make([]float64, lv.size())
	tot := make([]float64, lv.size())
	for i := 0; i < lv.size(); i++ {
		c := comm[i]
		tot[c] += lv.k[i]
		internal[c] += lv.self[i]
		for _, nb := range lv.nbrs[i] {
			if nb.idx > i && comm[nb.idx] == c {
				internal[c] += nb.w
			}
		}
	}
	var q float64
	for c, t := range tot {
		if t == 0 && internal[c] == 0 {
			continue
		}
		frac := t / (2 * lv.m)
		q += internal[c]/lv.m - resolution*frac*frac
	}
	return q
}
