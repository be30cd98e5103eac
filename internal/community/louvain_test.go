package community

import (
	"testing"

	"github.com/olehluchkiv/aggscope/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetector(t *testing.T, opts LouvainOptions) *Louvain {
	t.Helper()
	l, err := NewLouvain(opts, nil)
	require.NoError(t, err)
	return l
}

func buildGraph(t *testing.T, nodes []string, rels [][3]string) *graph.Graph {
	t.Helper()
	g := graph.NewDefault()
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n, 0))
	}
	for _, r := range rels {
		require.NoError(t, g.AddRelation(r[0], r[1], graph.RelationKind(r[2])))
	}
	return g
}

func TestProject_AccumulatesOppositeEdges(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][3]string{
		{"A", "B", "COMPOSITION"},
		{"B", "A", "WEAK"},
		{"A", "A", "ASSOCIATION"},
	})
	wg := Project(g)

	assert.Equal(t, []string{"A", "B"}, wg.Names())
	assert.InDelta(t, 1.1, wg.Weight("A", "B"), 1e-9)
	assert.InDelta(t, 1.1, wg.Weight("B", "A"), 1e-9)
	assert.InDelta(t, 0.2, wg.Weight("A", "A"), 1e-9)
	assert.InDelta(t, 1.3, wg.TotalWeight(), 1e-9)
	// Self loops count twice toward degree.
	assert.InDelta(t, 1.5, wg.Degree("A"), 1e-9)
	assert.InDelta(t, 1.1, wg.Degree("B"), 1e-9)
}

func TestWeightedGraph_AddEdgeErrors(t *testing.T) {
	wg := NewWeightedGraph()
	wg.AddNode("A")
	assert.Error(t, wg.AddEdge("A", "B", 1))
	assert.Error(t, wg.AddEdge("A", "A", 0))
	assert.Equal(t, 0.0, wg.TotalWeight())
}

func TestLouvain_Empty(t *testing.T) {
	res, err := newDetector(t, LouvainOptions{}).Detect(NewWeightedGraph())
	require.NoError(t, err)
	assert.Empty(t, res.Partition)
	assert.NotNil(t, res.Clusters)
	assert.True(t, res.Converged)
}

func TestLouvain_NoEdgesGivesSingletons(t *testing.T) {
	g := buildGraph(t, []string{"X", "Y", "Z"}, nil)
	res, err := newDetector(t, LouvainOptions{}).Detect(Project(g))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"X": 0, "Y": 1, "Z": 2}, res.Partition)
	assert.Equal(t, [][]string{{"X"}, {"Y"}, {"Z"}}, res.Clusters)
	assert.Equal(t, 0.0, res.Modularity)
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Levels)
}

func TestLouvain_ChainCollapses(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, [][3]string{
		{"A", "B", "COMPOSITION"},
		{"B", "C", "AGGREGATION"},
	})
	res, err := newDetector(t, LouvainOptions{}).Detect(Project(g))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"A", "B", "C"}}, res.Clusters)
	assert.InDelta(t, 0.0, res.Modularity, 1e-9)
	assert.True(t, res.Converged)
}

func TestLouvain_WeakBridgeSplits(t *testing.T) {
	g := buildGraph(t, []string{"P1", "P2", "Q1", "Q2"}, [][3]string{
		{"P1", "P2", "COMPOSITION"},
		{"Q1", "Q2", "COMPOSITION"},
		{"P2", "Q1", "WEAK"},
	})
	res, err := newDetector(t, LouvainOptions{}).Detect(Project(g))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"P1": 0, "P2": 0, "Q1": 1, "Q2": 1}, res.Partition)
	assert.Equal(t, [][]string{{"P1", "P2"}, {"Q1", "Q2"}}, res.Clusters)
	// Two communities of internal weight 1.0 and degree sum 2.1 each, m = 2.1.
	assert.InDelta(t, 2*(1.0/2.1-0.25), res.Modularity, 1e-9)
	assert.True(t, res.Converged)
	assert.GreaterOrEqual(t, res.Levels, 1)
}

func TestLouvain_TwoTriangles(t *testing.T) {
	nodes := []string{"a1", "a2", "a3", "b1", "b2", "b3"}
	g := buildGraph(t, nodes, [][3]string{
		{"a1", "a2", "COMPOSITION"},
		{"a2", "a3", "COMPOSITION"},
		{"a3", "a1", "COMPOSITION"},
		{"b1", "b2", "COMPOSITION"},
		{"b2", "b3", "COMPOSITION"},
		{"b3", "b1", "COMPOSITION"},
		{"a3", "b1", "ASSOCIATION"},
	})
	res, err := newDetector(t, LouvainOptions{}).Detect(Project(g))
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a1", "a2", "a3"}, {"b1", "b2", "b3"}}, res.Clusters)
	assert.Greater(t, res.Modularity, 0.3)
}

func TestLouvain_Deterministic(t *testing.T) {
	nodes := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	rels := [][3]string{
		{"n0", "n1", "AGGREGATION"},
		{"n1", "n2", "AGGREGATION"},
		{"n2", "n0", "AGGREGATION"},
		{"n3", "n4", "AGGREGATION"},
		{"n4", "n5", "AGGREGATION"},
		{"n5", "n3", "AGGREGATION"},
		{"n2", "n3", "WEAK"},
		{"n6", "n7", "ASSOCIATION"},
		{"n7", "n0", "ASSOCIATION"},
	}
	d := newDetector(t, LouvainOptions{})
	first, err := d.Detect(Project(buildGraph(t, nodes, rels)))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := d.Detect(Project(buildGraph(t, nodes, rels)))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Every node lands in exactly one cluster.
	seen := map[string]bool{}
	for _, members := range first.Clusters {
		for _, m := range members {
			assert.False(t, seen[m], m)
			seen[m] = true
		}
	}
	assert.Len(t, seen, len(nodes))
}

func TestLouvain_PassCap(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, [][3]string{
		{"A", "B", "COMPOSITION"},
		{"B", "C", "AGGREGATION"},
	})
	res, err := newDetector(t, LouvainOptions{MaxPasses: 1}).Detect(Project(g))
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Len(t, res.Partition, 3)
}

func TestLouvain_LevelCap(t *testing.T) {
	g := buildGraph(t, []string{"P1", "P2", "Q1", "Q2"}, [][3]string{
		{"P1", "P2", "COMPOSITION"},
		{"Q1", "Q2", "COMPOSITION"},
		{"P2", "Q1", "WEAK"},
	})
	res, err := newDetector(t, LouvainOptions{MaxLevels: 1}).Detect(Project(g))
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Levels)
	assert.Equal(t, [][]string{{"P1", "P2"}, {"Q1", "Q2"}}, res.Clusters)
}

func TestNewLouvain_RejectsNegativeOptions(t *testing.T) {
	_, err := NewLouvain(LouvainOptions{MaxPasses: -1}, nil)
	assert.Error(t, err)
	_, err = NewLouvain(LouvainOptions{Resolution: -0.5}, nil)
	assert.Error(t, err)

	l, err := NewLouvain(LouvainOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPasses, l.Options().MaxPasses)
	assert.Equal(t, DefaultMaxLevels, l.Options().MaxLevels)
	assert.Equal(t, DefaultResolution, l.Options().Resolution)
}

func TestModularity_Singletons(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][3]string{{"A", "B", "COMPOSITION"}})
	wg := Project(g)

	together := Modularity(wg, map[string]int{"A": 0, "B": 0}, 1)
	apart := Modularity(wg, map[string]int{}, 1)
	assert.InDelta(t, 0.0, together, 1e-9)
	assert.InDelta(t, -0.5, apart, 1e-9)
}
