package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

func TestSerializeGraph(t *testing.T) {
	g := graph.NewDefault()
	require.NoError(t, g.AddNode("Order", 12))
	require.NoError(t, g.AddNode("Line", 3))
	require.NoError(t, g.AddRelation("Order", "Line", graph.Composition))

	text := SerializeGraph(g, MaxPromptNodes)

	assert.Contains(t, text, "CLASSES:")
	assert.Contains(t, text, "Order (methods: 12)")
	assert.Contains(t, text, "RELATIONS:")
	assert.Contains(t, text, "[0] Order -> Line (COMPOSITION)")
}

func TestSerializeGraph_KeepsMostConnected(t *testing.T) {
	g := graph.NewDefault()
	require.NoError(t, g.AddNode("Hub", 1))
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("Leaf%d", i)
		require.NoError(t, g.AddNode(name, 0))
		require.NoError(t, g.AddRelation("Hub", name, graph.Association))
	}
	require.NoError(t, g.AddNode("Island", 0))

	text := SerializeGraph(g, 3)
	assert.Contains(t, text, "Hub (methods: 1)")
	assert.Contains(t, text, "Leaf0")
	assert.Contains(t, text, "Leaf1")
	assert.NotContains(t, text, "Leaf2")
	assert.NotContains(t, text, "Island")
	assert.Equal(t, 2, strings.Count(text, "->"))
}

func TestSerializeClusters(t *testing.T) {
	report := &aggregate.Report{
		Clusters: []aggregate.ClusterReport{
			{ID: 0, Root: "Order", Members: []aggregate.MemberReport{
				{Name: "Order", Role: aggregate.RoleRoot},
				{Name: "Line", Role: aggregate.RoleEntity},
			}},
			{ID: 1, Root: "Customer", Members: []aggregate.MemberReport{
				{Name: "Customer", Role: aggregate.RoleRoot},
			}},
		},
		Cuts: []aggregate.CutRecommendation{
			{Source: "Order", Target: "Customer", Kind: graph.Association, SourceCluster: 0, TargetCluster: 1},
		},
	}

	text := SerializeClusters(report)
	assert.Contains(t, text, "CLUSTER 0 (root: Order)")
	assert.Contains(t, text, "  - Line [ENTITY]")
	assert.Contains(t, text, "Order (cluster 0) -> Customer (cluster 1) ASSOCIATION")
}

func TestSerializeNodeList(t *testing.T) {
	assert.Equal(t, "  A\n  B\n", SerializeNodeList([]string{"A", "B"}))
}
