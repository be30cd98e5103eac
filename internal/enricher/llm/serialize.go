package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// MaxPromptNodes caps how many classes are serialized into one prompt.
const MaxPromptNodes = 100

// SerializeGraph converts a class graph into a compact text representation
// suitable for LLM prompts. For large graphs only the most connected
// classes and the relations among them are kept.
func SerializeGraph(g *graph.Graph, maxNodes int) string {
	nodes := g.Nodes()
	relations := g.Relations()
	if maxNodes > 0 && len(nodes) > maxNodes {
		nodes, relations = filterTopNodes(g, maxNodes)
	}

	var b strings.Builder
	b.WriteString("CLASSES:\n")
	for _, n := range nodes {
		b.WriteString(fmt.Sprintf("  %s (methods: %d)\n", n.Name, n.MethodCount))
	}

	b.WriteString("\nRELATIONS:\n")
	for i, r := range relations {
		b.WriteString(fmt.Sprintf("  [%d] %s -> %s (%s)\n", i, r.Source, r.Target, r.Kind))
	}
	return b.String()
}

// SerializeNodeList lists class names, one per line.
func SerializeNodeList(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString(fmt.Sprintf("  %s\n", n))
	}
	return b.String()
}

// SerializeClusters describes each cluster of a report by id, root and
// members with their roles.
func SerializeClusters(report *aggregate.Report) string {
	var b strings.Builder
	for _, c := range report.Clusters {
		b.WriteString(fmt.Sprintf("CLUSTER %d (root: %s)\n", c.ID, c.Root))
		for _, m := range c.Members {
			b.WriteString(fmt.Sprintf("  - %s [%s]\n", m.Name, m.Role))
		}
	}
	if len(report.Cuts) > 0 {
		b.WriteString("\nCROSS-CLUSTER RELATIONS:\n")
		for _, cut := range report.Cuts {
			b.WriteString(fmt.Sprintf("  %s (cluster %d) -> %s (cluster %d) %s\n",
				cut.Source, cut.SourceCluster, cut.Target, cut.TargetCluster, cut.Kind))
		}
	}
	return b.String()
}

// filterTopNodes returns the top N most-connected nodes, in graph order,
// and the relations between them.
func filterTopNodes(g *graph.Graph, maxNodes int) ([]graph.Node, []graph.Relation) {
	nodes := g.Nodes()
	ranks := make([]graph.Node, len(nodes))
	copy(ranks, nodes)
	degree := func(n graph.Node) int { return g.InDegree(n.Name) + g.OutDegree(n.Name) }
	sort.SliceStable(ranks, func(i, j int) bool {
		return degree(ranks[i]) > degree(ranks[j])
	})

	keep := make(map[string]bool, maxNodes)
	for _, n := range ranks[:maxNodes] {
		keep[n.Name] = true
	}

	var kept []graph.Node
	for _, n := range nodes {
		if keep[n.Name] {
			kept = append(kept, n)
		}
	}
	var rels []graph.Relation
	for _, r := range g.Relations() {
		if keep[r.Source] && keep[r.Target] {
			rels = append(rels, r)
		}
	}
	return kept, rels
}
