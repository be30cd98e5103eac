package codec

import (
	"fmt"

	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// Build constructs a graph from doc. Any invalid entry rejects the whole
// document: on error no graph is returned.
func Build(doc *Document, weights graph.Weights) (*graph.Graph, error) {
	g, err := graph.New(weights)
	if err != nil {
		return nil, err
	}
	for i, n := range doc.Nodes {
		if err := g.AddNode(n.Name, n.Methods); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	for i, r := range doc.Relations {
		kind := graph.ParseRelationKind(r.Kind)
		if r.Weight != nil {
			err = g.AddWeightedRelation(r.Source, r.Target, kind, *r.Weight)
		} else {
			err = g.AddRelation(r.Source, r.Target, kind)
		}
		if err != nil {
			return nil, fmt.Errorf("relation %d: %w", i, err)
		}
	}
	return g, nil
}

// Overrides returns the categories pinned by nodes of doc. Validation has
// already rejected unknown category names.
func (doc *Document) Overrides() map[string]classifier.Category {
	out := make(map[string]classifier.Category)
	for _, n := range doc.Nodes {
		if n.Category == "" {
			continue
		}
		if cat, err := classifier.ParseCategory(n.Category); err == nil {
			out[n.Name] = cat
		}
	}
	return out
}

// FromGraph converts g back into a document.
func FromGraph(name string, g *graph.Graph) *Document {
	doc := &Document{
		Name:      name,
		Nodes:     make([]NodeDoc, 0, g.Len()),
		Relations: make([]RelationDoc, 0),
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{Name: n.Name, Methods: n.MethodCount})
	}
	for _, r := range g.Relations() {
		w := r.Weight
		doc.Relations = append(doc.Relations, RelationDoc{
			Source: r.Source,
			Target: r.Target,
			Kind:   string(r.Kind),
			Weight: &w,
		})
	}
	return doc
}
