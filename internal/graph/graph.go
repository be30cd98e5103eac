// Package graph holds the class-relationship graph the aggregate analysis
// runs on: classes as nodes, persistence relationships as weighted edges.
package graph

import (
	"strings"
)

// Graph owns a set of nodes and directed relations. Nodes and relations are
// enumerated in insertion order, which keeps every analysis over the same
// input reproducible.
//
// A Graph is not safe for concurrent mutation. Analyses only read it, so any
// number of them may run once construction is finished.
type Graph struct {
	weights   Weights
	nodes     []Node
	index     map[string]int
	relations []Relation
	in        map[string]int
	out       map[string]int
}

// New creates an empty graph that resolves relation weights through w.
func New(w Weights) (*Graph, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	byKind := make(map[RelationKind]float64, len(w.ByKind))
	for k, v := range w.ByKind {
		byKind[k] = v
	}
	return &Graph{
		weights: Weights{ByKind: byKind, Fallback: w.Fallback},
		index:   make(map[string]int),
		in:      make(map[string]int),
		out:     make(map[string]int),
	}, nil
}

// NewDefault creates an empty graph with the reference weight table.
func NewDefault() *Graph {
	g, _ := New(DefaultWeights())
	return g
}

// AddNode inserts a class, or overwrites the method count of an existing one.
func (g *Graph) AddNode(name string, methodCount uint) error {
	if strings.TrimSpace(name) == "" {
		return configError("add node", name, ErrInvalidName)
	}
	if i, ok := g.index[name]; ok {
		g.nodes[i].MethodCount = methodCount
		return nil
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, Node{Name: name, MethodCount: methodCount})
	return nil
}

// AddRelation adds a directed edge whose weight comes from the graph's
// weight table. Both endpoints must already exist.
func (g *Graph) AddRelation(source, target string, kind RelationKind) error {
	return g.addRelation(source, target, kind, g.weights.Resolve(kind))
}

// AddWeightedRelation adds a directed edge with an explicit weight,
// bypassing the weight table.
func (g *Graph) AddWeightedRelation(source, target string, kind RelationKind, weight float64) error {
	if weight <= 0 {
		return configError("add relation", source+" -> "+target, ErrInvalidWeight)
	}
	return g.addRelation(source, target, kind, weight)
}

func (g *Graph) addRelation(source, target string, kind RelationKind, weight float64) error {
	if _, ok := g.index[source]; !ok {
		return configError("add relation", source, ErrUnknownNode)
	}
	if _, ok := g.index[target]; !ok {
		return configError("add relation", target, ErrUnknownNode)
	}
	g.relations = append(g.relations, Relation{
		Source: source,
		Target: target,
		Kind:   kind,
		Weight: weight,
	})
	g.out[source]++
	g.in[target]++
	return nil
}

// Has reports whether a node named name exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Node returns the node named name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Position returns the insertion index of name, or -1.
func (g *Graph) Position(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	return -1
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Relations returns a copy of all relations in insertion order.
func (g *Graph) Relations() []Relation {
	out := make([]Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// InDegree counts relations targeting name.
func (g *Graph) InDegree(name string) int { return g.in[name] }

// OutDegree counts relations leaving name.
func (g *Graph) OutDegree(name string) int { return g.out[name] }

// IsSink reports whether name has no outgoing relations, which is typical
// of terminal value holders.
func (g *Graph) IsSink(name string) bool { return g.out[name] == 0 }

// Weights returns the table relation weights are resolved from.
func (g *Graph) Weights() Weights { return g.weights }
