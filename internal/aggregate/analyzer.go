// Package aggregate turns a community partition of a class graph into
// aggregate recommendations: one root per cluster, a role for every member,
// and the cross-cluster relations that should be cut.
package aggregate

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/community"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

const (
	DefaultRootBonus             = 5
	DefaultValueObjectPenalty    = 5
	DefaultValueObjectMaxMethods = 2
)

// ErrInvalidPartition is returned when a detector's partition does not
// assign every node of the graph to exactly one cluster.
var ErrInvalidPartition = errors.New("invalid partition")

// Params tunes root scoring and value-object detection.
type Params struct {
	// RootBonus is added to the score of ROOT-classified members.
	RootBonus int `mapstructure:"root_bonus"`
	// ValueObjectPenalty is subtracted from the score of VO-classified members.
	ValueObjectPenalty int `mapstructure:"value_object_penalty"`
	// A sink with fewer methods than this is treated as a value object.
	ValueObjectMaxMethods uint `mapstructure:"value_object_max_methods"`
}

// DefaultParams returns bonus 5, penalty 5, threshold 2.
func DefaultParams() Params {
	return Params{
		RootBonus:             DefaultRootBonus,
		ValueObjectPenalty:    DefaultValueObjectPenalty,
		ValueObjectMaxMethods: DefaultValueObjectMaxMethods,
	}
}

// Analyzer runs community detection and derives aggregates from it.
// It only reads the graph; one Analyzer may serve concurrent analyses of
// different graphs.
type Analyzer struct {
	classifier classifier.Classifier
	detector   community.Detector
	params     Params
	logger     *slog.Logger
}

// New creates an Analyzer. A nil classifier classifies everything as
// UNKNOWN, a nil detector is a default Louvain and a nil logger discards
// output.
func New(c classifier.Classifier, d community.Detector, p Params, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c == nil {
		c = classifier.Func(func(string) classifier.Category { return classifier.Unknown })
	}
	if d == nil {
		// Zero options cannot fail validation.
		d, _ = community.NewLouvain(community.LouvainOptions{}, logger)
	}
	return &Analyzer{
		classifier: c,
		detector:   d,
		params:     p,
		logger:     logger.With("component", "aggregate"),
	}
}

// Params returns the scoring parameters.
func (a *Analyzer) Params() Params { return a.params }

// Analyze partitions g and builds the report.
func (a *Analyzer) Analyze(g *graph.Graph) (*Report, error) {
	if g == nil {
		return nil, fmt.Errorf("analyze: nil graph")
	}
	if g.Len() == 0 {
		a.logger.Info("empty graph, nothing to analyze")
		return EmptyReport(), nil
	}

	// Step 1: partition the undirected projection
	res, err := a.detector.Detect(community.Project(g))
	if err != nil {
		return nil, fmt.Errorf("community detection: %w", err)
	}
	partition, clusters, err := normalize(g, res.Partition)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Clusters:   make([]ClusterReport, 0, len(clusters)),
		Cuts:       []CutRecommendation{},
		Modularity: res.Modularity,
	}

	categories := make(map[string]classifier.Category, g.Len())
	for _, n := range g.Nodes() {
		categories[n.Name] = a.classifier.Classify(n.Name)
	}

	// Step 2: pick roots and classify members
	for id, members := range clusters {
		report.Clusters = append(report.Clusters, a.buildCluster(g, id, members, categories))
	}

	// Step 3: every inter-cluster relation is a cut
	unknownKinds := map[graph.RelationKind]bool{}
	var unknownOrder []graph.RelationKind
	for _, r := range g.Relations() {
		if !r.Kind.Known() && !unknownKinds[r.Kind] {
			unknownKinds[r.Kind] = true
			unknownOrder = append(unknownOrder, r.Kind)
		}
		src, dst := partition[r.Source], partition[r.Target]
		if src == dst {
			continue
		}
		report.Cuts = append(report.Cuts, CutRecommendation{
			Source:        r.Source,
			Target:        r.Target,
			Kind:          r.Kind,
			Weight:        r.Weight,
			SourceCluster: src,
			TargetCluster: dst,
			Action:        ActionFor(r.Kind),
		})
	}

	if !res.Converged {
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeConvergence,
			Message: fmt.Sprintf("community detection stopped at a cap after %d levels and %d passes; partition may not be optimal",
				res.Levels, res.Passes),
		})
	}
	for _, k := range unknownOrder {
		report.Diagnostics = append(report.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeUnknownKind,
			Message:  fmt.Sprintf("relation kind %q is not recognized; fallback weight %.2f applied", k, g.Weights().Resolve(k)),
		})
	}

	report.Summary = Summary{
		Nodes:     g.Len(),
		Relations: len(g.Relations()),
		Clusters:  len(report.Clusters),
		Cuts:      len(report.Cuts),
		Levels:    res.Levels,
		Passes:    res.Passes,
		Converged: res.Converged,
	}

	a.logger.Info("analysis complete",
		"nodes", report.Summary.Nodes,
		"clusters", report.Summary.Clusters,
		"cuts", report.Summary.Cuts,
		"modularity", report.Modularity,
	)
	return report, nil
}

// normalize renumbers a detector partition densely by first appearance in
// node insertion order and derives the member lists from it.
func normalize(g *graph.Graph, raw map[string]int) (map[string]int, [][]string, error) {
	if len(raw) != g.Len() {
		for name := range raw {
			if !g.Has(name) {
				return nil, nil, fmt.Errorf("%w: %q is not a node of the graph", ErrInvalidPartition, name)
			}
		}
	}

	ids := make(map[int]int)
	partition := make(map[string]int, g.Len())
	var clusters [][]string
	for _, n := range g.Nodes() {
		c, ok := raw[n.Name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: node %q has no cluster", ErrInvalidPartition, n.Name)
		}
		id, seen := ids[c]
		if !seen {
			id = len(clusters)
			ids[c] = id
			clusters = append(clusters, nil)
		}
		partition[n.Name] = id
		clusters[id] = append(clusters[id], n.Name)
	}
	return partition, clusters, nil
}

func (a *Analyzer) buildCluster(g *graph.Graph, id int, members []string, categories map[string]classifier.Category) ClusterReport {
	root, best := members[0], a.rootScore(g, members[0], categories[members[0]])
	for _, m := range members[1:] {
		if s := a.rootScore(g, m, categories[m]); s > best {
			root, best = m, s
		}
	}
	a.logger.Debug("root selected", "cluster", id, "root", root, "score", best, "members", len(members))

	cr := ClusterReport{
		ID:        id,
		Root:      root,
		RootScore: best,
		Members:   make([]MemberReport, 0, len(members)),
	}
	for _, name := range members {
		node, _ := g.Node(name)
		cat := categories[name]
		mr := MemberReport{
			Name:        name,
			Category:    cat,
			InDegree:    g.InDegree(name),
			OutDegree:   g.OutDegree(name),
			MethodCount: node.MethodCount,
		}
		mr.Instability = instability(mr.InDegree, mr.OutDegree)

		switch {
		case name == root:
			mr.Role = RoleRoot
			mr.Justification = a.rootJustification(mr, cat, best, len(members))
		case cat == classifier.ValueObject:
			mr.Role = RoleValueObject
			mr.Justification = "name matches a value-object keyword"
		case g.IsSink(name) && node.MethodCount < a.params.ValueObjectMaxMethods:
			mr.Role = RoleValueObject
			mr.Justification = fmt.Sprintf("sink with %d methods (threshold %d), behaves like a value", node.MethodCount, a.params.ValueObjectMaxMethods)
		default:
			mr.Role = RoleEntity
			mr.Justification = fmt.Sprintf("owned through root %s; has identity or behavior (%d methods, %d outgoing)", root, node.MethodCount, mr.OutDegree)
		}
		cr.Members = append(cr.Members, mr)
	}
	return cr
}

func (a *Analyzer) rootScore(g *graph.Graph, name string, cat classifier.Category) int {
	score := g.InDegree(name)
	switch cat {
	case classifier.Root:
		score += a.params.RootBonus
	case classifier.ValueObject:
		score -= a.params.ValueObjectPenalty
	}
	return score
}

func (a *Analyzer) rootJustification(m MemberReport, cat classifier.Category, score, size int) string {
	if size == 1 {
		return "sole member of its cluster"
	}
	switch cat {
	case classifier.Root:
		return fmt.Sprintf("highest root score %d: in-degree %d plus root keyword bonus %d", score, m.InDegree, a.params.RootBonus)
	case classifier.ValueObject:
		return fmt.Sprintf("highest root score %d despite value-object penalty %d (in-degree %d)", score, a.params.ValueObjectPenalty, m.InDegree)
	default:
		return fmt.Sprintf("highest root score %d from in-degree %d", score, m.InDegree)
	}
}

func instability(ca, ce int) float64 {
	if ca+ce == 0 {
		return 0.5
	}
	return float64(ce) / float64(ca+ce)
}
