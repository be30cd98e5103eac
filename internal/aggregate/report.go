package aggregate

import (
	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// Role is the part a class plays inside its aggregate.
type Role string

const (
	RoleUnknown     Role = "UNKNOWN"
	RoleRoot        Role = "ROOT"
	RoleValueObject Role = "VALUE_OBJECT"
	RoleEntity      Role = "ENTITY"
)

// Action is what to do with a relation that crosses aggregate boundaries.
type Action string

const (
	// ActionReviewOwnership flags a composition that spans two aggregates:
	// either the target belongs in the source's aggregate or the ownership
	// is wrong.
	ActionReviewOwnership Action = "REVIEW_OWNERSHIP"
	// ActionReplaceEagerReference turns an eager object reference into an
	// identifier reference.
	ActionReplaceEagerReference Action = "REPLACE_EAGER_WITH_ID"
	// ActionIdentifierReference keeps only the target's identifier, or a
	// lazy association.
	ActionIdentifierReference Action = "ID_REFERENCE"
)

// ActionFor maps a relation kind to its suggested cut action.
func ActionFor(kind graph.RelationKind) Action {
	switch kind {
	case graph.Composition:
		return ActionReviewOwnership
	case graph.Aggregation:
		return ActionReplaceEagerReference
	default:
		return ActionIdentifierReference
	}
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeConvergence = "convergence"
	CodeUnknownKind = "unknown_kind"
)

// Diagnostic is a non-fatal note attached to a report.
type Diagnostic struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Code     string   `json:"code" yaml:"code"`
	Message  string   `json:"message" yaml:"message"`
}

// MemberReport describes one class inside a cluster.
type MemberReport struct {
	Name          string              `json:"name" yaml:"name"`
	Role          Role                `json:"role" yaml:"role"`
	Category      classifier.Category `json:"category" yaml:"category"`
	Justification string              `json:"justification" yaml:"justification"`
	InDegree      int                 `json:"in_degree" yaml:"in_degree"`
	OutDegree     int                 `json:"out_degree" yaml:"out_degree"`
	MethodCount   uint                `json:"method_count" yaml:"method_count"`
	// Instability is Ce/(Ca+Ce), 0.5 for an isolated class.
	Instability float64 `json:"instability" yaml:"instability"`
}

// ClusterReport is one inferred aggregate.
type ClusterReport struct {
	ID        int            `json:"id" yaml:"id"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Root      string         `json:"root" yaml:"root"`
	RootScore int            `json:"root_score" yaml:"root_score"`
	Members   []MemberReport `json:"members" yaml:"members"`
}

// CutRecommendation is a relation between two clusters that should be
// severed or weakened.
type CutRecommendation struct {
	Source        string             `json:"source" yaml:"source"`
	Target        string             `json:"target" yaml:"target"`
	Kind          graph.RelationKind `json:"kind" yaml:"kind"`
	Weight        float64            `json:"weight" yaml:"weight"`
	SourceCluster int                `json:"source_cluster" yaml:"source_cluster"`
	TargetCluster int                `json:"target_cluster" yaml:"target_cluster"`
	Action        Action             `json:"action" yaml:"action"`
}

// Summary carries counts and optimizer statistics.
type Summary struct {
	Nodes     int  `json:"nodes" yaml:"nodes"`
	Relations int  `json:"relations" yaml:"relations"`
	Clusters  int  `json:"clusters" yaml:"clusters"`
	Cuts      int  `json:"cuts" yaml:"cuts"`
	Levels    int  `json:"levels" yaml:"levels"`
	Passes    int  `json:"passes" yaml:"passes"`
	Converged bool `json:"converged" yaml:"converged"`
}

// Report is the result of one analysis. It is built fresh each time and
// never written back into the graph.
type Report struct {
	Clusters    []ClusterReport     `json:"clusters" yaml:"clusters"`
	Cuts        []CutRecommendation `json:"cuts" yaml:"cuts"`
	Modularity  float64             `json:"modularity" yaml:"modularity"`
	Summary     Summary             `json:"summary" yaml:"summary"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// EmptyReport is the report for a graph without nodes.
func EmptyReport() *Report {
	return &Report{
		Clusters: []ClusterReport{},
		Cuts:     []CutRecommendation{},
		Summary:  Summary{Converged: true},
	}
}

// Member finds the report entry for a class.
func (r *Report) Member(name string) (MemberReport, int, bool) {
	for _, c := range r.Clusters {
		for _, m := range c.Members {
			if m.Name == name {
				return m, c.ID, true
			}
		}
	}
	return MemberReport{}, -1, false
}

// Role returns the role assigned to name, or RoleUnknown when the class was
// not part of the analysis.
func (r *Report) Role(name string) Role {
	m, _, ok := r.Member(name)
	if !ok {
		return RoleUnknown
	}
	return m.Role
}

// ClusterOf returns the cluster id of name, or -1.
func (r *Report) ClusterOf(name string) int {
	_, id, _ := r.Member(name)
	return id
}

// HasWarnings reports whether any diagnostic is a warning.
func (r *Report) HasWarnings() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityWarning {
			return true
		}
	}
	return false
}
