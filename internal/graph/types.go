package graph

import (
	"fmt"
	"strings"
)

// RelationKind describes how strongly the source of a relation owns its target.
type RelationKind string

const (
	Composition RelationKind = "COMPOSITION" // strong ownership, cascades
	Aggregation RelationKind = "AGGREGATION" // referenced, eagerly usable
	Association RelationKind = "ASSOCIATION" // loosely referenced, lazy-safe
	Weak        RelationKind = "WEAK"        // optional or many-to-many style
)

// ParseRelationKind normalizes a kind read from a document or config key.
// Unrecognized kinds are kept as-is; they resolve to the fallback weight.
func ParseRelationKind(s string) RelationKind {
	return RelationKind(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether k is one of the four built-in kinds.
func (k RelationKind) Known() bool {
	switch k {
	case Composition, Aggregation, Association, Weak:
		return true
	}
	return false
}

// Node is one modeled class.
type Node struct {
	Name        string `json:"name" yaml:"name"`
	MethodCount uint   `json:"method_count" yaml:"method_count"`
}

// Relation is a directed, weighted reference from Source to Target.
type Relation struct {
	Source string       `json:"source" yaml:"source"`
	Target string       `json:"target" yaml:"target"`
	Kind   RelationKind `json:"kind" yaml:"kind"`
	Weight float64      `json:"weight" yaml:"weight"`
}

func (r Relation) String() string {
	return fmt.Sprintf("%s -[%s %.2f]-> %s", r.Source, r.Kind, r.Weight, r.Target)
}

// DefaultFallbackWeight applies to kinds missing from a weight table.
const DefaultFallbackWeight = 0.1

// Weights maps relation kinds to coupling strength.
type Weights struct {
	ByKind   map[RelationKind]float64
	Fallback float64
}

// DefaultWeights returns the reference table:
// COMPOSITION 1.0, AGGREGATION 0.6, ASSOCIATION 0.2, WEAK 0.1, fallback 0.1.
func DefaultWeights() Weights {
	return Weights{
		ByKind: map[RelationKind]float64{
			Composition: 1.0,
			Aggregation: 0.6,
			Association: 0.2,
			Weak:        0.1,
		},
		Fallback: DefaultFallbackWeight,
	}
}

// Resolve returns the weight for kind, or the fallback when kind is absent.
func (w Weights) Resolve(kind RelationKind) float64 {
	if v, ok := w.ByKind[kind]; ok {
		return v
	}
	return w.Fallback
}

// Validate rejects tables that would produce non-positive edge weights.
func (w Weights) Validate() error {
	if w.Fallback <= 0 {
		return configError("weight table", "fallback", fmt.Errorf("%w: %w", ErrInvalidTable, ErrInvalidWeight))
	}
	for kind, v := range w.ByKind {
		if kind == "" {
			return configError("weight table", "", fmt.Errorf("%w: empty relation kind", ErrInvalidTable))
		}
		if v <= 0 {
			return configError("weight table", string(kind), fmt.Errorf("%w: %w", ErrInvalidTable, ErrInvalidWeight))
		}
	}
	return nil
}
