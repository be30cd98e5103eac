package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/community"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// WeightTable converts the weights section into a graph weight table.
func (c *Config) WeightTable() (graph.Weights, error) {
	w := graph.Weights{
		ByKind: map[graph.RelationKind]float64{
			graph.Composition: c.Weights.Composition,
			graph.Aggregation: c.Weights.Aggregation,
			graph.Association: c.Weights.Association,
			graph.Weak:        c.Weights.Weak,
		},
		Fallback: c.Weights.Fallback,
	}
	for _, e := range c.Weights.Extra {
		w.ByKind[graph.ParseRelationKind(e.Kind)] = e.Weight
	}
	if err := w.Validate(); err != nil {
		return graph.Weights{}, err
	}
	return w, nil
}

// KeywordTable returns the ordered rules and matching mode in effect.
func (c *Config) KeywordTable() (classifier.Table, bool, error) {
	if len(c.Classifier.Rules) == 0 {
		p, err := classifier.LookupProfile(c.Classifier.Profile)
		if err != nil {
			return nil, false, err
		}
		ignoreCase := p.IgnoreCase
		if c.Classifier.IgnoreCase != nil {
			ignoreCase = *c.Classifier.IgnoreCase
		}
		return p.Rules, ignoreCase, nil
	}

	table := make(classifier.Table, 0, len(c.Classifier.Rules))
	for i, r := range c.Classifier.Rules {
		cat, err := classifier.ParseCategory(r.Category)
		if err != nil {
			return nil, false, fmt.Errorf("classifier rule %d: %w", i, err)
		}
		table = append(table, classifier.Rule{Category: cat, Keywords: r.Keywords})
	}
	ignoreCase := false
	if c.Classifier.IgnoreCase != nil {
		ignoreCase = *c.Classifier.IgnoreCase
	}
	return table, ignoreCase, nil
}

// BuildClassifier assembles the keyword classifier with overrides applied.
func (c *Config) BuildClassifier() (classifier.Classifier, error) {
	table, ignoreCase, err := c.KeywordTable()
	if err != nil {
		return nil, err
	}
	kc, err := classifier.NewKeywordClassifier(table, ignoreCase)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]classifier.Category, len(c.Classifier.Overrides))
	for _, o := range c.Classifier.Overrides {
		cat, err := classifier.ParseCategory(o.Category)
		if err != nil {
			return nil, fmt.Errorf("classifier override %q: %w", o.Name, err)
		}
		overrides[strings.TrimSpace(o.Name)] = cat
	}
	return classifier.WithOverrides(kc, overrides), nil
}

// Params returns the aggregate scoring parameters.
func (c *Config) Params() aggregate.Params {
	return aggregate.Params{
		RootBonus:             c.Engine.RootBonus,
		ValueObjectPenalty:    c.Engine.ValueObjectPenalty,
		ValueObjectMaxMethods: c.Engine.ValueObjectMaxMethods,
	}
}

// LouvainOptions returns the optimizer bounds.
func (c *Config) LouvainOptions() community.LouvainOptions {
	return community.LouvainOptions{
		MaxPasses:  c.Engine.MaxPasses,
		MaxLevels:  c.Engine.MaxLevels,
		Resolution: c.Engine.Resolution,
	}
}

// ShutdownTimeout returns the graceful shutdown budget as a duration.
func (c *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Debounce returns the watch debounce as a duration.
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Timeout returns the LLM request timeout as a duration.
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BreakerTimeout returns how long the circuit stays open.
func (c *LLMConfig) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}
