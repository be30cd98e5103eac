// Package classifier maps class names to domain categories using ordered
// keyword rules.
package classifier

import (
	"fmt"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/graph"
)

// Category is the semantic role a class name suggests.
type Category string

const (
	Root        Category = "ROOT"
	ValueObject Category = "VO"
	Entity      Category = "ENTITY"
	Unknown     Category = "UNKNOWN"
)

// ParseCategory accepts the canonical names plus a few spellings seen in
// config files ("value_object", "aggregate_root").
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ROOT", "AGGREGATE_ROOT":
		return Root, nil
	case "VO", "VALUE_OBJECT", "VALUEOBJECT":
		return ValueObject, nil
	case "ENTITY":
		return Entity, nil
	case "UNKNOWN":
		return Unknown, nil
	}
	return "", fmt.Errorf("unknown category %q (valid: ROOT, VO, ENTITY, UNKNOWN)", s)
}

// Classifier assigns a category to a class name.
type Classifier interface {
	Classify(name string) Category
}

// Rule binds a category to the keywords that select it.
type Rule struct {
	Category Category `mapstructure:"category" yaml:"category" json:"category"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords" json:"keywords"`
}

// Table is an ordered list of rules. Order is significant: the first rule
// with a matching keyword decides the category.
type Table []Rule

// Validate rejects rules that could never match or that claim UNKNOWN.
// A category may appear more than once; each occurrence keeps its position.
func (t Table) Validate() error {
	for i, r := range t {
		subject := fmt.Sprintf("rule %d", i)
		if r.Category == "" {
			return &graph.ConfigurationError{Op: "keyword table", Subject: subject, Err: fmt.Errorf("%w: empty category", graph.ErrInvalidTable)}
		}
		if r.Category == Unknown {
			return &graph.ConfigurationError{Op: "keyword table", Subject: subject, Err: fmt.Errorf("%w: %s is the fallback and cannot be registered", graph.ErrInvalidTable, Unknown)}
		}
		for _, kw := range r.Keywords {
			if kw == "" {
				return &graph.ConfigurationError{Op: "keyword table", Subject: subject, Err: fmt.Errorf("%w: empty keyword for %s", graph.ErrInvalidTable, r.Category)}
			}
		}
	}
	return nil
}

// KeywordClassifier matches names against a Table by substring containment.
type KeywordClassifier struct {
	rules      Table
	ignoreCase bool
}

// NewKeywordClassifier copies the table so later edits to it cannot change
// the behavior of an existing classifier.
func NewKeywordClassifier(table Table, ignoreCase bool) (*KeywordClassifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	rules := make(Table, len(table))
	for i, r := range table {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			if ignoreCase {
				kw = strings.ToLower(kw)
			}
			kws[j] = kw
		}
		rules[i] = Rule{Category: r.Category, Keywords: kws}
	}
	return &KeywordClassifier{rules: rules, ignoreCase: ignoreCase}, nil
}

// Classify returns the category of the first rule with a keyword contained
// in name, or Unknown.
func (c *KeywordClassifier) Classify(name string) Category {
	if c.ignoreCase {
		name = strings.ToLower(name)
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) {
				return r.Category
			}
		}
	}
	return Unknown
}

// Rules returns a copy of the table in evaluation order.
func (c *KeywordClassifier) Rules() Table {
	out := make(Table, len(c.rules))
	copy(out, c.rules)
	return out
}

// overrideClassifier pins categories for specific names and defers the rest.
type overrideClassifier struct {
	base      Classifier
	overrides map[string]Category
}

// WithOverrides layers exact-name categories over base. Names absent from
// overrides, or mapped to Unknown, are classified by base.
func WithOverrides(base Classifier, overrides map[string]Category) Classifier {
	if len(overrides) == 0 {
		return base
	}
	m := make(map[string]Category, len(overrides))
	for k, v := range overrides {
		if v != Unknown && v != "" {
			m[k] = v
		}
	}
	return &overrideClassifier{base: base, overrides: m}
}

func (c *overrideClassifier) Classify(name string) Category {
	if cat, ok := c.overrides[name]; ok {
		return cat
	}
	return c.base.Classify(name)
}

// Func adapts a plain function to the Classifier interface.
type Func func(name string) Category

func (f Func) Classify(name string) Category { return f(name) }
