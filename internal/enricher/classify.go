package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/enricher/llm"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// DefaultResolver keeps the keyword classifier as is.
type DefaultResolver struct{}

func NewDefaultResolver() *DefaultResolver { return &DefaultResolver{} }

func (r *DefaultResolver) Resolve(_ context.Context, _ *graph.Graph, base classifier.Classifier) classifier.Classifier {
	return base
}

const classifierSystemPrompt = `You are an expert in domain-driven design and object/relational mapping. Given a class graph, decide for each listed class whether it is most likely an aggregate root (ROOT), a value object (VO) or an internal entity (ENTITY).

Respond with JSON only:
{"categories": {"ClassName": "ROOT|VO|ENTITY"}}

Rules:
- Only classify the classes listed under UNCLASSIFIED
- Value objects have no identity and little behavior
- Aggregate roots are entry points referenced by other classes`

const classifierUserPrompt = `%s
UNCLASSIFIED:
%s`

// LLMClassifier asks an LLM to categorize the classes the keyword table
// leaves UNKNOWN. The answers become overrides layered over the base
// classifier, so the analysis itself never talks to the LLM.
type LLMClassifier struct {
	client   Completer
	fallback *DefaultResolver
	logger   *slog.Logger
}

// NewLLMClassifier creates an LLM-backed resolver.
func NewLLMClassifier(client Completer, fallback *DefaultResolver, logger *slog.Logger) *LLMClassifier {
	return &LLMClassifier{
		client:   client,
		fallback: fallback,
		logger:   logger.With("component", "enricher.llm-classifier"),
	}
}

func (c *LLMClassifier) Resolve(ctx context.Context, g *graph.Graph, base classifier.Classifier) classifier.Classifier {
	var unknown []string
	for _, n := range g.Nodes() {
		if base.Classify(n.Name) == classifier.Unknown {
			unknown = append(unknown, n.Name)
		}
	}
	if len(unknown) == 0 {
		return c.fallback.Resolve(ctx, g, base)
	}

	prompt := fmt.Sprintf(classifierUserPrompt, llm.SerializeGraph(g, llm.MaxPromptNodes), llm.SerializeNodeList(unknown))
	raw, err := c.client.Complete(ctx, classifierSystemPrompt, prompt)
	if err != nil {
		c.logger.Warn("LLM classifier failed, using keyword categories", "error", err)
		return c.fallback.Resolve(ctx, g, base)
	}

	var resp struct {
		Categories map[string]string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		c.logger.Warn("LLM classifier returned invalid JSON, using keyword categories", "error", err)
		return c.fallback.Resolve(ctx, g, base)
	}

	// Only accept answers for classes that were actually unknown.
	pending := make(map[string]bool, len(unknown))
	for _, n := range unknown {
		pending[n] = true
	}
	overrides := make(map[string]classifier.Category)
	for name, value := range resp.Categories {
		if !pending[name] {
			continue
		}
		cat, err := classifier.ParseCategory(value)
		if err != nil || cat == classifier.Unknown {
			continue
		}
		overrides[name] = cat
	}

	if len(overrides) == 0 {
		c.logger.Warn("LLM classifier returned no usable categories, using keyword categories")
		return c.fallback.Resolve(ctx, g, base)
	}

	c.logger.Info("LLM classifier resolved unknown classes", "resolved", len(overrides), "unknown", len(unknown))
	return classifier.WithOverrides(base, overrides)
}
