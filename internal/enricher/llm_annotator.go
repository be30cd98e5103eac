package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/enricher/llm"
)

const annotatorSystemPrompt = `You are an expert in domain-driven design. Given clusters of persistence classes, each with a suggested aggregate root and member roles, propose a short business name for each cluster (the aggregate it represents).

Respond with JSON only.`

const annotatorUserPrompt = `Name these aggregates:

%s

Return JSON with this schema:
{"names": {"<cluster id>": "Aggregate name"}}

Rules:
- Each name must be under 40 characters
- Use domain language, not technical terms
- Cover every cluster id from the input`

// maxNameLength bounds accepted cluster names.
const maxNameLength = 60

// LLMAnnotator uses an LLM to name clusters.
type LLMAnnotator struct {
	client   Completer
	fallback *DefaultAnnotator
	logger   *slog.Logger
}

// NewLLMAnnotator creates an LLM-backed annotator.
func NewLLMAnnotator(client Completer, fallback *DefaultAnnotator, logger *slog.Logger) *LLMAnnotator {
	return &LLMAnnotator{
		client:   client,
		fallback: fallback,
		logger:   logger.With("component", "enricher.llm-annotator"),
	}
}

func (a *LLMAnnotator) Annotate(ctx context.Context, report *aggregate.Report) map[int]string {
	defaults := a.fallback.Annotate(ctx, report)
	if len(report.Clusters) == 0 {
		return defaults
	}

	raw, err := a.client.Complete(ctx, annotatorSystemPrompt, fmt.Sprintf(annotatorUserPrompt, llm.SerializeClusters(report)))
	if err != nil {
		a.logger.Warn("LLM annotator failed, using default", "error", err)
		return defaults
	}

	var resp struct {
		Names map[string]string `json:"names"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		a.logger.Warn("LLM annotator returned invalid JSON, using default", "error", err)
		return defaults
	}

	// Validate ids against actual clusters; unnamed clusters keep the default.
	names := make(map[int]string, len(defaults))
	for id, n := range defaults {
		names[id] = n
	}
	accepted := 0
	for key, name := range resp.Names {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		if _, ok := defaults[id]; !ok || name == "" || len(name) > maxNameLength {
			continue
		}
		names[id] = name
		accepted++
	}

	if accepted == 0 {
		a.logger.Warn("LLM annotator returned no valid names, using default")
		return defaults
	}

	a.logger.Debug("LLM annotator named clusters", "named", accepted, "clusters", len(report.Clusters))
	return names
}
