// Package pipeline ties document decoding, graph construction, optional
// enrichment and the aggregate analysis into one traced run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/codec"
	"github.com/olehluchkiv/aggscope/internal/community"
	"github.com/olehluchkiv/aggscope/internal/config"
	"github.com/olehluchkiv/aggscope/internal/enricher"
	"github.com/olehluchkiv/aggscope/internal/graph"
	"github.com/olehluchkiv/aggscope/internal/metrics"
)

const tracerName = "github.com/olehluchkiv/aggscope/internal/pipeline"

// Options configures a Pipeline. A nil Classifier classifies everything
// as UNKNOWN and a nil Detector is a default Louvain.
type Options struct {
	Weights    graph.Weights
	Classifier classifier.Classifier
	Detector   community.Detector
	Params     aggregate.Params

	// Resolver and Annotator are optional enrichment steps.
	Resolver  enricher.Resolver
	Annotator enricher.Annotator

	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Pipeline runs analyses. It holds no per-run state, so concurrent Run
// calls are safe.
type Pipeline struct {
	opts   Options
	tracer trace.Tracer
	logger *slog.Logger
}

// Result is the outcome of one run.
type Result struct {
	RunID   string
	Name    string
	Report  *aggregate.Report
	Elapsed time.Duration
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.Func(func(string) classifier.Category { return classifier.Unknown })
	}
	if opts.Detector == nil {
		d, err := community.NewLouvain(community.LouvainOptions{}, logger)
		if err != nil {
			return nil, err
		}
		opts.Detector = d
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Pipeline{
		opts:   opts,
		tracer: tracer,
		logger: logger.With("component", "pipeline"),
	}, nil
}

// Enrichment carries the optional LLM-backed steps for FromConfig.
type Enrichment struct {
	Resolver  enricher.Resolver
	Annotator enricher.Annotator
}

// FromConfig builds a pipeline from validated configuration.
func FromConfig(cfg *config.Config, e Enrichment, m *metrics.Collector, logger *slog.Logger) (*Pipeline, error) {
	weights, err := cfg.WeightTable()
	if err != nil {
		return nil, err
	}
	cls, err := cfg.BuildClassifier()
	if err != nil {
		return nil, err
	}
	detector, err := community.NewLouvain(cfg.LouvainOptions(), logger)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Weights:    weights,
		Classifier: cls,
		Detector:   detector,
		Params:     cfg.Params(),
		Resolver:   e.Resolver,
		Annotator:  e.Annotator,
		Metrics:    m,
		Logger:     logger,
	})
}

// Run analyzes one document. Categories pinned in the document take
// precedence over configured overrides and keyword rules.
func (p *Pipeline) Run(ctx context.Context, doc *codec.Document) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("document.name", doc.Name),
			attribute.Int("document.nodes", len(doc.Nodes)),
			attribute.Int("document.relations", len(doc.Relations)),
		),
	)
	defer span.End()

	logger := p.logger.With("run_id", runID)
	start := time.Now()

	report, err := p.run(ctx, doc, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if p.opts.Metrics != nil {
			p.opts.Metrics.ObserveFailure()
		}
		logger.Error("analysis failed", "document", doc.Name, "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("report.clusters", len(report.Clusters)),
		attribute.Int("report.cuts", len(report.Cuts)),
		attribute.Bool("report.converged", report.Summary.Converged),
	)
	if p.opts.Metrics != nil {
		p.opts.Metrics.ObserveAnalysis(report, elapsed)
	}
	return &Result{RunID: runID, Name: doc.Name, Report: report, Elapsed: elapsed}, nil
}

func (p *Pipeline) run(ctx context.Context, doc *codec.Document, logger *slog.Logger) (*aggregate.Report, error) {
	g, err := codec.Build(doc, p.opts.Weights)
	if err != nil {
		return nil, err
	}

	cls := classifier.WithOverrides(p.opts.Classifier, doc.Overrides())
	if p.opts.Resolver != nil {
		_, span := p.tracer.Start(ctx, "pipeline.Resolve")
		cls = p.opts.Resolver.Resolve(ctx, g, cls)
		span.End()
	}

	report, err := aggregate.New(cls, p.opts.Detector, p.opts.Params, logger).Analyze(g)
	if err != nil {
		return nil, err
	}

	if p.opts.Annotator != nil {
		_, span := p.tracer.Start(ctx, "pipeline.Annotate")
		enricher.ApplyNames(report, p.opts.Annotator.Annotate(ctx, report))
		span.End()
	}
	return report, nil
}

// RunFile reads the document at path, picking the format from its
// extension. A document without a name is named after the file.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, doc)
}

// ReadDocument decodes the graph document at path.
func ReadDocument(path string) (*codec.Document, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := c.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}
