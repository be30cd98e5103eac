package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/codec"
	"github.com/olehluchkiv/aggscope/internal/config"
	"github.com/olehluchkiv/aggscope/internal/enricher"
	"github.com/olehluchkiv/aggscope/internal/enricher/llm"
	"github.com/olehluchkiv/aggscope/internal/logging"
	"github.com/olehluchkiv/aggscope/internal/metrics"
	"github.com/olehluchkiv/aggscope/internal/pipeline"
	"github.com/olehluchkiv/aggscope/internal/server"
	"github.com/olehluchkiv/aggscope/internal/watcher"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	cleanup func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), cleanup: func() {}}

	root := &cobra.Command{
		Use:   "aggscope",
		Short: "Infer DDD aggregate boundaries from a class graph",
		Long: `aggscope partitions a graph of persistence classes into aggregates.
It clusters classes by relation strength, picks a root for each cluster,
classifies members as entities or value objects and recommends which
cross-cluster relations to cut.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.cleanup() },
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (YAML, TOML or JSON)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, text)")
	flags.String("log-file", "", "also write logs to this file")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = a.v.BindPFlag("logging.file", flags.Lookup("log-file"))

	root.AddCommand(
		a.analyzeCmd(),
		a.batchCmd(),
		a.serveCmd(),
		a.watchCmd(),
	)
	return root
}

// setup loads configuration and sets up logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	config.SetDefaults(a.v)
	path, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(a.v, path); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger, cleanup, err := logging.Setup(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	a.cfg, a.logger, a.cleanup = cfg, logger, cleanup
	return nil
}

func (a *app) analyzeCmd() *cobra.Command {
	var output, format string
	var enrich bool

	cmd := &cobra.Command{
		Use:   "analyze <graph>",
		Short: "Analyze one graph document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(enrich, nil)
			if err != nil {
				return err
			}
			res, err := p.RunFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.writeReport(cmd, res.Report, output, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format (json, yaml; default from --output extension, else json)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "enable LLM enrichment (requires AGGSCOPE_LLM_API_KEY)")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var outputDir, format string
	var enrich bool

	cmd := &cobra.Command{
		Use:   "batch <graph>...",
		Short: "Analyze several graph documents concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := codec.ForFormat(format)
			if err != nil {
				return err
			}
			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			p, err := a.pipeline(enrich, nil)
			if err != nil {
				return err
			}

			results, err := p.RunBatch(cmd.Context(), args, a.cfg.Batch.Parallel)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
					continue
				}
				if outputDir == "" {
					if err := exporter.Export(r.Result.Report, cmd.OutOrStdout()); err != nil {
						return err
					}
					continue
				}
				dest := filepath.Join(outputDir, r.Result.Name+"."+exporter.Format())
				if err := writeFile(dest, r.Result.Report, exporter); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", dest)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntP("parallel", "p", 0, "maximum concurrent analyses")
	_ = a.v.BindPFlag("batch.parallel", cmd.Flags().Lookup("parallel"))
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "write one report per document into this directory")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "report format (json, yaml)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "enable LLM enrichment (requires AGGSCOPE_LLM_API_KEY)")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var enrich bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := metrics.NewCollector()
			p, err := a.pipeline(enrich, m)
			if err != nil {
				return err
			}
			sc := a.cfg.Server
			srv := server.New(p, m, server.Config{
				Port:            sc.Port,
				ShutdownTimeout: sc.ShutdownTimeout(),
				MaxBodyBytes:    sc.MaxBodyBytes,
				AllowedOrigins:  sc.AllowedOrigins,
			}, a.logger)
			fmt.Fprintf(cmd.ErrOrStderr(), "Starting server on http://localhost:%d\n", sc.Port)
			return srv.Serve(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 0, "HTTP server port")
	_ = a.v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	cmd.Flags().BoolVar(&enrich, "enrich", false, "enable LLM enrichment (requires AGGSCOPE_LLM_API_KEY)")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var output, format string
	var enrich bool

	cmd := &cobra.Command{
		Use:   "watch <graph>",
		Short: "Re-analyze a graph document whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline(enrich, nil)
			if err != nil {
				return err
			}
			path := args[0]
			run := func(ctx context.Context) {
				res, err := p.RunFile(ctx, path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					return
				}
				if err := a.writeReport(cmd, res.Report, output, format); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "write report: %v\n", err)
				}
			}

			run(cmd.Context())
			return watcher.New(path, run, a.logger).
				WithDebounce(a.cfg.Watch.Debounce()).
				Watch(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "report format (json, yaml; default from --output extension, else json)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "enable LLM enrichment (requires AGGSCOPE_LLM_API_KEY)")
	return cmd
}

// pipeline builds the analysis pipeline, with LLM enrichment when the flag
// or llm.enabled asks for it.
func (a *app) pipeline(enrich bool, m *metrics.Collector) (*pipeline.Pipeline, error) {
	var e pipeline.Enrichment
	if enrich || a.cfg.LLM.Enabled {
		client, err := buildLLMClient(a.cfg.LLM, a.logger)
		if err != nil {
			return nil, err
		}
		if a.cfg.LLM.Classify {
			e.Resolver = enricher.NewLLMClassifier(client, enricher.NewDefaultResolver(), a.logger)
		}
		if a.cfg.LLM.Annotate {
			e.Annotator = enricher.NewLLMAnnotator(client, enricher.NewDefaultAnnotator(), a.logger)
		}
		a.logger.Info("LLM enrichment enabled", "classify", a.cfg.LLM.Classify, "annotate", a.cfg.LLM.Annotate)
	}
	return pipeline.FromConfig(a.cfg, e, m, a.logger)
}

func buildLLMClient(cfg config.LLMConfig, logger *slog.Logger) (*llm.Client, error) {
	env, err := config.LoadLLMEnv()
	if err != nil {
		return nil, err
	}
	logger.Debug("configuring LLM client", "llm", env)
	return llm.NewClient(llm.Config{
		Endpoint:        env.Endpoint,
		APIKey:          env.APIKey,
		Model:           env.Model,
		Timeout:         cfg.Timeout(),
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout(),
	}, logger), nil
}

// writeReport writes to output, or stdout when output is empty. An empty
// format is inferred from the output extension and defaults to JSON.
func (a *app) writeReport(cmd *cobra.Command, report *aggregate.Report, output, format string) error {
	exporter, err := pickExporter(output, format)
	if err != nil {
		return err
	}
	if output == "" {
		return exporter.Export(report, cmd.OutOrStdout())
	}
	if err := writeFile(output, report, exporter); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d clusters, %d cuts to %s\n", len(report.Clusters), len(report.Cuts), output)
	return nil
}

func pickExporter(output, format string) (codec.Exporter, error) {
	if format != "" {
		return codec.ForFormat(format)
	}
	if output != "" {
		if c, err := codec.ForPath(output); err == nil {
			return c, nil
		}
	}
	return codec.NewJSONCodec(), nil
}

func writeFile(path string, report *aggregate.Report, exporter codec.Exporter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := exporter.Export(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Compile-time check that the pipeline satisfies the server's runner.
var _ server.Runner = (*pipeline.Pipeline)(nil)
