// Package config loads aggscope settings from a config file and the
// environment through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/olehluchkiv/aggscope/internal/aggregate"
	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/community"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// EnvPrefix prefixes every environment override, e.g. AGGSCOPE_ENGINE_ROOT_BONUS.
const EnvPrefix = "AGGSCOPE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// Config is the complete aggscope configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Weights    WeightsConfig    `mapstructure:"weights"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Watch      WatchConfig      `mapstructure:"watch"`
	LLM        LLMConfig        `mapstructure:"llm"`
}

// EngineConfig tunes root scoring and the Louvain optimizer.
type EngineConfig struct {
	RootBonus             int     `mapstructure:"root_bonus"`
	ValueObjectPenalty    int     `mapstructure:"value_object_penalty"`
	ValueObjectMaxMethods uint    `mapstructure:"value_object_max_methods"`
	MaxPasses             int     `mapstructure:"max_passes"`
	MaxLevels             int     `mapstructure:"max_levels"`
	Resolution            float64 `mapstructure:"resolution"`
}

// ClassifierConfig selects the keyword table. When Rules is non-empty it
// replaces the profile's table. Rules are a list, not a map, because their
// order decides which category wins. IgnoreCase, when set, overrides the
// profile's matching mode.
type ClassifierConfig struct {
	Profile    string           `mapstructure:"profile"`
	Rules      []RuleConfig     `mapstructure:"rules"`
	IgnoreCase *bool            `mapstructure:"ignore_case"`
	Overrides  []OverrideConfig `mapstructure:"overrides"`
}

// RuleConfig is one ordered classifier rule.
type RuleConfig struct {
	Category string   `mapstructure:"category"`
	Keywords []string `mapstructure:"keywords"`
}

// OverrideConfig pins one class name to a category. Names are kept in a
// list because viper lowercases map keys.
type OverrideConfig struct {
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
}

// WeightsConfig is the relation weight table.
type WeightsConfig struct {
	Composition float64      `mapstructure:"composition"`
	Aggregation float64      `mapstructure:"aggregation"`
	Association float64      `mapstructure:"association"`
	Weak        float64      `mapstructure:"weak"`
	Fallback    float64      `mapstructure:"fallback"`
	Extra       []KindWeight `mapstructure:"extra"`
}

// KindWeight assigns a weight to an extra relation kind.
type KindWeight struct {
	Kind   string  `mapstructure:"kind"`
	Weight float64 `mapstructure:"weight"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port                   int      `mapstructure:"port"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds"`
	MaxBodyBytes           int64    `mapstructure:"max_body_bytes"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
}

// BatchConfig controls concurrent analysis of several documents.
type BatchConfig struct {
	Parallel int `mapstructure:"parallel"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

// LLMConfig holds the non-secret LLM settings. Endpoint, key and model come
// from the environment, see LoadLLMEnv.
type LLMConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Classify              bool   `mapstructure:"classify"`
	Annotate              bool   `mapstructure:"annotate"`
	TimeoutSeconds        int    `mapstructure:"timeout_seconds"`
	BreakerFailures       uint32 `mapstructure:"breaker_failures"`
	BreakerTimeoutSeconds int    `mapstructure:"breaker_timeout_seconds"`
}

// Default returns a Config with default values.
func Default() *Config {
	params := aggregate.DefaultParams()
	w := graph.DefaultWeights()
	return &Config{
		Engine: EngineConfig{
			RootBonus:             params.RootBonus,
			ValueObjectPenalty:    params.ValueObjectPenalty,
			ValueObjectMaxMethods: params.ValueObjectMaxMethods,
			MaxPasses:             community.DefaultMaxPasses,
			MaxLevels:             community.DefaultMaxLevels,
			Resolution:            community.DefaultResolution,
		},
		Classifier: ClassifierConfig{
			Profile: classifier.DefaultProfileName,
		},
		Weights: WeightsConfig{
			Composition: w.Resolve(graph.Composition),
			Aggregation: w.Resolve(graph.Aggregation),
			Association: w.Resolve(graph.Association),
			Weak:        w.Resolve(graph.Weak),
			Fallback:    w.Fallback,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:                   8080,
			ShutdownTimeoutSeconds: 5,
			MaxBodyBytes:           10 << 20,
			AllowedOrigins:         []string{"*"},
		},
		Batch: BatchConfig{
			Parallel: 4,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
		LLM: LLMConfig{
			Classify:              true,
			Annotate:              true,
			TimeoutSeconds:        30,
			BreakerFailures:       3,
			BreakerTimeoutSeconds: 60,
		},
	}
}

// SetDefaults registers the defaults with v and enables AGGSCOPE_* overrides.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Engine defaults
	v.SetDefault("engine.root_bonus", defaults.Engine.RootBonus)
	v.SetDefault("engine.value_object_penalty", defaults.Engine.ValueObjectPenalty)
	v.SetDefault("engine.value_object_max_methods", defaults.Engine.ValueObjectMaxMethods)
	v.SetDefault("engine.max_passes", defaults.Engine.MaxPasses)
	v.SetDefault("engine.max_levels", defaults.Engine.MaxLevels)
	v.SetDefault("engine.resolution", defaults.Engine.Resolution)

	// Classifier defaults
	v.SetDefault("classifier.profile", defaults.Classifier.Profile)

	// Weight defaults
	v.SetDefault("weights.composition", defaults.Weights.Composition)
	v.SetDefault("weights.aggregation", defaults.Weights.Aggregation)
	v.SetDefault("weights.association", defaults.Weights.Association)
	v.SetDefault("weights.weak", defaults.Weights.Weak)
	v.SetDefault("weights.fallback", defaults.Weights.Fallback)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.file", defaults.Logging.File)

	// Server defaults
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)
	v.SetDefault("server.max_body_bytes", defaults.Server.MaxBodyBytes)
	v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	v.SetDefault("batch.parallel", defaults.Batch.Parallel)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	// LLM defaults
	v.SetDefault("llm.enabled", defaults.LLM.Enabled)
	v.SetDefault("llm.classify", defaults.LLM.Classify)
	v.SetDefault("llm.annotate", defaults.LLM.Annotate)
	v.SetDefault("llm.timeout_seconds", defaults.LLM.TimeoutSeconds)
	v.SetDefault("llm.breaker_failures", defaults.LLM.BreakerFailures)
	v.SetDefault("llm.breaker_timeout_seconds", defaults.LLM.BreakerTimeoutSeconds)
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ReadFile points v at path and reads it. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}
