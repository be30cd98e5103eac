package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

func loadFrom(t *testing.T, yamlBody string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yamlBody != "" {
		path := filepath.Join(t.TempDir(), "aggscope.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
		require.NoError(t, ReadFile(v, path))
	}
	return Load(v)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Engine.RootBonus)
	assert.Equal(t, 5, cfg.Engine.ValueObjectPenalty)
	assert.Equal(t, uint(2), cfg.Engine.ValueObjectMaxMethods)
	assert.Equal(t, "treasury", cfg.Classifier.Profile)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout())
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := loadFrom(t, "")
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
	assert.Equal(t, Default().Weights, cfg.Weights)

	w, err := cfg.WeightTable()
	require.NoError(t, err)
	assert.Equal(t, graph.DefaultWeights(), w)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := loadFrom(t, `
engine:
  root_bonus: 8
  max_passes: 3
classifier:
  rules:
    - category: vo
      keywords: [Status]
    - category: ROOT
      keywords: [Order, Account]
  ignore_case: true
  overrides:
    - name: LegacyThing
      category: ENTITY
weights:
  weak: 0.05
  extra:
    - kind: many_to_many
      weight: 0.15
`)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.RootBonus)
	assert.Equal(t, 3, cfg.LouvainOptions().MaxPasses)
	assert.Equal(t, 5, cfg.Params().ValueObjectPenalty)

	table, ignoreCase, err := cfg.KeywordTable()
	require.NoError(t, err)
	assert.True(t, ignoreCase)
	require.Len(t, table, 2)
	assert.Equal(t, classifier.ValueObject, table[0].Category)
	assert.Equal(t, classifier.Root, table[1].Category)

	c, err := cfg.BuildClassifier()
	require.NoError(t, err)
	assert.Equal(t, classifier.ValueObject, c.Classify("orderstatus"))
	assert.Equal(t, classifier.Root, c.Classify("PurchaseOrder"))
	assert.Equal(t, classifier.Entity, c.Classify("LegacyThing"))

	w, err := cfg.WeightTable()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, w.Resolve(graph.Weak), 1e-9)
	assert.InDelta(t, 0.15, w.Resolve("MANY_TO_MANY"), 1e-9)
	assert.InDelta(t, 1.0, w.Resolve(graph.Composition), 1e-9)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGGSCOPE_ENGINE_ROOT_BONUS", "11")
	t.Setenv("AGGSCOPE_CLASSIFIER_PROFILE", "generic")

	cfg, err := loadFrom(t, "")
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Engine.RootBonus)

	table, ignoreCase, err := cfg.KeywordTable()
	require.NoError(t, err)
	assert.True(t, ignoreCase)
	assert.Equal(t, classifier.GenericProfile().Rules, table)
}

func TestLoad_CollectsValidationErrors(t *testing.T) {
	_, err := loadFrom(t, `
engine:
  max_passes: 0
  resolution: -1
classifier:
  profile: banking
weights:
  composition: 0
logging:
  level: loud
server:
  port: 70000
`)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := map[string]bool{}
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"engine.max_passes",
		"engine.resolution",
		"classifier.profile",
		"weights.composition",
		"logging.level",
		"server.port",
	} {
		assert.True(t, fields[f], f)
	}
	assert.Contains(t, err.Error(), "validation errors")
}

func TestValidate_ClassifierRules(t *testing.T) {
	cfg := Default()
	cfg.Classifier.Rules = []RuleConfig{
		{Category: "UNKNOWN", Keywords: []string{"x"}},
		{Category: "service", Keywords: []string{"y"}},
		{Category: "ROOT", Keywords: []string{"", "z"}},
		{Category: "VO"},
	}
	cfg.Classifier.Overrides = []OverrideConfig{{Name: " ", Category: "ROOT"}}

	errs := cfg.Validate()
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{
		"classifier.rules[0].category",
		"classifier.rules[1].category",
		"classifier.rules[2].keywords",
		"classifier.rules[3].keywords",
		"classifier.overrides[0].name",
	}, fields)
}

func TestValidate_ExtraWeights(t *testing.T) {
	cfg := Default()
	cfg.Weights.Extra = []KindWeight{
		{Kind: "COMPOSITION", Weight: 2},
		{Kind: "", Weight: 1},
		{Kind: "LINK", Weight: 0},
	}
	errs := cfg.Validate()
	require.Len(t, errs, 3)
	assert.Equal(t, "weights.extra[0].kind", errs[0].Field)
	assert.Equal(t, "weights.extra[1].kind", errs[1].Field)
	assert.Equal(t, "weights.extra[2].weight", errs[2].Field)
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	assert.Equal(t, "a: bad (got: 1)", single.Error())
	assert.Equal(t, "", ValidationErrors{}.Error())
}

func TestReadFile_Missing(t *testing.T) {
	v := viper.New()
	assert.NoError(t, ReadFile(v, ""))
	assert.Error(t, ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadLLMEnv(t *testing.T) {
	t.Setenv("AGGSCOPE_LLM_API_KEY", "")
	_, err := LoadLLMEnv()
	assert.Error(t, err)

	t.Setenv("AGGSCOPE_LLM_API_KEY", "sk-test")
	t.Setenv("AGGSCOPE_LLM_MODEL", "local-model")
	e, err := LoadLLMEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", e.APIKey)
	assert.Equal(t, "local-model", e.Model)
	assert.Equal(t, "https://api.openai.com/v1", e.Endpoint)
	assert.NotContains(t, e.LogValue().String(), "sk-test")
}
