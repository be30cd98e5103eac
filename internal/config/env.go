package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// LLMEnv carries the LLM endpoint and credentials. They are read from the
// environment only so they never end up in a config file.
type LLMEnv struct {
	APIKey   string `env:"AGGSCOPE_LLM_API_KEY"`
	Endpoint string `env:"AGGSCOPE_LLM_ENDPOINT" envDefault:"https://api.openai.com/v1"`
	Model    string `env:"AGGSCOPE_LLM_MODEL" envDefault:"gpt-4o-mini"`
}

// LogValue implements slog.LogValuer to redact the API key.
func (e LLMEnv) LogValue() slog.Value {
	key := "(unset)"
	if e.APIKey != "" {
		key = "[REDACTED]"
	}
	return slog.GroupValue(
		slog.String("endpoint", e.Endpoint),
		slog.String("model", e.Model),
		slog.String("api_key", key),
	)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadLLMEnv reads LLMEnv and requires an API key.
func LoadLLMEnv() (LLMEnv, error) {
	var e LLMEnv
	if err := ParseEnv(&e); err != nil {
		return LLMEnv{}, err
	}
	if e.APIKey == "" {
		return LLMEnv{}, fmt.Errorf("AGGSCOPE_LLM_API_KEY environment variable is required for LLM enrichment")
	}
	return e, nil
}
