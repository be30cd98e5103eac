package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/olehluchkiv/aggscope/internal/classifier"
	"github.com/olehluchkiv/aggscope/internal/graph"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "engine.max_passes")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"json", "text"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateClassifier()...)
	errors = append(errors, c.validateWeights()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateServer()...)

	if c.Batch.Parallel < 1 {
		errors = append(errors, ValidationError{
			Field:   "batch.parallel",
			Value:   c.Batch.Parallel,
			Message: "must be at least 1",
		})
	}
	if c.Watch.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.debounce_ms",
			Value:   c.Watch.DebounceMs,
			Message: "must be non-negative",
		})
	}

	errors = append(errors, c.validateLLM()...)

	return errors
}

func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	if c.Engine.MaxPasses < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_passes",
			Value:   c.Engine.MaxPasses,
			Message: "must be at least 1",
		})
	}
	if c.Engine.MaxLevels < 1 {
		errors = append(errors, ValidationError{
			Field:   "engine.max_levels",
			Value:   c.Engine.MaxLevels,
			Message: "must be at least 1",
		})
	}
	if c.Engine.Resolution <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.resolution",
			Value:   c.Engine.Resolution,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateClassifier() []ValidationError {
	var errors []ValidationError

	if len(c.Classifier.Rules) == 0 {
		if _, err := classifier.LookupProfile(c.Classifier.Profile); err != nil {
			errors = append(errors, ValidationError{
				Field:   "classifier.profile",
				Value:   c.Classifier.Profile,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(classifier.ProfileNames(), ", ")),
			})
		}
	}

	for i, r := range c.Classifier.Rules {
		field := fmt.Sprintf("classifier.rules[%d]", i)
		cat, err := classifier.ParseCategory(r.Category)
		if err != nil {
			errors = append(errors, ValidationError{Field: field + ".category", Value: r.Category, Message: err.Error()})
		} else if cat == classifier.Unknown {
			errors = append(errors, ValidationError{Field: field + ".category", Value: r.Category, Message: "UNKNOWN is the fallback and cannot be a rule"})
		}
		if len(r.Keywords) == 0 {
			errors = append(errors, ValidationError{Field: field + ".keywords", Value: r.Keywords, Message: "must not be empty"})
		}
		if slices.Contains(r.Keywords, "") {
			errors = append(errors, ValidationError{Field: field + ".keywords", Value: r.Keywords, Message: "must not contain empty keywords"})
		}
	}

	for i, o := range c.Classifier.Overrides {
		field := fmt.Sprintf("classifier.overrides[%d]", i)
		if strings.TrimSpace(o.Name) == "" {
			errors = append(errors, ValidationError{Field: field + ".name", Value: o.Name, Message: "is required"})
		}
		if _, err := classifier.ParseCategory(o.Category); err != nil {
			errors = append(errors, ValidationError{Field: field + ".category", Value: o.Category, Message: err.Error()})
		}
	}

	return errors
}

func (c *Config) validateWeights() []ValidationError {
	var errors []ValidationError

	check := func(field string, v float64) {
		if v <= 0 {
			errors = append(errors, ValidationError{Field: field, Value: v, Message: "must be positive"})
		}
	}
	check("weights.composition", c.Weights.Composition)
	check("weights.aggregation", c.Weights.Aggregation)
	check("weights.association", c.Weights.Association)
	check("weights.weak", c.Weights.Weak)
	check("weights.fallback", c.Weights.Fallback)

	for i, e := range c.Weights.Extra {
		field := fmt.Sprintf("weights.extra[%d]", i)
		if strings.TrimSpace(e.Kind) == "" {
			errors = append(errors, ValidationError{Field: field + ".kind", Value: e.Kind, Message: "is required"})
		} else if graph.ParseRelationKind(e.Kind).Known() {
			errors = append(errors, ValidationError{Field: field + ".kind", Value: e.Kind, Message: "built-in kinds are set by their own keys"})
		}
		check(field+".weight", e.Weight)
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Value:   c.Server.Port,
			Message: "must be between 1 and 65535",
		})
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout_seconds",
			Value:   c.Server.ShutdownTimeoutSeconds,
			Message: "must be non-negative",
		})
	}
	if c.Server.MaxBodyBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "server.max_body_bytes",
			Value:   c.Server.MaxBodyBytes,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLLM() []ValidationError {
	var errors []ValidationError

	if c.LLM.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Value:   c.LLM.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}
	if c.LLM.BreakerFailures < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.breaker_failures",
			Value:   c.LLM.BreakerFailures,
			Message: "must be at least 1",
		})
	}
	if c.LLM.BreakerTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.breaker_timeout_seconds",
			Value:   c.LLM.BreakerTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	return errors
}
