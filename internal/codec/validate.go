package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olehluchkiv/aggscope/internal/classifier"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, err := classifier.ParseCategory(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the structural rules of a document: required names and
// positive explicit weights. Referential checks happen in Build.
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, formatFieldError(e))
		}
		return fmt.Errorf("invalid document: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid document: %w", err)
}

// formatFieldError formats a single field validation error. The namespace
// drops the root type name, e.g. "Relations[2].Weight".
func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	field = strings.ToLower(field)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "category":
		return fmt.Sprintf("%s must be one of ROOT, VO, ENTITY, UNKNOWN", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
