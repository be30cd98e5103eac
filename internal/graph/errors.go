package graph

import (
	"errors"
	"fmt"
)

// Reasons carried by ConfigurationError. Match them with errors.Is.
var (
	ErrUnknownNode   = errors.New("unknown node")
	ErrInvalidName   = errors.New("invalid node name")
	ErrInvalidWeight = errors.New("weight must be greater than zero")
	ErrInvalidTable  = errors.New("malformed table")
)

// ConfigurationError reports input that can never be analyzed: a relation
// pointing at an undeclared node, a non-positive weight, a malformed table.
type ConfigurationError struct {
	Op      string // operation that rejected the input, e.g. "add relation"
	Subject string // offending value
	Err     error  // one of the Err* reasons above, possibly wrapped
}

func (e *ConfigurationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(op, subject string, err error) error {
	return &ConfigurationError{Op: op, Subject: subject, Err: err}
}
