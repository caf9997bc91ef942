package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError reports model output that could not be turned into JSON of the expected shape.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return "parse: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError carries every schema violation found, not just the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("validation: %d violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

type ParseOutcome int

const (
	OutcomeOK ParseOutcome = iota
	OutcomeParseFailed
	OutcomeValidationFailed
	OutcomeOther
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeParseFailed:
		return "parse_failed"
	case OutcomeValidationFailed:
		return "validation_failed"
	default:
		return "other"
	}
}

func Classify(err error) ParseOutcome {
	if err == nil {
		return OutcomeOK
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return OutcomeParseFailed
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return OutcomeValidationFailed
	}
	return OutcomeOther
}
