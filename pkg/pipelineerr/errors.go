// Package pipelineerr defines the error taxonomy shared across every
// pipeline stage: sentinel kinds plus a wrapped struct error that
// attaches the phase and unit identifiers a caller needs to decide
// whether to retry, quarantine, or fail the run.
package pipelineerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON indicates a JSONL line or LLM payload failed to parse.
	ErrInvalidJSON = errors.New("invalid json")

	// ErrSchemaViolation indicates an LLM response failed schema validation.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrProviderError indicates the LLM or web transport returned an error.
	ErrProviderError = errors.New("provider error")

	// ErrPolicyViolation indicates a concept-level rule failed; never fatal.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInvariantViolation indicates a structural invariant broke (cycle,
	// non-unique path, level skip). Fatal within the phase unless handled.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrConfigurationError indicates settings failed pre-flight validation.
	ErrConfigurationError = errors.New("configuration error")

	// ErrResumePointUnknown indicates --resume-phase named an unknown phase.
	ErrResumePointUnknown = errors.New("resume point unknown")
)

// PhaseError wraps an error with the phase it occurred in and, for
// record-level errors, the unit identifier under inspection.
type PhaseError struct {
	Phase string
	Unit  string
	Err   error
}

func (e *PhaseError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("phase %s: unit %s: %v", e.Phase, e.Unit, e.Err)
	}
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// New wraps err with phase context.
func New(phase string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err}
}

// NewUnit wraps err with phase and unit context.
func NewUnit(phase, unit string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Unit: unit, Err: err}
}

// Retryable reports whether err represents a transient provider failure
// that the caller should retry with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderError)
}

// Fatal reports whether err should abort the current phase without
// writing a checkpoint
func Fatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation) ||
		errors.Is(err, ErrConfigurationError) ||
		errors.Is(err, ErrResumePointUnknown)
}
